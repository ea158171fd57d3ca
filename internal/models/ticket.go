package models

import (
	"strconv"
	"strings"
	"time"
)

// ClientConfig is the per-project connection description for one tracker
// instance. Immutable once a client is built.
type ClientConfig struct {
	InstanceURL        string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Project is a tracker project record.
type Project struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Person is a tracker account.
type Person struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName renders the person the way the issue form lists assignees.
func (p Person) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Milestone is a tracker milestone record.
type Milestone struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Priority is one step of the tracker's fixed priority scale.
type Priority struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PriorityScale is the tracker's fixed five-step priority enumeration. It is
// not itself queryable through the API.
var PriorityScale = []Priority{
	{ID: 1, Name: "Lowest"},
	{ID: 2, Name: "Low"},
	{ID: 3, Name: "Normal"},
	{ID: 4, Name: "High"},
	{ID: 5, Name: "Highest"},
}

// IssueDraft is the in-memory ticket before submission, keyed the way the
// host's form names its fields.
type IssueDraft struct {
	ProjectID   string `json:"project_id"`
	ReporterID  string `json:"reporter_id"`
	AssigneeID  string `json:"assignee_id"`
	MilestoneID string `json:"milestone_id"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FormFields returns the draft as ordered form fields, underscore-keyed.
func (d *IssueDraft) FormFields() *OrderedMap {
	fields := NewOrderedMap()
	fields.Set("project_id", d.ProjectID)
	fields.Set("reporter_id", d.ReporterID)
	fields.Set("assignee_id", d.AssigneeID)
	fields.Set("milestone_id", d.MilestoneID)
	fields.Set("priority", d.Priority)
	fields.Set("title", d.Title)
	fields.Set("description", d.Description)
	return fields
}

// TicketFields rewrites form field names into the tracker's ticket schema:
// underscores become hyphens, and the host's "title" is the tracker's
// "summary".
func TicketFields(form *OrderedMap) *OrderedMap {
	out := NewOrderedMap()
	var title interface{}
	hasTitle := false
	for _, key := range form.Keys() {
		value, _ := form.Get(key)
		if key == "title" {
			title = value
			hasTitle = true
			continue
		}
		out.Set(strings.ReplaceAll(key, "_", "-"), value)
	}
	if hasTitle {
		out.Set("summary", title)
	}
	return out
}

// Choice is a selectable (id, label) pair for a dynamic form field. The
// tracker describes options with either a "name" or a "value"; both shapes
// resolve here once, at the API boundary.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NamedChoice builds a choice from a record carrying a name.
func NamedChoice(id int, name string) Choice {
	return Choice{ID: strconv.Itoa(id), Label: name}
}

// ValuedChoice builds a choice from a record carrying a raw value.
func ValuedChoice(id int, value string) Choice {
	return Choice{ID: strconv.Itoa(id), Label: value}
}

// ChoiceIDs returns the set of selectable ids.
func ChoiceIDs(choices []Choice) map[string]bool {
	ids := make(map[string]bool, len(choices))
	for _, c := range choices {
		ids[c.ID] = true
	}
	return ids
}
