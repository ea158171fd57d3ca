package models

// FormErrors collects field-level and form-level validation messages the way
// the host renders them: field errors attach to an input, form errors sit at
// the top of the form.
type FormErrors struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

func NewFormErrors() *FormErrors {
	return &FormErrors{Fields: make(map[string][]string)}
}

func (e *FormErrors) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *FormErrors) AddForm(message string) {
	e.Form = append(e.Form, message)
}

func (e *FormErrors) HasErrors() bool {
	return e != nil && (len(e.Fields) > 0 || len(e.Form) > 0)
}

// OptionsInput is a submitted configuration form.
type OptionsInput struct {
	InstanceURL string `json:"instance_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`

	DefaultProjectID string `json:"default_project_id"`
}

// StoredOptions is the persisted per-project plugin configuration.
type StoredOptions struct {
	InstanceURL       string `json:"instance_url"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	DefaultProjectID  string `json:"default_project_id"`
	DefaultReporterID string `json:"default_reporter_id"`
}

// Configured reports whether issue creation can proceed for this project.
func (o *StoredOptions) Configured() bool {
	return o != nil && o.DefaultProjectID != ""
}

// ConfigChoices is the queried half of the configuration form: the dynamic
// option lists fetched from the tracker, separate from pure validation.
type ConfigChoices struct {
	Projects          []Choice `json:"projects"`
	DefaultReporterID string   `json:"default_reporter_id"`
}

// Degraded reports that no project is visible to the credentials; the
// project-selection and reporter fields are withheld and configuration
// cannot complete.
func (c *ConfigChoices) Degraded() bool {
	return c == nil || len(c.Projects) == 0
}

// Event is the host-side error event an issue is filed for.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	URL       string `json:"url"`
	UserEmail string `json:"user_email"`
}

// IssueFormData is the populated issue-creation form: hidden server-supplied
// ids, prefilled text, and the fetched choice lists. Errors carries the
// terminal zero-milestone condition when the form cannot be submitted.
type IssueFormData struct {
	ProjectID  string `json:"project_id"`
	ReporterID string `json:"reporter_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	Assignees  []Choice `json:"assignees"`
	Milestones []Choice `json:"milestones"`
	Priorities []Choice `json:"priorities"`

	DefaultAssigneeID string `json:"default_assignee_id,omitempty"`
	DefaultPriority   string `json:"default_priority"`

	Errors *FormErrors `json:"errors,omitempty"`
}

// Submittable reports whether the form reached a usable state.
func (f *IssueFormData) Submittable() bool {
	return f != nil && !f.Errors.HasErrors()
}
