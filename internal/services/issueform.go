package services

import (
	"fmt"
	"net/http"
	"strconv"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"
)

// IssueFormParams carries the server-supplied inputs for populating the
// issue-creation form.
type IssueFormParams struct {
	ProjectID         string
	DefaultReporterID string
	CurrentUserEmail  string
	Title             string
	Description       string
}

// NewIssueForm fetches the dynamic choice lists for a project and assembles
// the form. A failed fetch is an error (the query phase failed); a project
// with no upcoming milestones is a constructed-but-invalid form, terminal for
// this submission until the operator creates a milestone in the tracker.
func NewIssueForm(client interfaces.TrackerClient, params IssueFormParams) (*models.IssueFormData, error) {
	prioritiesResp := client.Priorities()
	usersResp := client.UsersForProject(params.ProjectID)
	milestonesResp := client.UpcomingMilestonesForProject(params.ProjectID)

	for _, resp := range []*models.TrackerResponse{prioritiesResp, usersResp, milestonesResp} {
		if resp.StatusCode != http.StatusOK {
			return nil, common.NewConfigurationError("choices_unavailable",
				fmt.Sprintf("unable to fetch tracker choices: status %d", resp.StatusCode))
		}
	}

	var priorities []models.Priority
	var users []models.Person
	var milestones []models.Milestone
	if err := prioritiesResp.DecodeInto(&priorities); err != nil {
		return nil, common.NewConfigurationError("choices_unreadable", "unable to read priority list").WithCause(err)
	}
	if err := usersResp.DecodeInto(&users); err != nil {
		return nil, common.NewConfigurationError("choices_unreadable", "unable to read project user list").WithCause(err)
	}
	if err := milestonesResp.DecodeInto(&milestones); err != nil {
		return nil, common.NewConfigurationError("choices_unreadable", "unable to read milestone list").WithCause(err)
	}

	form := &models.IssueFormData{
		ProjectID:       params.ProjectID,
		ReporterID:      params.DefaultReporterID,
		Title:           params.Title,
		Description:     params.Description,
		DefaultPriority: "4",
	}

	// Terminal condition: tickets require a milestone, and only the tracker
	// operator can create one.
	if len(milestones) == 0 {
		errs := models.NewFormErrors()
		errs.AddForm(fmt.Sprintf(
			"Error in Unfuddle configuration, no milestones found for user %s.",
			client.Username()))
		form.Errors = errs
		return form, nil
	}

	for _, u := range users {
		form.Assignees = append(form.Assignees, models.NamedChoice(u.ID, u.DisplayName()))
	}
	for _, m := range milestones {
		form.Milestones = append(form.Milestones, models.NamedChoice(m.ID, m.Title))
	}
	for _, p := range priorities {
		form.Priorities = append(form.Priorities, models.NamedChoice(p.ID, p.Name))
	}

	// When the host user has a matching tracker account, preselect them as
	// assignee and report the issue as them instead of the configured default.
	if params.CurrentUserEmail != "" {
		for _, u := range users {
			if u.Email == params.CurrentUserEmail {
				id := strconv.Itoa(u.ID)
				form.ReporterID = id
				form.DefaultAssigneeID = id
			}
		}
	}

	return form, nil
}

// ValidateDraft is the pure validation phase: it checks a submitted draft
// against the already-fetched form without touching the tracker.
func ValidateDraft(form *models.IssueFormData, draft *models.IssueDraft) *models.FormErrors {
	errs := models.NewFormErrors()

	if form.Errors.HasErrors() {
		for _, msg := range form.Errors.Form {
			errs.AddForm(msg)
		}
		return errs
	}

	if draft.ProjectID == "" {
		errs.AddField("project_id", "Project is required")
	}
	if draft.ReporterID == "" {
		errs.AddField("reporter_id", "Reporter is required")
	}
	if draft.Title == "" {
		errs.AddField("title", "Issue summary is required")
	}
	if draft.Description == "" {
		errs.AddField("description", "Description is required")
	}

	if draft.AssigneeID == "" {
		errs.AddField("assignee_id", "Assignee is required")
	} else if !models.ChoiceIDs(form.Assignees)[draft.AssigneeID] {
		errs.AddField("assignee_id", "Assignee is not a valid choice")
	}

	if draft.MilestoneID == "" {
		errs.AddField("milestone_id", "Milestone is required")
	} else if !models.ChoiceIDs(form.Milestones)[draft.MilestoneID] {
		errs.AddField("milestone_id", "Milestone is not a valid choice")
	}

	if draft.Priority == "" {
		errs.AddField("priority", "Priority is required")
	} else if !models.ChoiceIDs(form.Priorities)[draft.Priority] {
		errs.AddField("priority", "Priority is not a valid choice")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
