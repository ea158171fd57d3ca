package services

import (
	"net/http"
	"testing"

	"unfuddle-plugin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedFormClient() *stubClient {
	return &stubClient{
		username: "rick",
		projectUsers: jsonResponse(http.StatusOK,
			`[{"id":7,"first_name":"Rick","last_name":"Deckard","email":"rick@example.com"},
			  {"id":8,"first_name":"Roy","last_name":"Batty","email":"roy@example.com"}]`),
		upcomingByProject: jsonResponse(http.StatusOK,
			`[{"id":9,"title":"Retirement"},{"id":10,"title":"Offworld"}]`),
	}
}

func TestIssueFormPopulated(t *testing.T) {
	form, err := NewIssueForm(populatedFormClient(), IssueFormParams{
		ProjectID:         "5",
		DefaultReporterID: "3",
		Title:             "Bug",
		Description:       "It broke",
	})
	require.NoError(t, err)
	require.True(t, form.Submittable())

	assert.Equal(t, "5", form.ProjectID)
	assert.Equal(t, "3", form.ReporterID)
	assert.Equal(t, "Bug", form.Title)
	assert.Equal(t, "4", form.DefaultPriority)

	require.Len(t, form.Assignees, 2)
	assert.Equal(t, models.Choice{ID: "7", Label: "Rick Deckard"}, form.Assignees[0])
	require.Len(t, form.Milestones, 2)
	assert.Equal(t, models.Choice{ID: "9", Label: "Retirement"}, form.Milestones[0])
	require.Len(t, form.Priorities, 5)
	assert.Equal(t, models.Choice{ID: "1", Label: "Lowest"}, form.Priorities[0])
}

func TestIssueFormEmailMatchOverridesReporter(t *testing.T) {
	form, err := NewIssueForm(populatedFormClient(), IssueFormParams{
		ProjectID:         "5",
		DefaultReporterID: "3",
		CurrentUserEmail:  "roy@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "8", form.ReporterID)
	assert.Equal(t, "8", form.DefaultAssigneeID)
}

func TestIssueFormNoEmailMatchKeepsDefault(t *testing.T) {
	form, err := NewIssueForm(populatedFormClient(), IssueFormParams{
		ProjectID:         "5",
		DefaultReporterID: "3",
		CurrentUserEmail:  "nobody@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "3", form.ReporterID)
	assert.Empty(t, form.DefaultAssigneeID)
}

func TestIssueFormNoUpcomingMilestones(t *testing.T) {
	client := populatedFormClient()
	client.upcomingByProject = jsonResponse(http.StatusOK, `[]`)

	form, err := NewIssueForm(client, IssueFormParams{ProjectID: "5"})
	require.NoError(t, err)

	require.False(t, form.Submittable())
	require.Len(t, form.Errors.Form, 1)
	assert.Equal(t, "Error in Unfuddle configuration, no milestones found for user rick.",
		form.Errors.Form[0])
	assert.Empty(t, form.Milestones)
}

func TestIssueFormFetchFailure(t *testing.T) {
	client := populatedFormClient()
	client.projectUsers = jsonResponse(http.StatusBadGateway, "")

	_, err := NewIssueForm(client, IssueFormParams{ProjectID: "5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to fetch tracker choices")
}

func submittableForm(t *testing.T) *models.IssueFormData {
	t.Helper()
	form, err := NewIssueForm(populatedFormClient(), IssueFormParams{ProjectID: "5"})
	require.NoError(t, err)
	return form
}

func TestValidateDraftAccepts(t *testing.T) {
	errs := ValidateDraft(submittableForm(t), &models.IssueDraft{
		ProjectID:   "5",
		ReporterID:  "7",
		AssigneeID:  "8",
		MilestoneID: "9",
		Priority:    "4",
		Title:       "Bug",
		Description: "It broke",
	})
	assert.Nil(t, errs)
}

func TestValidateDraftMissingFields(t *testing.T) {
	errs := ValidateDraft(submittableForm(t), &models.IssueDraft{})
	require.True(t, errs.HasErrors())
	for _, field := range []string{"project_id", "reporter_id", "title", "description", "assignee_id", "milestone_id", "priority"} {
		assert.Contains(t, errs.Fields, field)
	}
}

func TestValidateDraftUnknownChoices(t *testing.T) {
	errs := ValidateDraft(submittableForm(t), &models.IssueDraft{
		ProjectID:   "5",
		ReporterID:  "7",
		AssigneeID:  "999",
		MilestoneID: "999",
		Priority:    "9",
		Title:       "Bug",
		Description: "It broke",
	})
	require.True(t, errs.HasErrors())
	assert.Equal(t, []string{"Assignee is not a valid choice"}, errs.Fields["assignee_id"])
	assert.Equal(t, []string{"Milestone is not a valid choice"}, errs.Fields["milestone_id"])
	assert.Equal(t, []string{"Priority is not a valid choice"}, errs.Fields["priority"])
}

func TestValidateDraftFormErrorsDominate(t *testing.T) {
	client := populatedFormClient()
	client.upcomingByProject = jsonResponse(http.StatusOK, `[]`)
	form, err := NewIssueForm(client, IssueFormParams{ProjectID: "5"})
	require.NoError(t, err)

	errs := ValidateDraft(form, &models.IssueDraft{})
	require.True(t, errs.HasErrors())
	assert.Empty(t, errs.Fields)
	require.Len(t, errs.Form, 1)
	assert.Contains(t, errs.Form[0], "no milestones found")
}
