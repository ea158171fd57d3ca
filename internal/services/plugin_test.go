package services

import (
	"net/http"
	"path/filepath"
	"testing"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// recordingEvents captures published plugin activity.
type recordingEvents struct {
	types []string
	data  []interface{}
}

func (r *recordingEvents) Publish(eventType string, data interface{}) {
	r.types = append(r.types, eventType)
	r.data = append(r.data, data)
}

func testPlugin(t *testing.T, client *stubClient) *Plugin {
	t.Helper()

	store, err := NewOptionStore(&common.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "plugin.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &common.Config{}
	cfg.Tracker.TimeoutSeconds = 5
	cfg.Cache.TTLSeconds = 60

	p := NewPlugin(cfg, store, NewMemoryCache(), arbor.NewLogger())
	p.clients = stubFactory(client)
	p.form = NewConfigForm(p.clients, arbor.NewLogger())
	return p
}

func configuredPlugin(t *testing.T, client *stubClient) *Plugin {
	t.Helper()
	p := testPlugin(t, client)
	require.NoError(t, p.store.SaveOptions("WEB", sampleOptions()))
	return p
}

func TestPluginIsConfigured(t *testing.T) {
	p := testPlugin(t, &stubClient{})
	assert.False(t, p.IsConfigured("WEB"))

	require.NoError(t, p.store.SaveOptions("WEB", sampleOptions()))
	assert.True(t, p.IsConfigured("WEB"))

	// Saved options without a linked project do not count as configured.
	partial := sampleOptions()
	partial.DefaultProjectID = ""
	require.NoError(t, p.store.SaveOptions("API", partial))
	assert.False(t, p.IsConfigured("API"))
}

func TestPluginSaveOptions(t *testing.T) {
	client := &stubClient{
		currentUser: jsonResponse(http.StatusOK, `{"id":7}`),
		projects:    jsonResponse(http.StatusOK, `[{"id":5,"title":"Web"}]`),
	}
	p := testPlugin(t, client)
	events := &recordingEvents{}
	p.SetEvents(events)

	opts, choices, errs, err := p.SaveOptions("WEB", models.OptionsInput{
		InstanceURL:      "https://example.unfuddle.com",
		Username:         "rick",
		Password:         "secret",
		DefaultProjectID: "5",
	})
	require.NoError(t, err)
	require.Nil(t, errs)
	require.NotNil(t, opts)
	require.Len(t, choices.Projects, 1)
	assert.Equal(t, "7", opts.DefaultReporterID)

	loaded, err := p.store.LoadOptions("WEB")
	require.NoError(t, err)
	assert.Equal(t, "5", loaded.DefaultProjectID)

	assert.Equal(t, []string{"options_saved"}, events.types)
}

func TestPluginSaveOptionsRejectedCredentials(t *testing.T) {
	client := &stubClient{currentUser: jsonResponse(http.StatusUnauthorized, "")}
	p := testPlugin(t, client)

	opts, _, errs, err := p.SaveOptions("WEB", models.OptionsInput{
		InstanceURL: "https://example.unfuddle.com",
		Username:    "rick",
		Password:    "wrong",
	})
	require.NoError(t, err)
	require.Nil(t, opts)
	require.True(t, errs.HasErrors())

	loaded, err := p.store.LoadOptions("WEB")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPluginSaveOptionsDegraded(t *testing.T) {
	client := &stubClient{
		currentUser: jsonResponse(http.StatusOK, `{"id":7}`),
		projects:    jsonResponse(http.StatusOK, `[]`),
	}
	p := testPlugin(t, client)

	opts, choices, errs, err := p.SaveOptions("WEB", models.OptionsInput{
		InstanceURL: "https://example.unfuddle.com",
		Username:    "rick",
		Password:    "secret",
	})
	require.NoError(t, err)
	require.Nil(t, opts)
	assert.True(t, choices.Degraded())
	require.True(t, errs.HasErrors())
	assert.Equal(t, []string{"No Unfuddle projects are visible to this account"}, errs.Form)
}

func TestPluginSaveOptionsUnknownLinkedProject(t *testing.T) {
	client := &stubClient{
		currentUser: jsonResponse(http.StatusOK, `{"id":7}`),
		projects:    jsonResponse(http.StatusOK, `[{"id":5,"title":"Web"}]`),
	}
	p := testPlugin(t, client)

	opts, _, errs, err := p.SaveOptions("WEB", models.OptionsInput{
		InstanceURL:      "https://example.unfuddle.com",
		Username:         "rick",
		Password:         "secret",
		DefaultProjectID: "999",
	})
	require.NoError(t, err)
	require.Nil(t, opts)
	require.True(t, errs.HasErrors())
	assert.Contains(t, errs.Fields, "default_project_id")
}

func TestPluginDeleteOptions(t *testing.T) {
	p := configuredPlugin(t, &stubClient{})
	require.NoError(t, p.DeleteOptions("WEB"))
	assert.False(t, p.IsConfigured("WEB"))
}

func TestPluginInitialFormData(t *testing.T) {
	p := configuredPlugin(t, populatedFormClient())

	form, err := p.InitialFormData("WEB", models.Event{
		Title:     "NullPointerException",
		Message:   "boom\ntraceback",
		URL:       "https://host.example.com/events/1/",
		UserEmail: "roy@example.com",
	})
	require.NoError(t, err)
	require.True(t, form.Submittable())

	assert.Equal(t, "5", form.ProjectID)
	assert.Equal(t, "NullPointerException", form.Title)
	assert.Equal(t, "https://host.example.com/events/1/\n\n    boom\n    traceback", form.Description)
	// Email match wins over the stored default reporter.
	assert.Equal(t, "8", form.ReporterID)
}

func TestPluginInitialFormDataNotConfigured(t *testing.T) {
	p := testPlugin(t, &stubClient{})

	_, err := p.InitialFormData("WEB", models.Event{})
	require.Error(t, err)
	perr, ok := common.AsPluginError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrorTypeConfiguration, perr.Type)
}

func TestPluginCreateIssue(t *testing.T) {
	client := populatedFormClient()
	client.createIssueID = "42"
	p := configuredPlugin(t, client)
	events := &recordingEvents{}
	p.SetEvents(events)

	id, err := p.CreateIssue("WEB", &models.IssueDraft{
		AssigneeID:  "8",
		MilestoneID: "9",
		Priority:    "4",
		Title:       "Bug",
		Description: "It broke",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	// Defaults from the stored options are applied before submission.
	require.Len(t, client.createdDrafts, 1)
	assert.Equal(t, "5", client.createdDrafts[0].ProjectID)
	assert.Equal(t, "7", client.createdDrafts[0].ReporterID)

	assert.Equal(t, []string{"issue_created"}, events.types)
}

func TestPluginCreateIssueInvalidDraft(t *testing.T) {
	p := configuredPlugin(t, populatedFormClient())

	_, err := p.CreateIssue("WEB", &models.IssueDraft{Title: "Bug"})
	require.Error(t, err)
	perr, ok := common.AsPluginError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrorTypeValidation, perr.Type)
	assert.Contains(t, perr.Message, "description: Description is required")
}

func TestPluginCreateIssueNoMilestones(t *testing.T) {
	client := populatedFormClient()
	client.upcomingByProject = jsonResponse(http.StatusOK, `[]`)
	p := configuredPlugin(t, client)

	_, err := p.CreateIssue("WEB", &models.IssueDraft{
		AssigneeID:  "8",
		MilestoneID: "9",
		Priority:    "4",
		Title:       "Bug",
		Description: "It broke",
	})
	require.Error(t, err)
	perr, ok := common.AsPluginError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrorTypeDomainState, perr.Type)
	assert.Contains(t, perr.Message, "no milestones found")
	assert.Empty(t, client.createdDrafts)
}

func TestPluginIssueURL(t *testing.T) {
	p := configuredPlugin(t, &stubClient{})

	url, err := p.IssueURL("WEB", "42")
	require.NoError(t, err)
	assert.Equal(t, "https://example.unfuddle.com/a#/projects/5/tickets/42", url)
}

func TestPluginIssueLabel(t *testing.T) {
	p := testPlugin(t, &stubClient{})
	assert.Equal(t, "Unfuddle #42", p.IssueLabel("42"))
}
