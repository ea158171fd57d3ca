package services

import (
	"fmt"
	"strings"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	"github.com/ternarybob/arbor"
)

// Plugin binds stored per-project options to tracker clients and exposes the
// host-facing lifecycle: configuration checks, form data, issue creation and
// issue link formatting.
type Plugin struct {
	config  *common.Config
	store   interfaces.OptionStore
	cache   interfaces.Cache
	clients interfaces.ClientFactory
	form    *ConfigForm
	events  interfaces.Events
	logger  arbor.ILogger
}

func NewPlugin(config *common.Config, store interfaces.OptionStore, cache interfaces.Cache, logger arbor.ILogger) *Plugin {
	p := &Plugin{
		config: config,
		store:  store,
		cache:  cache,
		logger: logger,
	}
	p.clients = func(cfg models.ClientConfig) interfaces.TrackerClient {
		cfg.Timeout = time.Duration(config.Tracker.TimeoutSeconds) * time.Second
		cfg.InsecureSkipVerify = config.Tracker.InsecureSkipVerify
		return NewTrackerClient(cfg, cache, time.Duration(config.Cache.TTLSeconds)*time.Second, logger)
	}
	p.form = NewConfigForm(p.clients, logger)
	return p
}

// SetEvents wires the activity stream. Safe to leave unset.
func (p *Plugin) SetEvents(events interfaces.Events) {
	p.events = events
}

func (p *Plugin) publish(eventType string, data interface{}) {
	if p.events != nil {
		p.events.Publish(eventType, data)
	}
}

func (p *Plugin) clientFor(opts *models.StoredOptions) interfaces.TrackerClient {
	return p.clients(models.ClientConfig{
		InstanceURL: opts.InstanceURL,
		Username:    opts.Username,
		Password:    opts.Password,
	})
}

// IsConfigured reports whether a default project has been linked.
func (p *Plugin) IsConfigured(projectKey string) bool {
	opts, err := p.store.LoadOptions(projectKey)
	if err != nil {
		p.logger.Warn().Err(err).Str("project", projectKey).Msg("Failed to load plugin options")
		return false
	}
	return opts.Configured()
}

// Options returns the stored configuration for a project, or a storage error.
func (p *Plugin) Options(projectKey string) (*models.StoredOptions, error) {
	opts, err := p.store.LoadOptions(projectKey)
	if err != nil {
		return nil, common.NewStorageError("load_failed", "failed to load plugin options").WithCause(err)
	}
	return opts, nil
}

// SaveOptions validates submitted credentials with a live probe, persists
// them on success and returns the dynamic project choices for the form.
// Validation failures come back as FormErrors, not as an error.
func (p *Plugin) SaveOptions(projectKey string, input models.OptionsInput) (*models.StoredOptions, *models.ConfigChoices, *models.FormErrors, error) {
	stored, err := p.store.LoadOptions(projectKey)
	if err != nil {
		return nil, nil, nil, common.NewStorageError("load_failed", "failed to load plugin options").WithCause(err)
	}

	opts, formErrs := p.form.Validate(input, stored)
	if formErrs.HasErrors() {
		return nil, nil, formErrs, nil
	}

	choices, err := p.form.Choices(p.clientFor(opts))
	if err != nil {
		return nil, nil, nil, err
	}

	// Without a visible project the configuration cannot be completed;
	// nothing is persisted in degraded mode.
	if choices.Degraded() {
		errs := models.NewFormErrors()
		errs.AddForm("No Unfuddle projects are visible to this account")
		return nil, choices, errs, nil
	}

	if opts.DefaultProjectID != "" && !models.ChoiceIDs(choices.Projects)[opts.DefaultProjectID] {
		errs := models.NewFormErrors()
		errs.AddField("default_project_id", "Linked project is not a valid choice")
		return nil, choices, errs, nil
	}

	if err := p.store.SaveOptions(projectKey, opts); err != nil {
		return nil, nil, nil, common.NewStorageError("save_failed", "failed to save plugin options").WithCause(err)
	}

	p.logger.Info().Str("project", projectKey).Str("instance", opts.InstanceURL).Msg("Plugin options saved")
	p.publish("options_saved", map[string]string{"project": projectKey, "instance": opts.InstanceURL})

	return opts, choices, nil, nil
}

func (p *Plugin) DeleteOptions(projectKey string) error {
	if err := p.store.DeleteOptions(projectKey); err != nil {
		return common.NewStorageError("delete_failed", "failed to delete plugin options").WithCause(err)
	}
	return nil
}

// InitialFormData assembles the issue-creation form for an error event:
// prefilled title and description, the linked project, and the fetched choice
// lists.
func (p *Plugin) InitialFormData(projectKey string, event models.Event) (*models.IssueFormData, error) {
	opts, err := p.optionsOrError(projectKey)
	if err != nil {
		return nil, err
	}

	form, err := NewIssueForm(p.clientFor(opts), IssueFormParams{
		ProjectID:         opts.DefaultProjectID,
		DefaultReporterID: opts.DefaultReporterID,
		CurrentUserEmail:  event.UserEmail,
		Title:             event.Title,
		Description:       eventDescription(event),
	})
	if err != nil {
		return nil, err
	}
	return form, nil
}

// CreateIssue validates the draft against freshly fetched choices (fresh
// within the cache TTL) and files it with the tracker.
func (p *Plugin) CreateIssue(projectKey string, draft *models.IssueDraft) (string, error) {
	opts, err := p.optionsOrError(projectKey)
	if err != nil {
		return "", err
	}

	if draft.ProjectID == "" {
		draft.ProjectID = opts.DefaultProjectID
	}
	if draft.ReporterID == "" {
		draft.ReporterID = opts.DefaultReporterID
	}

	client := p.clientFor(opts)

	form, err := NewIssueForm(client, IssueFormParams{
		ProjectID:         draft.ProjectID,
		DefaultReporterID: opts.DefaultReporterID,
	})
	if err != nil {
		return "", err
	}
	if errs := ValidateDraft(form, draft); errs.HasErrors() {
		messages := append([]string{}, errs.Form...)
		for field, fieldErrs := range errs.Fields {
			for _, msg := range fieldErrs {
				messages = append(messages, field+": "+msg)
			}
		}
		if form.Errors.HasErrors() {
			return "", common.NewDomainStateError("no_milestones", strings.Join(messages, "\n"))
		}
		return "", common.NewValidationError("invalid_draft", strings.Join(messages, "\n"))
	}

	issueID, err := client.CreateIssue(draft)
	if err != nil {
		p.logger.Warn().Err(err).Str("project", projectKey).Msg("Issue creation failed")
		return "", err
	}

	p.logger.Info().
		Str("project", projectKey).
		Str("issue_id", issueID).
		Msg("Issue created in tracker")
	p.publish("issue_created", map[string]string{
		"project":  projectKey,
		"issue_id": issueID,
		"url":      issueURL(opts, issueID),
	})

	return issueID, nil
}

// IssueURL renders the tracker-side link for a created issue.
func (p *Plugin) IssueURL(projectKey, issueID string) (string, error) {
	opts, err := p.optionsOrError(projectKey)
	if err != nil {
		return "", err
	}
	return issueURL(opts, issueID), nil
}

// IssueLabel renders the short reference the host shows next to a group.
func (p *Plugin) IssueLabel(issueID string) string {
	return fmt.Sprintf("Unfuddle #%s", issueID)
}

func (p *Plugin) optionsOrError(projectKey string) (*models.StoredOptions, error) {
	opts, err := p.Options(projectKey)
	if err != nil {
		return nil, err
	}
	if !opts.Configured() {
		return nil, common.NewConfigurationError("not_configured",
			fmt.Sprintf("project %s has no linked tracker project", projectKey))
	}
	return opts, nil
}

func issueURL(opts *models.StoredOptions, issueID string) string {
	return fmt.Sprintf("%s/a#/projects/%s/tickets/%s", opts.InstanceURL, opts.DefaultProjectID, issueID)
}

// eventDescription renders the host event as the ticket body: the event link
// first, then the message indented as a code block.
func eventDescription(event models.Event) string {
	out := []string{event.URL}
	if event.Message != "" {
		out = append(out, "", "    "+strings.ReplaceAll(event.Message, "\n", "\n    "))
	}
	return strings.Join(out, "\n")
}

var _ interfaces.IssuePlugin = (*Plugin)(nil)
