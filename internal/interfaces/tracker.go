package interfaces

import (
	"context"
	"time"

	"unfuddle-plugin/internal/models"
)

// TrackerClient is the facade over the Unfuddle REST API. Read accessors go
// through the TTL cache; CreateIssue always hits the tracker.
type TrackerClient interface {
	Projects() *models.TrackerResponse
	CurrentUser() *models.TrackerResponse
	Versions(projectID string) *models.TrackerResponse
	UsersForProject(projectID string) *models.TrackerResponse
	AllUsers() *models.TrackerResponse
	MilestonesForProject(projectID string) *models.TrackerResponse
	UpcomingMilestones() *models.TrackerResponse
	UpcomingMilestonesForProject(projectID string) *models.TrackerResponse
	AllMilestones() *models.TrackerResponse
	InvolvementsForUser(userID string) *models.TrackerResponse
	Priorities() *models.TrackerResponse

	// CreateIssue files the draft and returns the created ticket id. All
	// creation outcomes share this one contract; failures are *common.PluginError.
	CreateIssue(draft *models.IssueDraft) (string, error)

	Username() string
	InstanceURL() string
}

// ClientFactory builds a tracker client for one set of credentials.
type ClientFactory func(cfg models.ClientConfig) TrackerClient

// Cache is the injected key-value collaborator for cached reads. Get returns
// the stored response unchanged until the entry expires; Set is only called
// for status-200 responses.
type Cache interface {
	Get(key string) (*models.TrackerResponse, bool)
	Set(key string, resp *models.TrackerResponse, ttl time.Duration)
}

// OptionStore persists per-project plugin options.
type OptionStore interface {
	SaveOptions(projectKey string, opts *models.StoredOptions) error
	// LoadOptions returns (nil, nil) when the project has never been configured.
	LoadOptions(projectKey string) (*models.StoredOptions, error)
	DeleteOptions(projectKey string) error
	ListProjects() ([]string, error)
	Close() error
}

// IssuePlugin is the host-facing plugin contract.
type IssuePlugin interface {
	IsConfigured(projectKey string) bool
	Options(projectKey string) (*models.StoredOptions, error)
	SaveOptions(projectKey string, input models.OptionsInput) (*models.StoredOptions, *models.ConfigChoices, *models.FormErrors, error)
	DeleteOptions(projectKey string) error
	InitialFormData(projectKey string, event models.Event) (*models.IssueFormData, error)
	CreateIssue(projectKey string, draft *models.IssueDraft) (string, error)
	IssueURL(projectKey, issueID string) (string, error)
	IssueLabel(issueID string) string
}

// Events receives plugin activity notifications.
type Events interface {
	Publish(eventType string, data interface{})
}

type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}
