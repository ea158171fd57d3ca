package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	"github.com/ternarybob/arbor"
)

// Tracker REST paths, relative to the instance URL.
const (
	projectsPath                  = "/api/v1/projects"
	createTicketPath              = "/api/v1/projects/%s/tickets"
	projectVersionsPath           = "/api/v1/projects/%s/versions"
	projectPeoplePath             = "/api/v1/projects/%s/people"
	currentPersonPath             = "/api/v1/people/current"
	allPeoplePath                 = "/api/v1/people"
	personInvolvementsPath        = "/api/v1/people/%s/involvements"
	projectMilestonesPath         = "/api/v1/projects/%s/milestones"
	upcomingMilestonesPath        = "/api/v1/milestones/upcoming"
	upcomingProjectMilestonesPath = "/api/v1/projects/%s/milestones/upcoming"
	allMilestonesPath             = "/api/v1/milestones"
)

const defaultCacheTTL = 60 * time.Second

type trackerClient struct {
	config    models.ClientConfig
	transport *transport
	cache     interfaces.Cache
	ttl       time.Duration
	logger    arbor.ILogger
}

// NewTrackerClient builds the tracker facade for one set of credentials. All
// read accessors go through the injected cache with a fixed TTL.
func NewTrackerClient(cfg models.ClientConfig, cache interfaces.Cache, ttl time.Duration, logger arbor.ILogger) interfaces.TrackerClient {
	cfg.InstanceURL = strings.TrimSuffix(cfg.InstanceURL, "/")
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &trackerClient{
		config:    cfg,
		transport: newTransport(cfg, logger),
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *trackerClient) Username() string {
	return c.config.Username
}

func (c *trackerClient) InstanceURL() string {
	return c.config.InstanceURL
}

// cachedGet is the read-through cache: hits return the stored response
// unchanged, misses go to the tracker, and only status-200 results are
// stored. Non-200 responses always bypass the cache so transient errors are
// never pinned for the TTL window.
func (c *trackerClient) cachedGet(path string) *models.TrackerResponse {
	key := cacheKey(path, c.config.InstanceURL)
	if resp, ok := c.cache.Get(key); ok {
		return resp
	}

	resp := c.transport.Get(path, nil)
	if resp.StatusCode == http.StatusOK {
		c.cache.Set(key, resp, c.ttl)
	}
	return resp
}

func (c *trackerClient) Projects() *models.TrackerResponse {
	return c.cachedGet(projectsPath)
}

func (c *trackerClient) CurrentUser() *models.TrackerResponse {
	return c.cachedGet(currentPersonPath)
}

func (c *trackerClient) Versions(projectID string) *models.TrackerResponse {
	return c.cachedGet(fmt.Sprintf(projectVersionsPath, projectID))
}

func (c *trackerClient) UsersForProject(projectID string) *models.TrackerResponse {
	return c.cachedGet(fmt.Sprintf(projectPeoplePath, projectID))
}

func (c *trackerClient) AllUsers() *models.TrackerResponse {
	return c.cachedGet(allPeoplePath)
}

func (c *trackerClient) MilestonesForProject(projectID string) *models.TrackerResponse {
	return c.cachedGet(fmt.Sprintf(projectMilestonesPath, projectID))
}

func (c *trackerClient) UpcomingMilestones() *models.TrackerResponse {
	return c.cachedGet(upcomingMilestonesPath)
}

func (c *trackerClient) UpcomingMilestonesForProject(projectID string) *models.TrackerResponse {
	return c.cachedGet(fmt.Sprintf(upcomingProjectMilestonesPath, projectID))
}

func (c *trackerClient) AllMilestones() *models.TrackerResponse {
	return c.cachedGet(allMilestonesPath)
}

func (c *trackerClient) InvolvementsForUser(userID string) *models.TrackerResponse {
	return c.cachedGet(fmt.Sprintf(personInvolvementsPath, userID))
}

// Priorities synthesizes the fixed priority scale locally; the tracker has no
// endpoint for it.
func (c *trackerClient) Priorities() *models.TrackerResponse {
	body, _ := json.Marshal(models.PriorityScale)
	return models.NewTrackerResponse(string(body), http.Header{}, http.StatusOK)
}

// CreateIssue maps the draft into the tracker's ticket schema and POSTs it
// uncached. Every outcome resolves to one contract: the created ticket id on
// success, a *common.PluginError otherwise.
func (c *trackerClient) CreateIssue(draft *models.IssueDraft) (string, error) {
	ticket := models.TicketFields(draft.FormFields())
	resp := c.transport.Post(fmt.Sprintf(createTicketPath, draft.ProjectID), ticket)

	switch resp.StatusCode {
	case http.StatusOK:
		// Body carries the created ticket.
		obj := resp.Object()
		if obj == nil {
			return "", common.NewCreationError("bad_body", "tracker returned success without a readable ticket")
		}
		id := obj.GetString("id")
		if id == "" {
			return "", common.NewCreationError("missing_id", "tracker returned a ticket without an id")
		}
		return id, nil

	case http.StatusCreated:
		// Created resource location is in a header; the id is the last
		// path segment.
		location := resp.Header.Get("Location")
		id := location[strings.LastIndex(location, "/")+1:]
		if id == "" {
			return "", common.NewCreationError("missing_location", "tracker created the ticket but gave no location")
		}
		return id, nil

	case http.StatusBadRequest:
		// The tracker reports its own validation messages as a JSON array.
		messages := resp.Strings()
		if len(messages) == 0 {
			messages = []string{"The tracker rejected the ticket"}
		}
		return "", common.NewCreationError("rejected", strings.Join(messages, "\n"))

	case http.StatusInternalServerError:
		return "", common.NewCreationError("tracker_error", "Unfuddle internal server error")

	default:
		return "", common.NewCreationError("unexpected_status",
			fmt.Sprintf("Something went wrong, sounds like a configuration issue: code %d", resp.StatusCode)).
			WithContext("status_code", resp.StatusCode)
	}
}
