package services

import (
	"encoding/json"
	"net/http"

	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"
)

// stubClient answers each accessor from a canned response, defaulting to an
// empty JSON array with status 200.
type stubClient struct {
	username    string
	instanceURL string

	projects          *models.TrackerResponse
	currentUser       *models.TrackerResponse
	projectUsers      *models.TrackerResponse
	upcomingByProject *models.TrackerResponse

	createIssueID  string
	createIssueErr error
	createdDrafts  []*models.IssueDraft
}

func jsonResponse(status int, body string) *models.TrackerResponse {
	return models.NewTrackerResponse(body, http.Header{}, status)
}

func typedResponse(v interface{}) *models.TrackerResponse {
	body, _ := json.Marshal(v)
	return jsonResponse(http.StatusOK, string(body))
}

func (s *stubClient) respond(r *models.TrackerResponse) *models.TrackerResponse {
	if r != nil {
		return r
	}
	return jsonResponse(http.StatusOK, "[]")
}

func (s *stubClient) Projects() *models.TrackerResponse    { return s.respond(s.projects) }
func (s *stubClient) CurrentUser() *models.TrackerResponse { return s.respond(s.currentUser) }
func (s *stubClient) Versions(projectID string) *models.TrackerResponse {
	return s.respond(nil)
}
func (s *stubClient) UsersForProject(projectID string) *models.TrackerResponse {
	return s.respond(s.projectUsers)
}
func (s *stubClient) AllUsers() *models.TrackerResponse { return s.respond(nil) }
func (s *stubClient) MilestonesForProject(projectID string) *models.TrackerResponse {
	return s.respond(nil)
}
func (s *stubClient) UpcomingMilestones() *models.TrackerResponse { return s.respond(nil) }
func (s *stubClient) UpcomingMilestonesForProject(projectID string) *models.TrackerResponse {
	return s.respond(s.upcomingByProject)
}
func (s *stubClient) AllMilestones() *models.TrackerResponse { return s.respond(nil) }
func (s *stubClient) InvolvementsForUser(userID string) *models.TrackerResponse {
	return s.respond(nil)
}
func (s *stubClient) Priorities() *models.TrackerResponse {
	return typedResponse(models.PriorityScale)
}

func (s *stubClient) CreateIssue(draft *models.IssueDraft) (string, error) {
	s.createdDrafts = append(s.createdDrafts, draft)
	if s.createIssueErr != nil {
		return "", s.createIssueErr
	}
	return s.createIssueID, nil
}

func (s *stubClient) Username() string    { return s.username }
func (s *stubClient) InstanceURL() string { return s.instanceURL }

var _ interfaces.TrackerClient = (*stubClient)(nil)

func stubFactory(client *stubClient) interfaces.ClientFactory {
	return func(cfg models.ClientConfig) interfaces.TrackerClient {
		client.instanceURL = cfg.InstanceURL
		client.username = cfg.Username
		return client
	}
}
