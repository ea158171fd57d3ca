package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	"github.com/ternarybob/arbor"
)

// APIHandlers contains all API endpoint handlers
type APIHandlers struct {
	config    *common.Config
	plugin    interfaces.IssuePlugin
	store     interfaces.OptionStore
	logger    arbor.ILogger
	startTime time.Time
	hub       *EventHub
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Services  struct {
		Database bool `json:"database"`
	} `json:"services"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// StatusResponse represents the plugin status response
type StatusResponse struct {
	Uptime     float64         `json:"uptime_seconds"`
	Projects   []ProjectStatus `json:"projects"`
	Configured int             `json:"configured_count"`
}

// ProjectStatus is the per-project configuration summary
type ProjectStatus struct {
	Key        string `json:"key"`
	Configured bool   `json:"configured"`
	Instance   string `json:"instance,omitempty"`
}

// OptionsResponse carries stored options with the password withheld
type OptionsResponse struct {
	InstanceURL       string `json:"instance_url"`
	Username          string `json:"username"`
	HasPassword       bool   `json:"has_password"`
	DefaultProjectID  string `json:"default_project_id"`
	DefaultReporterID string `json:"default_reporter_id"`
}

// SaveOptionsResponse is returned on a successful configuration save
type SaveOptionsResponse struct {
	Options *OptionsResponse      `json:"options"`
	Choices *models.ConfigChoices `json:"choices"`
}

// CreateIssueResponse is returned when a ticket is filed
type CreateIssueResponse struct {
	IssueID string `json:"issue_id"`
	URL     string `json:"url"`
	Label   string `json:"label"`
}

// ErrorResponse wraps validation and plugin errors for the host
type ErrorResponse struct {
	Error  string             `json:"error,omitempty"`
	Type   string             `json:"type,omitempty"`
	Errors *models.FormErrors `json:"errors,omitempty"`
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(config *common.Config, plugin interfaces.IssuePlugin, store interfaces.OptionStore, logger arbor.ILogger, hub *EventHub) *APIHandlers {
	return &APIHandlers{
		config:    config,
		plugin:    plugin,
		store:     store,
		logger:    logger,
		startTime: time.Now(),
		hub:       hub,
	}
}

func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps a plugin error onto an HTTP status and JSON body.
func (h *APIHandlers) writeError(w http.ResponseWriter, err error) {
	if pluginErr, ok := common.AsPluginError(err); ok {
		h.writeJSON(w, pluginErr.HTTPStatus(), ErrorResponse{
			Error: pluginErr.Message,
			Type:  string(pluginErr.Type),
		})
		return
	}
	h.logger.Error().Err(err).Msg("Unhandled error")
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// HealthHandler returns system health status
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	health.Services.Database = h.testDatabaseConnection()
	if !health.Services.Database {
		health.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, health)
}

func (h *APIHandlers) testDatabaseConnection() bool {
	_, err := h.store.ListProjects()
	return err == nil
}

// VersionHandler returns version information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, VersionResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Commit:  common.GetGitCommit(),
	})
}

// StatusHandler returns the per-project configuration summary
func (h *APIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{
		Uptime:   time.Since(h.startTime).Seconds(),
		Projects: make([]ProjectStatus, 0),
	}

	projects, err := h.store.ListProjects()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to list projects for status")
	}

	for _, key := range projects {
		ps := ProjectStatus{Key: key, Configured: h.plugin.IsConfigured(key)}
		if opts, err := h.plugin.Options(key); err == nil && opts != nil {
			ps.Instance = opts.InstanceURL
		}
		if ps.Configured {
			status.Configured++
		}
		status.Projects = append(status.Projects, ps)
	}

	h.writeJSON(w, http.StatusOK, status)
}

// OptionsHandler returns stored options for a project, password withheld
func (h *APIHandlers) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")

	opts, err := h.plugin.Options(projectKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if opts == nil {
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "project is not configured"})
		return
	}

	h.writeJSON(w, http.StatusOK, sanitizeOptions(opts))
}

// SaveOptionsHandler validates and persists submitted tracker credentials
func (h *APIHandlers) SaveOptionsHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")

	var input models.OptionsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	opts, choices, formErrs, err := h.plugin.SaveOptions(projectKey, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if formErrs.HasErrors() {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: formErrs})
		return
	}

	h.writeJSON(w, http.StatusOK, SaveOptionsResponse{
		Options: sanitizeOptions(opts),
		Choices: choices,
	})
}

// DeleteOptionsHandler removes a project's stored options
func (h *APIHandlers) DeleteOptionsHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")

	if err := h.plugin.DeleteOptions(projectKey); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IssueFormHandler returns the populated issue-creation form for an event
func (h *APIHandlers) IssueFormHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	form, err := h.plugin.InitialFormData(projectKey, event)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, form)
}

// CreateIssueHandler files a ticket in the tracker for a submitted draft
func (h *APIHandlers) CreateIssueHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")

	var draft models.IssueDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	issueID, err := h.plugin.CreateIssue(projectKey, &draft)
	if err != nil {
		h.writeError(w, err)
		return
	}

	url, err := h.plugin.IssueURL(projectKey, issueID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, CreateIssueResponse{
		IssueID: issueID,
		URL:     url,
		Label:   h.plugin.IssueLabel(issueID),
	})
}

// IssueLinkHandler returns the tracker URL and label for an existing issue
func (h *APIHandlers) IssueLinkHandler(w http.ResponseWriter, r *http.Request) {
	projectKey := r.PathValue("key")
	issueID := r.PathValue("id")

	url, err := h.plugin.IssueURL(projectKey, issueID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"url":   url,
		"label": h.plugin.IssueLabel(issueID),
	})
}

func sanitizeOptions(opts *models.StoredOptions) *OptionsResponse {
	return &OptionsResponse{
		InstanceURL:       opts.InstanceURL,
		Username:          opts.Username,
		HasPassword:       opts.Password != "",
		DefaultProjectID:  opts.DefaultProjectID,
		DefaultReporterID: opts.DefaultReporterID,
	}
}
