package services

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testClient(t *testing.T, srv *httptest.Server, cache interfaces.Cache) interfaces.TrackerClient {
	t.Helper()
	return NewTrackerClient(models.ClientConfig{
		InstanceURL: srv.URL,
		Username:    "rick",
		Password:    "secret",
	}, cache, time.Minute, arbor.NewLogger())
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	client := NewTrackerClient(models.ClientConfig{
		InstanceURL: "https://example.unfuddle.com/",
	}, NewMemoryCache(), 0, arbor.NewLogger())

	assert.Equal(t, "https://example.unfuddle.com", client.InstanceURL())
}

func TestClientCachedReadHitsUpstreamOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"id":5,"title":"Web"}]`))
	}))
	defer srv.Close()

	client := testClient(t, srv, NewMemoryCache())

	first := client.Projects()
	second := client.Projects()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.Body, second.Body)
}

func TestClientNon200NeverCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := testClient(t, srv, NewMemoryCache())

	client.CurrentUser()
	client.CurrentUser()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientExpiredEntryRefetched(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cache := NewMemoryCache()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	client := testClient(t, srv, cache)

	client.AllUsers()
	clock = clock.Add(2 * time.Minute)
	client.AllUsers()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientDistinctPathsDistinctEntries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := testClient(t, srv, NewMemoryCache())

	client.MilestonesForProject("5")
	client.UpcomingMilestonesForProject("5")
	client.MilestonesForProject("5")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientPrioritiesAreLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("priorities must not reach the tracker")
	}))
	defer srv.Close()

	resp := testClient(t, srv, NewMemoryCache()).Priorities()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var priorities []models.Priority
	require.NoError(t, resp.DecodeInto(&priorities))
	require.Len(t, priorities, 5)
	assert.Equal(t, "Lowest", priorities[0].Name)
	assert.Equal(t, "Highest", priorities[4].Name)
}

func newDraft() *models.IssueDraft {
	return &models.IssueDraft{
		ProjectID:   "5",
		ReporterID:  "7",
		AssigneeID:  "8",
		MilestoneID: "9",
		Priority:    "4",
		Title:       "Bug",
		Description: "It broke",
	}
}

func TestCreateIssueFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/5/tickets", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"id":42,"summary":"Bug"}`))
	}))
	defer srv.Close()

	id, err := testClient(t, srv, NewMemoryCache()).CreateIssue(newDraft())
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestCreateIssueFromLocationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://example.unfuddle.com/api/v1/projects/5/tickets/42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	id, err := testClient(t, srv, NewMemoryCache()).CreateIssue(newDraft())
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestCreateIssueRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`["Summary can't be blank","Milestone is missing"]`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv, NewMemoryCache()).CreateIssue(newDraft())
	require.Error(t, err)

	perr, ok := common.AsPluginError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrorTypeCreation, perr.Type)
	assert.Equal(t, "Summary can't be blank\nMilestone is missing", perr.Message)
}

func TestCreateIssueTrackerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, NewMemoryCache()).CreateIssue(newDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unfuddle internal server error")
}

func TestCreateIssueUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, NewMemoryCache()).CreateIssue(newDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sounds like a configuration issue")
	assert.Contains(t, err.Error(), "502")
}

func TestCreateIssueNeverCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	client := testClient(t, srv, NewMemoryCache())
	_, err := client.CreateIssue(newDraft())
	require.NoError(t, err)
	_, err = client.CreateIssue(newDraft())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
