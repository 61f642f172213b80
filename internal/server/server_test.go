package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byAyes/wbot/internal/core/jobs"
	"github.com/byAyes/wbot/internal/core/media"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func do(t *testing.T, s *Server, method, path, key string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func finishedQueue(t *testing.T) (*jobs.Queue, string) {
	t.Helper()
	q := jobs.NewQueue(1, 10, func(ctx context.Context, req media.Request) error { return nil })
	q.Start()
	t.Cleanup(q.Stop)

	job, err := q.Add(context.Background(), media.NewRequest("https://youtu.be/abc", media.KindVideo, "chat:1", "m1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j := q.Get(job.ID)
		return j != nil && j.Status == jobs.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
	return q, job.ID
}

func TestHealth(t *testing.T) {
	s := NewServer(0, "", nil)

	code, body := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 200, body.Code)
	assert.Equal(t, "everything is good", body.Message)

	var data map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, data["version"])

	code, _ = do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestJobsRoutes(t *testing.T) {
	q, id := finishedQueue(t)
	s := NewServer(0, "", q)

	code, body := do(t, s, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1 jobs found", body.Message)

	code, body = do(t, s, http.MethodGet, "/api/jobs/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body.Message)

	code, body = do(t, s, http.MethodDelete, "/api/jobs/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "job removed", body.Message)

	code, body = do(t, s, http.MethodGet, "/api/jobs/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "job not found", body.Message)

	code, _ = do(t, s, http.MethodDelete, "/api/jobs/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	q := jobs.NewQueue(1, 10, func(ctx context.Context, req media.Request) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	q.Start()
	t.Cleanup(q.Stop)

	job, err := q.Add(context.Background(), media.NewRequest("song", media.KindAudio, "chat:1", "m2"))
	require.NoError(t, err)
	<-started

	s := NewServer(0, "", q)
	code, body := do(t, s, http.MethodDelete, "/api/jobs/"+job.ID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "job cancelled", body.Message)
	assert.Equal(t, jobs.StatusCancelled, q.Get(job.ID).Status)
}

func TestClearJobs(t *testing.T) {
	q, _ := finishedQueue(t)
	s := NewServer(0, "", q)

	code, body := do(t, s, http.MethodDelete, "/api/jobs", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1 jobs cleared", body.Message)
	assert.Empty(t, q.List())
}

func TestAPIKeyGuardsJobs(t *testing.T) {
	q, _ := finishedQueue(t)
	s := NewServer(0, "secret", q)

	code, body := do(t, s, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid or missing API key", body.Message)

	code, _ = do(t, s, http.MethodGet, "/api/jobs", "secret")
	assert.Equal(t, http.StatusOK, code)

	// health stays open for liveness probes
	code, _ = do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsAndNoRoute(t *testing.T) {
	s := NewServer(0, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	code, body := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not found", body.Message)
}

func TestStopBeforeStart(t *testing.T) {
	s := NewServer(0, "", nil)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStartAfterStopReturnsNil(t *testing.T) {
	s := NewServer(0, "", nil)
	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Start())
}
