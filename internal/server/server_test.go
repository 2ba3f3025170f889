package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/memory"
	"github.com/fyrsmithlabs/debugd/internal/server"
	"github.com/fyrsmithlabs/debugd/internal/team"
)

// fakeSolver returns a canned result and event stream.
type fakeSolver struct {
	result *team.RunResult
	solved chan string
}

func (f *fakeSolver) Solve(ctx context.Context, bugReport string, extra map[string]interface{}) *team.RunResult {
	if f.solved != nil {
		defer func() { f.solved <- bugReport }()
	}
	return f.result
}

func (f *fakeSolver) SolveStream(ctx context.Context, bugReport string, extra map[string]interface{}) <-chan team.Event {
	events := make(chan team.Event, 4)
	events <- team.Event{Type: team.EventTaskCreated, TaskID: f.result.TaskID}
	events <- team.Event{Type: team.EventTurn, TaskID: f.result.TaskID, Role: "planner", Round: 1}
	events <- team.Event{Type: team.EventTaskCompleted, TaskID: f.result.TaskID, Result: f.result}
	close(events)
	return events
}

func (f *fakeSolver) Status() team.Status {
	return team.Status{CoordinationMode: config.ModeHandoff, MaxRounds: 20}
}

func newTestServer(t *testing.T, solver server.Solver) *server.Server {
	t.Helper()
	bridge := memory.NewBridge(config.MemoryConfig{Enabled: false, Collection: "c"}, nil, zap.NewNop())
	srv, err := server.NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, solver, bridge, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func successResult() *team.RunResult {
	return &team.RunResult{
		TaskID:     "task-1",
		Success:    true,
		StopReason: team.StopTaskComplete,
	}
}

func TestNewServer_RequiresSolverAndLogger(t *testing.T) {
	_, err := server.NewServer(config.ServerConfig{}, nil, nil, zap.NewNop())
	require.Error(t, err)

	_, err = server.NewServer(config.ServerConfig{}, &fakeSolver{result: successResult()}, nil, nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestSolve_Accepted(t *testing.T) {
	solver := &fakeSolver{result: successResult(), solved: make(chan string, 1)}
	srv := newTestServer(t, solver)

	body := strings.NewReader(`{"bug_report": "panic on nil map write"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", body)
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp server.SolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, server.StatusPending, resp.Status)

	// the background run completes and the task becomes retrievable
	select {
	case got := <-solver.solved:
		assert.Equal(t, "panic on nil map write", got)
	case <-time.After(2 * time.Second):
		t.Fatal("solver was never invoked")
	}
}

const echoContentType = "Content-Type"

func TestSolve_BadRequest(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"bug_report": `},
		{"missing bug report", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", strings.NewReader(tt.body))
			req.Header.Set(echoContentType, "application/json")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetTask_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSolveStream_EmitsSSE(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	body := strings.NewReader(`{"bug_report": "bug"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve/stream", body)
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echoContentType))

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 3)
	for _, frame := range frames {
		assert.True(t, strings.HasPrefix(frame, "data: "))
	}
	var first team.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first))
	assert.Equal(t, team.EventTaskCreated, first.Type)
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp server.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, config.ModeHandoff, resp.Team.CoordinationMode)
	assert.Equal(t, "disabled", resp.Memory.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSolver{result: successResult()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
