package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/qruntime/internal/api"
	"github.com/kiranshivaraju/qruntime/internal/api/handler"
	"github.com/kiranshivaraju/qruntime/internal/backend"
	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/internal/gateway/mock"
	"github.com/kiranshivaraju/qruntime/internal/store"
	"github.com/kiranshivaraju/qruntime/pkg/models"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  http.Handler
	engine  *engine.Engine
	journal *store.MemoryStore
}

func newTestServer(t *testing.T, exec models.Executor) *testServer {
	t.Helper()
	if exec == nil {
		exec = mock.NewMockExecutor()
	}
	catalog := backend.Builtin()
	journal := store.NewMemoryStore()
	e := engine.New(engine.Options{
		Executor: exec,
		Backends: catalog,
		Programs: []string{"sampler", "estimator"},
		Journal:  journal,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, e.Stop(ctx))
	})

	router := api.NewRouter(api.Dependencies{
		CreateSession: handler.NewCreateSessionHandler(e.Sessions),
		ListSessions:  handler.NewListSessionsHandler(e.Sessions),
		GetSession:    handler.NewGetSessionHandler(e.Sessions),
		UpdateSession: handler.NewUpdateSessionHandler(e.Sessions),
		CancelSession: handler.NewCancelSessionHandler(e.Sessions),
		SessionJobs:   handler.NewSessionJobsHandler(e.Sessions, e.Jobs),
		SessionEvents: handler.NewSessionEventsHandler(e.Sessions, journal),
		CreateJob:     handler.NewCreateJobHandler(e.Jobs),
		ListJobs:      handler.NewListJobsHandler(e.Jobs),
		GetJob:        handler.NewGetJobHandler(e.Jobs),
		CancelJob:     handler.NewCancelJobHandler(e.Jobs),
		JobResults:    handler.NewJobResultsHandler(e.Jobs),
		JobEvents:     handler.NewJobEventsHandler(e.Jobs, journal),
		ListBackends:  handler.NewListBackendsHandler(catalog),
		GetBackend:    handler.NewGetBackendHandler(catalog),
	})
	return &testServer{router: router, engine: e, journal: journal}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeMeta(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Meta
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func (s *testServer) createSession(t *testing.T, mode string) string {
	t.Helper()
	w := s.do(t, "POST", "/v1/sessions", map[string]any{"mode": mode, "backend": "fake_lima"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &sess)
	return sess.ID
}

func (s *testServer) createJob(t *testing.T, sessionID string) string {
	t.Helper()
	w := s.do(t, "POST", "/v1/jobs", map[string]any{
		"program_id": "sampler",
		"backend":    "fake_lima",
		"params":     map[string]any{"shots": 100},
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var job struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &job)
	return job.ID
}

func (s *testServer) waitTerminal(t *testing.T, jobID string) *models.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	j, err := s.engine.Jobs.Wait(ctx, jobID)
	require.NoError(t, err)
	return j
}

func newGated() *mock.GatedExecutor {
	return mock.NewGatedExecutor()
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
