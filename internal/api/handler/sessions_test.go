package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "POST", "/v1/sessions", map[string]any{
		"mode":     "batch",
		"backend":  "fake_lima",
		"instance": "hub/group/project",
		"max_ttl":  300,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got map[string]any
	decodeData(t, w, &got)
	assert.Contains(t, got["id"], "session-")
	assert.Equal(t, "batch", got["mode"])
	assert.Equal(t, "fake_lima", got["backend"])
	assert.Equal(t, "hub/group/project", got["instance"])
	assert.Equal(t, float64(300), got["max_ttl"])
	assert.Equal(t, true, got["accepting_jobs"])
	assert.Equal(t, true, got["active"])
	assert.Equal(t, []any{}, got["jobs"])
	assert.Contains(t, got, "elapsed_time")
	assert.LessOrEqual(t, got["remaining_time"].(float64), float64(300))
}

func TestCreateSession_DefaultsToDedicated(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "POST", "/v1/sessions", map[string]any{"backend": "fake_lima"})
	require.Equal(t, http.StatusCreated, w.Code)

	var got map[string]any
	decodeData(t, w, &got)
	assert.Equal(t, "dedicated", got["mode"])
	assert.NotContains(t, got, "remaining_time")
}

func TestCreateSession_Invalid(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed json", "{", "INVALID_REQUEST"},
		{"unknown field", map[string]any{"backend": "fake_lima", "colour": "red"}, "INVALID_REQUEST"},
		{"missing backend", map[string]any{"mode": "batch"}, "INVALID_REQUEST"},
		{"invalid mode", map[string]any{"mode": "exclusive", "backend": "fake_lima"}, "INVALID_REQUEST"},
		{"zero ttl", map[string]any{"backend": "fake_lima", "max_ttl": 0}, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, "POST", "/v1/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errCode(t, w))
		})
	}
}

func TestGetSession(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t, "dedicated")
	jobID := s.createJob(t, id)

	w := s.do(t, "GET", "/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		ID   string   `json:"id"`
		Jobs []string `json:"jobs"`
	}
	decodeData(t, w, &got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, []string{jobID}, got.Jobs)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/v1/sessions/session-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errCode(t, w))
}

func TestListSessions(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.createSession(t, "dedicated")
	second := s.createSession(t, "batch")

	w := s.do(t, "GET", "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, second, got[1].ID)
	assert.Equal(t, float64(2), decodeMeta(t, w)["total"])
}

func TestUpdateSession_Close(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t, "dedicated")

	w := s.do(t, "PATCH", "/v1/sessions/"+id, map[string]any{"accepting_jobs": false})
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeData(t, w, &got)
	assert.Equal(t, false, got["accepting_jobs"])
	assert.Equal(t, true, got["active"])

	w = s.do(t, "POST", "/v1/jobs", map[string]any{
		"program_id": "sampler", "backend": "fake_lima", "session_id": id,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_CLOSED", errCode(t, w))
}

func TestUpdateSession_Invalid(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t, "dedicated")

	w := s.do(t, "PATCH", "/v1/sessions/"+id, map[string]any{"accepting_jobs": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "PATCH", "/v1/sessions/"+id, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "PATCH", "/v1/sessions/session-missing", map[string]any{"accepting_jobs": false})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelSession(t *testing.T) {
	exec := newGated()
	s := newTestServer(t, exec)
	id := s.createSession(t, "dedicated")
	running := s.createJob(t, id)
	queued := s.createJob(t, id)

	w := s.do(t, "DELETE", "/v1/sessions/"+id+"/close", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "CANCELLED", string(s.waitTerminal(t, queued).Status))

	w = s.do(t, "POST", "/v1/jobs", map[string]any{
		"program_id": "sampler", "backend": "fake_lima", "session_id": id,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_EXPIRED", errCode(t, w))

	exec.Complete(running, []byte(`{"counts":{"00":1}}`))
	assert.Equal(t, "COMPLETED", string(s.waitTerminal(t, running).Status))
}

func TestCancelSession_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "DELETE", "/v1/sessions/session-missing/close", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionJobs(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createSession(t, "batch")
	a := s.createJob(t, id)
	b := s.createJob(t, id)
	s.createJob(t, "")

	w := s.do(t, "GET", "/v1/sessions/"+id+"/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)

	w = s.do(t, "GET", "/v1/sessions/session-missing/jobs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
