package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBackends(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/v1/backends", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Devices []struct {
			Name   string `json:"backend_name"`
			Qubits int    `json:"n_qubits"`
		} `json:"devices"`
	}
	decodeData(t, w, &got)
	require.NotEmpty(t, got.Devices)

	names := make([]string, 0, len(got.Devices))
	for _, d := range got.Devices {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "fake_lima")
	assert.IsNonDecreasing(t, names)
}

func TestGetBackend(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/v1/backends/fake_lima", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeData(t, w, &got)
	assert.Equal(t, "fake_lima", got["backend_name"])
	assert.Equal(t, float64(5), got["n_qubits"])

	w = s.do(t, "GET", "/v1/backends/ibm_nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errCode(t, w))
}
