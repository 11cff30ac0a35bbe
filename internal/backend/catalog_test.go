package backend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/qruntime/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backends.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuiltin(t *testing.T) {
	c := backend.Builtin()

	assert.True(t, c.Exists("fake_nairobi"))
	assert.False(t, c.Exists("ibm_kyiv"))

	list := c.List()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
backends:
  - name: lab_device
    num_qubits: 3
    operational: true
  - name: lab_simulator
    num_qubits: 32
    simulator: true
    version: "2.1.0"
`)

	c, err := backend.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, c.Exists("lab_device"))
	assert.False(t, c.Exists("fake_nairobi"))

	b, ok := c.Get("lab_device")
	require.True(t, ok)
	assert.Equal(t, 3, b.NumQubits)
	assert.Equal(t, "1.0.0", b.Version)

	sim, ok := c.Get("lab_simulator")
	require.True(t, ok)
	assert.True(t, sim.Simulator)
	assert.Equal(t, "2.1.0", sim.Version)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := backend.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading backends file")
}

func TestLoadFile_Malformed(t *testing.T) {
	_, err := backend.LoadFile(writeFile(t, "backends: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing backends file")
}

func TestLoadFile_Empty(t *testing.T) {
	_, err := backend.LoadFile(writeFile(t, "backends: []\n"))
	require.Error(t, err)
}

func TestNewCatalog_Duplicate(t *testing.T) {
	_, err := backend.NewCatalog([]backend.Backend{{Name: "a"}, {Name: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewCatalog_MissingName(t *testing.T) {
	_, err := backend.NewCatalog([]backend.Backend{{NumQubits: 5}})
	require.Error(t, err)
}
