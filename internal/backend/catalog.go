// Package backend holds the catalog of compute backends that jobs may target.
package backend

import (
	"fmt"
	"os"
	"sort"

	"github.com/kiranshivaraju/qruntime/pkg/models"
	"gopkg.in/yaml.v3"
)

// Backend describes one compute backend.
type Backend struct {
	Name            string `yaml:"name" json:"backend_name"`
	Version         string `yaml:"version" json:"backend_version"`
	NumQubits       int    `yaml:"num_qubits" json:"n_qubits"`
	Simulator       bool   `yaml:"simulator" json:"simulator"`
	Operational     bool   `yaml:"operational" json:"operational"`
	ProcessorFamily string `yaml:"processor_family" json:"processor_family,omitempty"`
	QuantumVolume   int    `yaml:"quantum_volume" json:"quantum_volume,omitempty"`
}

type catalogFile struct {
	Backends []Backend `yaml:"backends"`
}

// Catalog is an immutable set of backends keyed by name.
type Catalog struct {
	byName map[string]Backend
}

// Builtin returns the catalog used when no backends file is configured.
func Builtin() *Catalog {
	c, _ := NewCatalog([]Backend{
		{Name: "fake_lima", Version: "1.0.0", NumQubits: 5, Operational: true, ProcessorFamily: "Falcon", QuantumVolume: 8},
		{Name: "fake_manila", Version: "1.0.0", NumQubits: 5, Operational: true, ProcessorFamily: "Falcon", QuantumVolume: 32},
		{Name: "fake_nairobi", Version: "1.0.0", NumQubits: 7, Operational: true, ProcessorFamily: "Falcon", QuantumVolume: 32},
		{Name: "fake_kolkata", Version: "1.0.0", NumQubits: 27, Operational: true, ProcessorFamily: "Falcon", QuantumVolume: 128},
		{Name: "fake_brisbane", Version: "1.0.0", NumQubits: 127, Operational: true, ProcessorFamily: "Eagle"},
		{Name: "fake_sherbrooke", Version: "1.0.0", NumQubits: 127, Operational: true, ProcessorFamily: "Eagle"},
	})
	return c
}

// NewCatalog builds a catalog, rejecting empty or duplicate names.
func NewCatalog(backends []Backend) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Backend, len(backends))}
	for i, b := range backends {
		if b.Name == "" {
			return nil, fmt.Errorf("backend %d: name is required", i)
		}
		if _, dup := c.byName[b.Name]; dup {
			return nil, fmt.Errorf("backend %q: duplicate name", b.Name)
		}
		if b.Version == "" {
			b.Version = "1.0.0"
		}
		c.byName[b.Name] = b
	}
	return c, nil
}

// LoadFile reads a YAML catalog of the form:
//
//	backends:
//	  - name: fake_nairobi
//	    num_qubits: 7
//	    operational: true
func LoadFile(path string) (*Catalog, error) {
	// #nosec G304 -- path comes from server configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backends file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing backends file: %w", err)
	}
	if len(f.Backends) == 0 {
		return nil, fmt.Errorf("backends file %s lists no backends", path)
	}
	return NewCatalog(f.Backends)
}

// Exists reports whether name is in the catalog.
func (c *Catalog) Exists(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Get returns the backend called name.
func (c *Catalog) Get(name string) (Backend, bool) {
	b, ok := c.byName[name]
	return b, ok
}

// List returns all backends sorted by name.
func (c *Catalog) List() []Backend {
	out := make([]Backend, 0, len(c.byName))
	for _, b := range c.byName {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var _ models.BackendProvider = (*Catalog)(nil)
