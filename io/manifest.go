package io

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ManifestSuffix is appended to a run's Output to name its manifest.
const ManifestSuffix = ".run.yaml"

// Manifest summarizes a finished imaging run.
type Manifest struct {
	RunID    string    `yaml:"run_id"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`

	Mode    string `yaml:"mode"`
	Output  string `yaml:"output"`
	Backend string `yaml:"backend,omitempty"`
	Seed    int64  `yaml:"seed"`
	Threads int    `yaml:"threads"`

	DomainSize float64 `yaml:"domain_size,omitempty"`
	CellNumber int     `yaml:"cell_number,omitempty"`

	Atoms     int     `yaml:"atoms"`
	Timestep  float64 `yaml:"timestep"`
	Steps     int     `yaml:"steps"`
	Photons   int64   `yaml:"photons"`
	Dropped   int64   `yaml:"dropped"`
	Saturated int64   `yaml:"saturated"`
}

// NewManifest starts a manifest for the run described by con.
func NewManifest(con *ImagingConfig, started time.Time) *Manifest {
	m := &Manifest{
		RunID:    uuid.New().String(),
		Started:  started.UTC(),
		Mode:     con.Mode,
		Output:   con.Output,
		Seed:     con.Seed,
		Threads:  con.Threads,
		Timestep: con.Timestep,
	}
	if con.ValidBackend() {
		m.Backend = con.Backend
	}
	if con.ValidDomainSize() && con.ValidCellNumber() {
		m.DomainSize, m.CellNumber = con.DomainSize, con.CellNumber
	}
	return m
}

// ManifestPath returns where the manifest for output is written.
func ManifestPath(output string) string { return output + ManifestSuffix }

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
