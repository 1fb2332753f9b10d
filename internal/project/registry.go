package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyRegistry is returned by operations that need at least one dataset.
var ErrEmptyRegistry = errors.New("no datasets in project")

// Registry is the settings plus the ordered dataset list of one session.
// Records are unique by sample id; the index map gives upsert in O(1).
//
// A Registry is not safe for concurrent use. The GUI hands it to the
// discovery goroutine and takes it back when the scan is done.
type Registry struct {
	Settings Settings

	datasets []*Dataset
	index    map[string]int
}

// document is the on-disk JSON shape.
type document struct {
	Settings Settings   `json:"settings"`
	Datasets []*Dataset `json:"datasets"`
}

// New creates an empty registry with default settings.
func New() *Registry {
	return &Registry{
		Settings: Defaults(),
		datasets: []*Dataset{},
		index:    make(map[string]int),
	}
}

// Len returns the number of datasets.
func (r *Registry) Len() int {
	return len(r.datasets)
}

// At returns the dataset at position i, or nil when i is out of range.
func (r *Registry) At(i int) *Dataset {
	if i < 0 || i >= len(r.datasets) {
		return nil
	}
	return r.datasets[i]
}

// Get returns the dataset with the given sample id.
func (r *Registry) Get(sampleID string) (*Dataset, bool) {
	i, ok := r.index[sampleID]
	if !ok {
		return nil, false
	}
	return r.datasets[i], true
}

// IndexOf returns the position of sampleID, or -1.
func (r *Registry) IndexOf(sampleID string) int {
	if i, ok := r.index[sampleID]; ok {
		return i
	}
	return -1
}

// Datasets returns the records in order. The slice is a copy; the records
// are shared.
func (r *Registry) Datasets() []*Dataset {
	out := make([]*Dataset, len(r.datasets))
	copy(out, r.datasets)
	return out
}

// Upsert returns the record for sampleID, appending a new empty one if none
// exists. created reports whether a record was appended.
func (r *Registry) Upsert(sampleID string) (d *Dataset, created bool) {
	if existing, ok := r.Get(sampleID); ok {
		return existing, false
	}
	d = &Dataset{SampleID: sampleID}
	r.index[sampleID] = len(r.datasets)
	r.datasets = append(r.datasets, d)
	return d, true
}

// Save writes the registry to path as JSON. Whatever extension path has is
// replaced by ".json". The returned string is the path actually written.
func (r *Registry) Save(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("project file path is empty")
	}
	path = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"

	data, err := json.MarshalIndent(document{Settings: r.Settings, Datasets: r.datasets}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal project: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}

	// Write to temporary file first, then rename into place
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write project file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to rename project file: %w", err)
	}
	return path, nil
}

// Load reads a registry previously written by Save. Records sharing a
// sample id are merged, the later one winning, so the result holds one
// record per sample.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}

	r := New()
	r.Settings = doc.Settings
	for _, d := range doc.Datasets {
		if d == nil {
			continue
		}
		if i, ok := r.index[d.SampleID]; ok {
			r.datasets[i] = d
			continue
		}
		r.index[d.SampleID] = len(r.datasets)
		r.datasets = append(r.datasets, d)
	}
	return r, nil
}
