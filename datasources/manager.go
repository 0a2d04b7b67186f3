/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Taxinomia Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package datasources

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
)

var (
	// ErrUnknownSource is returned for source names that were never added.
	ErrUnknownSource = errors.New("unknown data source")
	// ErrNoLoader is returned for sources whose type has no registered loader.
	ErrNoLoader = errors.New("no loader registered")
)

// DataSource describes a named source and how to load it.
type DataSource struct {
	Name        string            `mapstructure:"name"`
	Type        string            `mapstructure:"type"`
	Description string            `mapstructure:"description"`
	Config      map[string]string `mapstructure:"config"`
	// AnnotationsID names a shared annotation set added with AddAnnotations.
	AnnotationsID string             `mapstructure:"annotations"`
	Columns       []ColumnAnnotation `mapstructure:"columns"`
}

// Manager handles loading and caching of data sources.
// Source metadata is registered eagerly; data is loaded lazily on demand.
type Manager struct {
	mu sync.RWMutex

	// Source metadata indexed by name, and the order sources were added in
	sources map[string]*DataSource
	order   []string

	// Shared annotations indexed by id
	annotations map[string][]ColumnAnnotation

	// Cached datasets indexed by source name - populated lazily
	datasets map[string]*Dataset

	// Registered loaders indexed by source type
	loaders map[string]Loader

	// Base directory for resolving relative paths
	baseDir string
}

// NewManager creates a new data source manager with the csv, textproto,
// sqlite and generated loaders registered.
func NewManager() *Manager {
	m := &Manager{
		sources:     make(map[string]*DataSource),
		annotations: make(map[string][]ColumnAnnotation),
		datasets:    make(map[string]*Dataset),
		loaders:     make(map[string]Loader),
	}
	m.RegisterLoader(NewCsvLoader())
	m.RegisterLoader(NewProtoLoader())
	m.RegisterLoader(NewSQLiteLoader())
	m.RegisterLoader(NewGeneratedLoader())
	return m
}

// RegisterLoader registers a data source loader for a specific source type.
// If a loader is already registered for this type, it will be replaced.
func (m *Manager) RegisterLoader(loader Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaders[loader.SourceType()] = loader
}

// SetBaseDir sets the base directory for resolving relative paths in config.
func (m *Manager) SetBaseDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseDir = dir
}

// AddAnnotations registers a shared annotation set.
func (m *Manager) AddAnnotations(id string, columns []ColumnAnnotation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations[id] = slices.Clone(columns)
}

// AddSource registers a source. A source with the same name is replaced and
// its cached data dropped.
func (m *Manager) AddSource(source DataSource) error {
	if source.Name == "" {
		return errors.New("data source name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[source.Name]; !ok {
		m.order = append(m.order, source.Name)
	}
	m.sources[source.Name] = &source
	delete(m.datasets, source.Name)
	return nil
}

// SourceNames returns all registered source names in the order they were added.
func (m *Manager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Source returns the source metadata for a given name, or nil.
func (m *Manager) Source(name string) *DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources[name]
}

// Annotations returns the column annotations of a source: its shared set
// followed by its own entries, which win for the same column.
func (m *Manager) Annotations(name string) []ColumnAnnotation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[name]
	if !ok {
		return nil
	}
	out := slices.Clone(m.annotations[source.AnnotationsID])
	return append(out, source.Columns...)
}

// Load returns the dataset of a source, loading it on first use.
func (m *Manager) Load(ctx context.Context, name string) (*Dataset, error) {
	// Check cache first (with read lock)
	m.mu.RLock()
	if ds, ok := m.datasets[name]; ok {
		m.mu.RUnlock()
		return ds, nil
	}
	source, ok := m.sources[name]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	loader, hasLoader := m.loaders[source.Type]
	baseDir := m.baseDir
	m.mu.RUnlock()

	if !hasLoader {
		return nil, fmt.Errorf("%w for source type %q", ErrNoLoader, source.Type)
	}

	config := resolveConfigPaths(source.Config, baseDir)
	ds, err := loader.Load(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load source %q: %w", name, err)
	}
	ds.Name = name

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it meanwhile; keep the first.
	if cached, ok := m.datasets[name]; ok {
		return cached, nil
	}
	m.datasets[name] = ds
	return ds, nil
}

// resolveConfigPaths resolves relative file paths in config against baseDir.
func resolveConfigPaths(config map[string]string, baseDir string) map[string]string {
	if baseDir == "" {
		return config
	}

	resolved := make(map[string]string, len(config))
	pathKeys := map[string]bool{
		"file_path":      true,
		"descriptor_set": true,
	}

	for k, v := range config {
		if pathKeys[k] && v != "" && v != ":memory:" && !filepath.IsAbs(v) {
			resolved[k] = filepath.Join(baseDir, v)
		} else {
			resolved[k] = v
		}
	}
	return resolved
}

// InvalidateCache removes a source from the cache, forcing reload on next access.
func (m *Manager) InvalidateCache(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.datasets, name)
}

// InvalidateAllCaches removes all sources from the cache.
func (m *Manager) InvalidateAllCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.datasets)
}

// IsLoaded returns whether data for a source is currently cached.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.datasets[name]
	return ok
}

// LoadedCount returns the number of items of a cached source, or -1 when
// the source is not loaded.
func (m *Manager) LoadedCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ds, ok := m.datasets[name]; ok {
		return len(ds.Items)
	}
	return -1
}
