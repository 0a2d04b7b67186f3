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

// Package server serves grid windows over data sources as HTML pages and
// JSON row pages.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/query"
	"github.com/google/vgrid/core/rendering"
	"github.com/google/vgrid/core/views"
	"github.com/google/vgrid/datasources"
)

// ViewPath is the path of grid pages.
const ViewPath = "/view"

// Server represents the application server with all its dependencies.
//
// Grids are not safe for concurrent use, so requests are handled one at a
// time.
type Server struct {
	mu        sync.Mutex
	manager   *datasources.Manager
	renderer  *rendering.HTMLRenderer
	gridCache map[string]*grid.Grid
	gridOpts  []grid.Option
	logger    *slog.Logger

	Title    string
	Subtitle string
}

// NewServer creates a new server over the sources of manager. opts are
// passed to every grid the server creates.
func NewServer(manager *datasources.Manager, logger *slog.Logger, opts ...grid.Option) (*Server, error) {
	renderer, err := rendering.NewHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		manager:   manager,
		renderer:  renderer,
		gridCache: make(map[string]*grid.Grid),
		gridOpts:  opts,
		logger:    logger,
		Title:     "vgrid",
	}, nil
}

// makeCacheKey creates a cache key combining user and source name.
// This ensures each user has their own grid with their own selection.
func (s *Server) makeCacheKey(userName, sourceName string) string {
	if userName == "" {
		return sourceName
	}
	return userName + ":" + sourceName
}

// HandlerResult represents the result of handling a grid request
type HandlerResult struct {
	Error      error
	StatusCode int
	Message    string
}

// TimingCollector collects timing measurements for various operations
type TimingCollector struct {
	entries []views.TimingEntry
	start   time.Time
}

// NewTimingCollector creates a new timing collector
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{start: time.Now()}
}

// Record records a timing entry
func (tc *TimingCollector) Record(operation string, duration time.Duration) {
	tc.entries = append(tc.entries, views.TimingEntry{
		Operation:  operation,
		DurationMs: fmt.Sprintf("%.2f", float64(duration.Microseconds())/1000.0),
	})
}

// Entries returns all timing entries
func (tc *TimingCollector) Entries() []views.TimingEntry {
	return tc.entries
}

// TotalMs returns total elapsed time in milliseconds as formatted string
func (tc *TimingCollector) TotalMs() string {
	return fmt.Sprintf("%.2f", float64(time.Since(tc.start).Microseconds())/1000.0)
}

// gridFor returns the cached grid for key, creating it over the dataset of
// the named source on first use.
func (s *Server) gridFor(ctx context.Context, key, sourceName string) (*grid.Grid, error) {
	if g, ok := s.gridCache[key]; ok {
		return g, nil
	}
	ds, err := s.manager.Load(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	opts := append([]grid.Option{
		grid.WithTitle(sourceName),
		grid.WithLogger(s.logger.With("source", sourceName)),
		grid.WithColumns(ds.Columns(s.manager.Annotations(sourceName))),
	}, s.gridOpts...)
	g := grid.New(items.NewSource(ds.Items), ds.Accessor, opts...)
	s.gridCache[key] = g
	return g, nil
}

// Invalidate drops the grids of a source so the next request reloads it.
func (s *Server) Invalidate(sourceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.InvalidateCache(sourceName)
	for key, g := range s.gridCache {
		if g.Title() == sourceName {
			g.Close()
			delete(s.gridCache, key)
		}
	}
}

// HandleGridRequest processes a grid request and writes the response.
// Returns an error result if the request is invalid, nil on success.
func (s *Server) HandleGridRequest(ctx context.Context, w io.Writer, requestURL *url.URL, setHeader func(key, value string)) *HandlerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	timing := NewTimingCollector()

	parseStart := time.Now()
	q := query.NewQuery(requestURL)
	timing.Record("Parse Query", time.Since(parseStart))

	if q.Source == "" {
		return &HandlerResult{StatusCode: http.StatusBadRequest, Message: "source parameter is required"}
	}

	// Get user from URL parameter - cache is user-specific
	userName := requestURL.Query().Get("user")
	cacheKey := s.makeCacheKey(userName, q.Source)

	loadStart := time.Now()
	g, err := s.gridFor(ctx, cacheKey, q.Source)
	if errors.Is(err, datasources.ErrUnknownSource) {
		return &HandlerResult{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("source %q not found", q.Source)}
	}
	if err != nil {
		s.logger.Error("load failed", "source", q.Source, "err", err)
		return &HandlerResult{Error: err, StatusCode: http.StatusInternalServerError, Message: "failed to load source"}
	}
	timing.Record("Load Source", time.Since(loadStart))

	// Use the grid's visible columns if none specified
	if len(q.Columns) == 0 {
		q.Columns = g.Columns().Fields()
	}

	applyStart := time.Now()
	refreshes := g.Refreshes()
	if err := q.Apply(g); err != nil {
		// Bad filters are skipped; the rest of the view still applies.
		s.logger.Warn("invalid query", "source", q.Source, "err", err)
	}
	timing.Record(fmt.Sprintf("Apply View (%d refreshes)", g.Refreshes()-refreshes), time.Since(applyStart))

	vmStart := time.Now()
	vm := g.ViewModel(q)
	offset := int(vm.ScrollOffset)
	page := max(1, int(vm.ViewportHeight))
	vm.HasPrev = offset > 0
	vm.HasNext = vm.ScrollOffset+vm.ViewportHeight < vm.Extent
	vm.PrevURL = q.WithOffset(offset - page)
	vm.NextURL = q.WithOffset(offset + page)
	timing.Record("Build ViewModel", time.Since(vmStart))

	vm.RenderTimeMs = timing.TotalMs()
	vm.Timing = timing.Entries()

	setHeader("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, vm); err != nil {
		s.logger.Error("template rendering failed", "err", err)
		return &HandlerResult{Error: err, StatusCode: http.StatusInternalServerError, Message: "failed to render page"}
	}
	return nil
}

// HandleLandingRequest processes the landing page request
func (s *Server) HandleLandingRequest(w io.Writer, setHeader func(key, value string)) error {
	vm := views.LandingViewModel{
		Title:    s.Title,
		Subtitle: s.Subtitle,
	}
	for _, name := range s.manager.SourceNames() {
		src := s.manager.Source(name)
		if src == nil {
			continue
		}
		q := &query.Query{Path: ViewPath, Source: name}
		vm.Sources = append(vm.Sources, views.SourceInfo{
			Name:        name,
			Description: src.Description,
			Type:        src.Type,
			Items:       s.manager.LoadedCount(name),
			URL:         q.ToSafeURL(),
		})
	}

	setHeader("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderLanding(w, vm); err != nil {
		s.logger.Error("landing page rendering failed", "err", err)
		return err
	}
	return nil
}

// Handler returns the HTTP handler serving the landing page at "/" and grid
// pages at ViewPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.HandleLandingRequest(w, w.Header().Set); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET "+ViewPath, func(w http.ResponseWriter, r *http.Request) {
		res := s.HandleGridRequest(r.Context(), w, r.URL, w.Header().Set)
		if res == nil {
			return
		}
		http.Error(w, res.Message, res.StatusCode)
	})
	return mux
}
