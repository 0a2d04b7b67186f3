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

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/core/query"
	"github.com/google/vgrid/datasources"
)

// APIPrefix is the path prefix of the JSON endpoints.
const APIPrefix = "/api"

const defaultRowLimit = 100

// SourceJSON describes a data source. Items is omitted until the source is
// loaded.
type SourceJSON struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Items       *int   `json:"items,omitempty"`
}

type ColumnJSON struct {
	Field  string `json:"field"`
	Header string `json:"header"`
}

type SummaryJSON struct {
	Field    string `json:"field"`
	Function string `json:"function"`
	Text     string `json:"text"`
}

// RowsJSON is one page of the filtered, sorted items of a grid.
type RowsJSON struct {
	Source  string        `json:"source"`
	Total   int           `json:"total"`
	Visible int           `json:"visible"`
	Start   int           `json:"start"`
	Limit   int           `json:"limit"`
	Columns []ColumnJSON  `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Summary []SummaryJSON `json:"summary,omitempty"`
}

// Echo returns the full HTTP surface: the JSON API under APIPrefix and the
// HTML pages of Handler for every other path.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	api := e.Group(APIPrefix)
	api.GET("/sources", s.handleSources)
	api.GET("/rows", s.handleRows)

	e.Any("/*", echo.WrapHandler(s.Handler()))
	return e
}

// pagination reads the start and limit parameters.
func pagination(c echo.Context, defaultLimit int) (start, limit int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	start, err = strconv.Atoi(c.QueryParam("start"))
	if err != nil || start < 0 {
		start = 0
	}
	return start, limit
}

func (s *Server) handleSources(c echo.Context) error {
	out := []SourceJSON{}
	for _, name := range s.manager.SourceNames() {
		src := s.manager.Source(name)
		if src == nil {
			continue
		}
		sj := SourceJSON{Name: name, Type: src.Type, Description: src.Description}
		if n := s.manager.LoadedCount(name); n >= 0 {
			sj.Items = &n
		}
		out = append(out, sj)
	}
	return c.JSON(http.StatusOK, out)
}

// handleRows applies the view query of the request to the user's grid and
// returns a page of its items as display text.
func (s *Server) handleRows(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := c.Request()
	q := query.NewQuery(req.URL)
	if q.Source == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source parameter is required")
	}
	g, err := s.gridFor(req.Context(), s.makeCacheKey(c.QueryParam("user"), q.Source), q.Source)
	if errors.Is(err, datasources.ErrUnknownSource) {
		return echo.NewHTTPError(http.StatusNotFound, "source "+strconv.Quote(q.Source)+" not found")
	}
	if err != nil {
		s.logger.Error("load failed", "source", q.Source, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load source")
	}
	if err := q.Apply(g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snap := g.Snapshot(grid.ExportOptions{VisibleRowsOnly: true, IncludeHeaders: true, IncludeSummary: true})
	start, limit := pagination(c, defaultRowLimit)
	page := RowsJSON{
		Source:  q.Source,
		Total:   g.Source().Len(),
		Visible: len(snap.Items),
		Start:   start,
		Limit:   limit,
		Columns: make([]ColumnJSON, 0, len(snap.Columns)),
		Rows:    [][]string{},
	}
	for _, col := range snap.Columns {
		page.Columns = append(page.Columns, ColumnJSON{Field: col.Field, Header: col.Header})
	}
	end := min(start+limit, len(snap.Items))
	for i := start; i < end; i++ {
		row := make([]string, len(snap.Columns))
		for j, col := range snap.Columns {
			if v, err := g.Resolver().Value(snap.Items[i], col.Field); err == nil {
				row[j] = columns.FormatValue(v)
			}
		}
		page.Rows = append(page.Rows, row)
	}
	for _, r := range snap.Summary {
		page.Summary = append(page.Summary, SummaryJSON{Field: r.Field, Function: r.Function.String(), Text: r.Formatted})
	}
	return c.JSON(http.StatusOK, page)
}
