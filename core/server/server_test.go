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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/datasources"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("id,region,amount\n")
	regions := []string{"West", "East", "North"}
	for i := range 30 {
		b.WriteString(strings.Join([]string{strconv.Itoa(i), regions[i%3], strconv.Itoa(i * 10)}, ","))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(b.String()), 0644))

	m := datasources.NewManager()
	m.SetBaseDir(dir)
	require.NoError(t, m.AddSource(datasources.DataSource{
		Name:        "orders",
		Type:        "csv",
		Description: "Orders by region",
		Config:      map[string]string{"file_path": "orders.csv"},
		Columns:     []datasources.ColumnAnnotation{{Name: "amount", DisplayName: "Amount"}},
	}))

	s, err := NewServer(m, nil, grid.WithViewportHeight(320))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var b strings.Builder
	_, err = io.Copy(&b, resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b.String()
}

func TestLanding(t *testing.T) {
	_, ts := newTestServer(t)
	status, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "orders")
	assert.Contains(t, body, "Orders by region")
	assert.Contains(t, body, "/view?source=orders")
	assert.NotContains(t, body, "items</span>", "the source is not loaded yet")
}

func TestGridPage(t *testing.T) {
	s, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/view?source=orders&sort=amount:desc&viewport=160")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>orders</h1>")
	assert.Contains(t, body, "Amount")
	assert.Contains(t, body, "&#9660;")
	assert.Contains(t, body, "next</a>")
	assert.NotContains(t, body, "previous</a>")
	assert.Contains(t, body, "Apply View")

	status, body = get(t, ts.URL+"/view?source=orders&grouped=region&filter:region=eq:West&viewport=640")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, strings.Count(body, `class="group"`))
	assert.Equal(t, 10, strings.Count(body, `class="row"`))

	get(t, ts.URL+"/view?source=orders&user=alice")
	assert.Len(t, s.gridCache, 2)

	status, body = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "30 items")

	s.Invalidate("orders")
	assert.Empty(t, s.gridCache)
}

func TestGridPageErrors(t *testing.T) {
	_, ts := newTestServer(t)

	status, _ := get(t, ts.URL+"/view")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, ts.URL+"/view?source=nope")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, ts.URL+"/view?source=orders&filter:region=bogus:x")
	assert.Equal(t, http.StatusOK, status, "bad filters are skipped")
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestAPI(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Echo())
	t.Cleanup(ts.Close)

	var sources []SourceJSON
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sources", &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "orders", sources[0].Name)
	assert.Nil(t, sources[0].Items)

	var page RowsJSON
	status := getJSON(t, ts.URL+"/api/rows?source=orders&sort=amount:desc&filter:region=eq:West&start=2&limit=3", &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 10, page.Visible)
	require.Len(t, page.Columns, 3)
	assert.Equal(t, ColumnJSON{Field: "amount", Header: "Amount"}, page.Columns[2])
	// West rows have ids 0, 3, ..., 27; descending amounts skip the first two.
	assert.Equal(t, [][]string{{"21", "West", "210"}, {"18", "West", "180"}, {"15", "West", "150"}}, page.Rows)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sources", &sources))
	require.NotNil(t, sources[0].Items)
	assert.Equal(t, 30, *sources[0].Items)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/rows?source=nope", &page))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/rows", &page))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/rows?source=orders&filter:region=bogus:x", &page))

	status, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Orders by region")
	status, _ = get(t, ts.URL+"/view?source=orders")
	assert.Equal(t, http.StatusOK, status)
}
