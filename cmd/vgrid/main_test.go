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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/vgrid/core/selection"
	"github.com/google/vgrid/datasources"
)

const ordersCSV = `id,region,amount
1,West,10
2,East,20
3,West,30
4,North,40
5,East,50
`

const testConfig = `title: Test grids
row_height: 20
viewport_height: 200
selection_mode: single
numeric_format: N1
annotations:
  money:
    - name: amount
      display_name: Amount
      width: 120
sources:
  - name: orders
    type: csv
    description: Orders by region
    annotations: money
    config:
      file_path: orders.csv
`

func writeFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(ordersCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vgrid.yaml"), []byte(testConfig), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	dir := writeFiles(t)
	cfg, err := loadConfig(filepath.Join(dir, "vgrid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Test grids", cfg.Title)
	assert.Equal(t, 20.0, cfg.RowHeight)
	assert.Equal(t, 200.0, cfg.ViewportHeight)
	assert.Equal(t, 5, cfg.BufferCount, "defaults fill unset keys")
	assert.Equal(t, ":8097", cfg.Addr)
	assert.Equal(t, dir, cfg.BaseDir)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "orders.csv", cfg.Sources[0].Config["file_path"])
	assert.Equal(t, "money", cfg.Sources[0].AnnotationsID)
	require.Len(t, cfg.Annotations["money"], 1)
	assert.Equal(t, datasources.ColumnAnnotation{Name: "amount", DisplayName: "Amount", Width: 120}, cfg.Annotations["money"][0])

	opts, err := cfg.gridOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	m, err := cfg.manager()
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, m.SourceNames())
}

func TestLoadConfigEnv(t *testing.T) {
	dir := writeFiles(t)
	t.Setenv("VGRID_TITLE", "From env")
	t.Setenv("VGRID_SELECTION_MODE", "multiple")
	cfg, err := loadConfig(filepath.Join(dir, "vgrid.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "From env", cfg.Title)
	mode, err := selection.ParseMode(cfg.SelectionMode)
	require.NoError(t, err)
	assert.Equal(t, selection.Multiple, mode)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	t.Chdir(t.TempDir())
	cfg, err := loadConfig("")
	require.NoError(t, err, "the default config file is optional")
	assert.Equal(t, "vgrid", cfg.Title)
	assert.Empty(t, cfg.Sources)

	bad := &Config{SelectionMode: "many"}
	_, err = bad.gridOptions()
	assert.Error(t, err)
	bad = &Config{Language: "not a language tag"}
	_, err = bad.gridOptions()
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	dir := writeFiles(t)
	out, err := run(t, "--config", filepath.Join(dir, "vgrid.yaml"), "show", "orders",
		"--sort", "amount:desc", "--move", "down")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "orders", lines[0])
	assert.Contains(t, lines[1], "Amount ▼")
	assert.True(t, strings.HasPrefix(lines[2], ">*"))
	assert.Contains(t, lines[2], "50")
	assert.Equal(t, "5 of 5 items, entries 0-4 of 5", lines[7])
}

func TestShowGroupedAndFiltered(t *testing.T) {
	dir := writeFiles(t)
	out, err := run(t, "--config", filepath.Join(dir, "vgrid.yaml"), "show", "orders",
		"--group", "region", "--filter", "amount=ge:20", "--agg", "sum:amount")
	require.NoError(t, err)
	assert.Contains(t, out, "region: East (2)")
	assert.Contains(t, out, "region: West (1)")
	assert.Contains(t, out, "region: North (1)")
	assert.Contains(t, out, "4 of 5 items")
}

func TestShowCSVFile(t *testing.T) {
	dir := writeFiles(t)
	t.Chdir(t.TempDir())
	out, err := run(t, "show", filepath.Join(dir, "orders.csv"), "--search", "west")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "orders\n"))
	assert.Contains(t, out, "2 of 5 items")
}

func TestShowErrors(t *testing.T) {
	dir := writeFiles(t)
	config := filepath.Join(dir, "vgrid.yaml")

	_, err := run(t, "--config", config, "show", "nope")
	assert.ErrorIs(t, err, datasources.ErrUnknownSource)

	_, err = run(t, "--config", config, "show", "orders", "--filter", "amount")
	assert.ErrorContains(t, err, "want field=<op>:<value>")

	_, err = run(t, "--config", config, "show", "orders", "--agg", "median:amount")
	assert.Error(t, err)

	_, err = run(t, "--config", config, "show", "orders", "--move", "sideways")
	assert.Error(t, err)

	_, err = run(t, "--config", config, "show")
	assert.Error(t, err)
}

func TestSources(t *testing.T) {
	dir := writeFiles(t)
	out, err := run(t, "--config", filepath.Join(dir, "vgrid.yaml"), "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "Orders by region")
}

func TestShowWidth(t *testing.T) {
	dir := writeFiles(t)
	out, err := run(t, "--config", filepath.Join(dir, "vgrid.yaml"), "show", "orders", "--width", "16")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	for _, l := range lines[1:7] {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 16, l)
	}
}
