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
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/query"
	"github.com/google/vgrid/core/rendering"
	"github.com/google/vgrid/datasources"
)

type showFlags struct {
	columns    string
	sort       string
	group      string
	search     string
	filters    []string
	aggregates []string
	moves      []string
	offset     int
	rows       int
	width      int
}

func newShowCmd(cfg *Config) *cobra.Command {
	var f showFlags
	cmd := &cobra.Command{
		Use:   "show <source | file.csv>",
		Short: "Print one window of a data source to the terminal",
		Example: `  vgrid show orders --sort amount:desc --group region
  vgrid show data/orders.csv --filter region=eq:West --agg sum:amount`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.manager()
			if err != nil {
				return err
			}
			name, err := resolveSource(m, args[0])
			if err != nil {
				return err
			}
			g, err := openGrid(cmd, cfg, m, name)
			if err != nil {
				return err
			}
			defer g.Close()

			if err := f.apply(g, name, cfg.RowHeight); err != nil {
				return err
			}
			r := rendering.NewTerminalRenderer()
			r.MaxWidth = f.width
			if r.MaxWidth == 0 {
				r.MaxWidth = terminalWidth(cmd.OutOrStdout())
			}
			return r.Render(cmd.OutOrStdout(), g.ViewModel(nil))
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.columns, "columns", "", "visible columns in order, with optional widths (id,amount:120)")
	fl.StringVar(&f.sort, "sort", "", "sort keys, outermost first (amount:desc,region)")
	fl.StringVar(&f.group, "group", "", "grouped columns, outermost first")
	fl.StringVar(&f.search, "search", "", "global search text")
	fl.StringArrayVar(&f.filters, "filter", nil, "column filter field=<op>:<value>, repeatable")
	fl.StringArrayVar(&f.aggregates, "agg", nil, "aggregate <func>:<field>, repeatable")
	fl.StringArrayVar(&f.moves, "move", nil, "move the current row (down, pagedown, end, ...), repeatable")
	fl.IntVar(&f.offset, "offset", 0, "scroll offset")
	fl.IntVar(&f.rows, "rows", 0, "viewport height in rows (default from config)")
	fl.IntVar(&f.width, "width", 0, "maximum line width in cells (default: terminal width, unlimited otherwise)")
	return cmd
}

// terminalWidth returns the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// resolveSource returns the name of the configured source arg, or registers
// arg as an ad-hoc CSV source when it names a .csv file.
func resolveSource(m *datasources.Manager, arg string) (string, error) {
	if m.Source(arg) != nil {
		return arg, nil
	}
	if !strings.EqualFold(filepath.Ext(arg), ".csv") {
		return "", fmt.Errorf("%w: %q", datasources.ErrUnknownSource, arg)
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
	err = m.AddSource(datasources.DataSource{
		Name:   name,
		Type:   "csv",
		Config: map[string]string{"file_path": path},
	})
	return name, err
}

func openGrid(cmd *cobra.Command, cfg *Config, m *datasources.Manager, name string) (*grid.Grid, error) {
	ds, err := m.Load(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.gridOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		grid.WithTitle(name),
		grid.WithLogger(cfg.logger()),
		grid.WithColumns(ds.Columns(m.Annotations(name))),
	)
	return grid.New(items.NewSource(ds.Items), ds.Accessor, opts...), nil
}

// values encodes the flags as view query parameters.
func (f *showFlags) values(source string, rowHeight float64) (url.Values, error) {
	v := url.Values{}
	v.Set("source", source)
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("columns", f.columns)
	set("sort", f.sort)
	set("grouped", f.group)
	set("search", f.search)
	if f.offset > 0 {
		v.Set("offset", strconv.Itoa(f.offset))
	}
	if f.rows > 0 {
		if rowHeight <= 0 {
			rowHeight = 32
		}
		v.Set("viewport", strconv.Itoa(f.rows*int(rowHeight)))
	}
	for _, flt := range f.filters {
		field, value, ok := strings.Cut(flt, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("filter %q: want field=<op>:<value>", flt)
		}
		v.Set("filter:"+field, value)
	}
	return v, nil
}

func (f *showFlags) apply(g *grid.Grid, source string, rowHeight float64) error {
	v, err := f.values(source, rowHeight)
	if err != nil {
		return err
	}
	if f.columns == "" {
		v.Set("columns", strings.Join(g.Columns().Fields(), ","))
	}
	q := query.NewQuery(&url.URL{RawQuery: v.Encode()})
	if err := q.Apply(g); err != nil {
		return err
	}

	var reqs []aggregates.Request
	for _, a := range f.aggregates {
		name, field, ok := strings.Cut(a, ":")
		if !ok || field == "" {
			return fmt.Errorf("aggregate %q: want <func>:<field>", a)
		}
		fn, err := aggregates.ParseFunction(name)
		if err != nil {
			return err
		}
		reqs = append(reqs, aggregates.Request{Field: field, Function: fn})
	}
	if len(reqs) > 0 {
		g.Aggregates().SetRequests(reqs)
	}

	for _, name := range f.moves {
		m, err := grid.ParseMovement(name)
		if err != nil {
			return err
		}
		g.Move(m, false)
	}
	return nil
}
