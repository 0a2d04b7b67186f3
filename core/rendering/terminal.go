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

package rendering

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/google/vgrid/core/views"
)

// TerminalRenderer draws a window view model as fixed-width text.
type TerminalRenderer struct {
	// CellWidth is the column width, in view units, of one terminal cell.
	CellWidth float64
	// MinCells is the narrowest a column is drawn.
	MinCells  int
	Separator string
	// MaxWidth truncates every line to this many cells when positive.
	MaxWidth int
}

// NewTerminalRenderer creates a terminal renderer with 8 view units per cell.
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{CellWidth: 8, MinCells: 3, Separator: " │ "}
}

func (t *TerminalRenderer) cells(width float64) int {
	if t.CellWidth <= 0 {
		return max(t.MinCells, int(width))
	}
	return max(t.MinCells, int(width/t.CellWidth))
}

// fit truncates or pads s to exactly n terminal cells.
func fit(s string, n int, align string) string {
	s = runewidth.Truncate(s, n, "…")
	switch align {
	case "right":
		return runewidth.FillLeft(s, n)
	case "center":
		pad := n - runewidth.StringWidth(s)
		return runewidth.FillRight(strings.Repeat(" ", pad/2)+s, n)
	}
	return runewidth.FillRight(s, n)
}

func sortMarker(c views.ColumnHeader) string {
	var m string
	switch c.SortDir {
	case "asc":
		m = " ▲"
	case "desc":
		m = " ▼"
	default:
		return ""
	}
	if c.SortPriority > 1 {
		m += fmt.Sprint(c.SortPriority)
	}
	return m
}

// Render writes the header, the realized rows, the summary and a status line.
// Styling is dropped when w is not a terminal.
func (t *TerminalRenderer) Render(w io.Writer, vm views.WindowViewModel) error {
	re := lipgloss.NewRenderer(w)
	titleStyle := re.NewStyle().Bold(true)
	headerStyle := re.NewStyle().Bold(true).Underline(true)
	groupStyle := re.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle := re.NewStyle().Reverse(true)
	summaryStyle := re.NewStyle().Bold(true)
	statusStyle := re.NewStyle().Faint(true)

	widths := make([]int, len(vm.Columns))
	total := 2
	for i, c := range vm.Columns {
		widths[i] = t.cells(c.Width)
		total += widths[i]
		if i > 0 {
			total += runewidth.StringWidth(t.Separator)
		}
	}
	if t.MaxWidth > 0 {
		total = min(total, t.MaxWidth)
	}
	line := func(texts []string, aligns []string) string {
		parts := make([]string, len(texts))
		for i, s := range texts {
			parts[i] = fit(s, widths[i], aligns[i])
		}
		out := strings.Join(parts, t.Separator)
		if t.MaxWidth > 0 {
			out = runewidth.Truncate(out, max(1, total-2), "…")
		}
		return out
	}

	var b strings.Builder
	if vm.Title != "" {
		b.WriteString(titleStyle.Render(vm.Title))
		b.WriteByte('\n')
	}

	headers := make([]string, len(vm.Columns))
	aligns := make([]string, len(vm.Columns))
	for i, c := range vm.Columns {
		headers[i] = c.Header + sortMarker(c)
		aligns[i] = c.Alignment
	}
	b.WriteString("  ")
	b.WriteString(headerStyle.Render(line(headers, aligns)))
	b.WriteByte('\n')

	for _, r := range vm.Rows {
		prefix := []rune("  ")
		if r.Current {
			prefix[0] = '>'
		}
		if r.Selected {
			prefix[1] = '*'
		}
		indent := strings.Repeat("  ", r.Level)

		if r.IsGroup {
			arrow := "▸ "
			if r.Expanded {
				arrow = "▾ "
			}
			text := indent + arrow + r.Header
			if r.Aggregates != "" {
				text += "  " + r.Aggregates
			}
			b.WriteString(string(prefix))
			b.WriteString(groupStyle.Render(runewidth.Truncate(text, max(1, total-2), "…")))
			b.WriteByte('\n')
			continue
		}

		texts := make([]string, len(r.Cells))
		cellAligns := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			texts[i] = c.Text
			cellAligns[i] = c.Alignment
		}
		if len(texts) > 0 {
			texts[0] = indent + texts[0]
		}
		row := line(texts, cellAligns)
		if r.Selected {
			row = selectedStyle.Render(row)
		}
		b.WriteString(string(prefix))
		b.WriteString(row)
		b.WriteByte('\n')
	}

	if vm.HasSummary && len(vm.Summary) == len(vm.Columns) {
		texts := make([]string, len(vm.Summary))
		for i, s := range vm.Summary {
			texts[i] = s.Text
		}
		b.WriteString("  ")
		b.WriteString(summaryStyle.Render(line(texts, aligns)))
		b.WriteByte('\n')
	}

	status := fmt.Sprintf("%d of %d items", vm.VisibleItems, vm.SourceItems)
	if vm.First >= 0 {
		status += fmt.Sprintf(", entries %d-%d of %d", vm.First, vm.Last, vm.TotalEntries)
	}
	if vm.Search != "" {
		status += fmt.Sprintf(", search %q", vm.Search)
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
