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

package grid

import (
	"fmt"
	"strings"

	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/views"
)

// Movement is a keyboard-style move of the current row.
type Movement int

const (
	Up Movement = iota
	Down
	Home
	End
	PageUp
	PageDown
)

func (m Movement) String() string {
	switch m {
	case Up:
		return "up"
	case Down:
		return "down"
	case Home:
		return "home"
	case End:
		return "end"
	case PageUp:
		return "pageup"
	case PageDown:
		return "pagedown"
	}
	return fmt.Sprintf("Movement(%d)", int(m))
}

// ParseMovement parses a movement name such as "down" or "pageup".
func ParseMovement(s string) (Movement, error) {
	for m := Up; m <= PageDown; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return Up, fmt.Errorf("unknown movement %q", s)
}

// Move moves the current item over the shown data rows, selects it (extending
// the selection from the anchor when extend is set) and scrolls it into view.
// Rows hidden in collapsed groups are skipped. It returns the new current
// item, or nil when no data row is shown.
func (g *Grid) Move(m Movement, extend bool) items.Item {
	rows := views.DataItems(g.entries)
	if len(rows) == 0 {
		return nil
	}
	at := -1
	if g.current != nil {
		at = items.IndexOf(rows, g.current)
	}

	page := max(1, g.window.ViewportRows()-2)
	var target int
	switch m {
	case Up:
		target = at - 1
	case Down:
		target = at + 1
	case Home:
		target = 0
	case End:
		target = len(rows) - 1
	case PageUp:
		target = at - page
	case PageDown:
		target = at + page
	}
	target = max(0, min(target, len(rows)-1))

	item := rows[target]
	g.current = item
	g.selection.SelectItem(item, false, extend)
	g.window.EnsureVisible(views.IndexOf(g.entries, item))
	g.Invalidate(ReasonViewport)
	return item
}
