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

package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/vgrid/core/items"
)

var letters = []items.Item{"A", "B", "C", "D", "E"}

func newModel(mode Mode) *Model {
	m := NewModel(mode)
	m.SetOrder(letters)
	return m
}

func TestRangeSelection(t *testing.T) {
	m := newModel(Extended)
	m.SelectItem("B", false, false)
	m.SelectItem("D", false, true)
	assert.Equal(t, []items.Item{"B", "C", "D"}, m.Selected())
	anchor, ok := m.Anchor()
	require.True(t, ok)
	assert.Equal(t, "B", anchor, "extend keeps the anchor")

	// Extending again replaces the previous range.
	m.SelectItem("A", false, true)
	assert.Equal(t, []items.Item{"A", "B"}, m.Selected())

	// Toggle plus extend adds the range.
	m.SelectItem("E", true, true)
	assert.ElementsMatch(t, letters, m.Selected())
	assert.Equal(t, All, m.Status())
}

func TestRangeFromAToE(t *testing.T) {
	m := newModel(Multiple)
	m.SelectItem("A", false, false)
	m.SelectItem("E", false, true)
	assert.Equal(t, letters, m.Selected())
	m.SelectItem("C", false, false)
	m.SelectItem("A", false, true)
	assert.Equal(t, []items.Item{"A", "B", "C"}, m.Selected())
}

func TestToggle(t *testing.T) {
	m := newModel(Extended)
	m.SelectItem("A", true, false)
	m.SelectItem("C", true, false)
	assert.Equal(t, []items.Item{"A", "C"}, m.Selected())
	m.SelectItem("A", true, false)
	assert.Equal(t, []items.Item{"C"}, m.Selected())
	anchor, _ := m.Anchor()
	assert.Equal(t, "A", anchor)
	assert.Equal(t, Some, m.Status())
}

func TestExtendWithoutAnchorSelectsItem(t *testing.T) {
	m := newModel(Extended)
	m.SelectItem("C", false, true)
	assert.Equal(t, []items.Item{"C"}, m.Selected())
	anchor, ok := m.Anchor()
	assert.True(t, ok)
	assert.Equal(t, "C", anchor)
}

func TestSingleMode(t *testing.T) {
	m := newModel(Single)
	m.SelectItem("A", false, false)
	m.SelectItem("D", true, true)
	assert.Equal(t, []items.Item{"D"}, m.Selected())
	m.SelectAll()
	assert.Equal(t, 1, m.Count())
	m.SelectItem("D", true, false)
	assert.Equal(t, None, m.Status())
}

func TestSetModeCollapses(t *testing.T) {
	m := newModel(Extended)
	m.SelectItem("B", false, false)
	m.SelectItem("D", false, true)
	m.SetMode(Single)
	assert.Equal(t, []items.Item{"B"}, m.Selected())
}

func TestSelectAllClearAndStatus(t *testing.T) {
	m := newModel(Extended)
	calls := 0
	m.OnChange(func() { calls++ })
	assert.Equal(t, None, m.Status())
	m.SelectAll()
	assert.Equal(t, All, m.Status())
	assert.True(t, m.IsSelected("E"))
	m.Deselect("E")
	assert.Equal(t, Some, m.Status())
	m.Deselect("E")
	m.Clear()
	assert.Equal(t, None, m.Status())
	_, ok := m.Anchor()
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
}

func TestRetain(t *testing.T) {
	m := newModel(Extended)
	m.SelectItem("B", false, false)
	m.SelectItem("D", false, true)
	m.Retain([]items.Item{"A", "C", "D"})
	assert.Equal(t, []items.Item{"C", "D"}, m.Selected())
	assert.False(t, m.IsSelected("B"))
	_, ok := m.Anchor()
	assert.False(t, ok, "anchor B was removed")
}

func TestMapItemsUseIdentity(t *testing.T) {
	a := map[string]any{"id": 1}
	b := map[string]any{"id": 1}
	m := NewModel(Extended)
	m.SetOrder([]items.Item{a, b})
	m.SelectItem(a, false, false)
	assert.True(t, m.IsSelected(a))
	assert.False(t, m.IsSelected(b))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Single")
	require.NoError(t, err)
	assert.Equal(t, Single, mode)
	_, err = ParseMode("many")
	assert.Error(t, err)
	assert.Equal(t, "extended", Extended.String())
}
