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
	"log/slog"

	"golang.org/x/text/language"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/selection"
	"github.com/google/vgrid/core/virtualization"
)

type config struct {
	logger        *slog.Logger
	title         string
	columns       *columns.Set
	lang          language.Tag
	selectionMode selection.Mode
	numericFormat string
	window        []virtualization.Option
}

// Option configures a Grid.
type Option func(*config)

// WithLogger sets the logger. Refreshes are logged at debug level with their
// duration. The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTitle sets the title shown by renderers.
func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithColumns sets the column model. Without it renderers show no columns
// and global search reads no fields.
func WithColumns(cols *columns.Set) Option {
	return func(c *config) { c.columns = cols }
}

// WithLanguage sets the language used to format numbers.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) { c.lang = tag }
}

// WithSelectionMode sets the selection mode. The default is Extended.
func WithSelectionMode(m selection.Mode) Option {
	return func(c *config) { c.selectionMode = m }
}

// WithNumericFormat sets the default format of aggregate values.
func WithNumericFormat(format string) Option {
	return func(c *config) { c.numericFormat = format }
}

// WithRowHeight sets the data row height of the window.
func WithRowHeight(h float64) Option {
	return WithWindowOptions(virtualization.WithRowHeight(h))
}

// WithHeaderHeight sets the group header height of the window.
func WithHeaderHeight(h float64) Option {
	return WithWindowOptions(virtualization.WithHeaderHeight(h))
}

// WithBufferCount sets the number of rows realized beyond the viewport.
func WithBufferCount(n int) Option {
	return WithWindowOptions(virtualization.WithBufferCount(n))
}

// WithViewportHeight sets the initial viewport height.
func WithViewportHeight(h float64) Option {
	return WithWindowOptions(virtualization.WithViewport(h))
}

// WithHeightFunc gives data rows individual heights.
func WithHeightFunc(fn virtualization.HeightFunc) Option {
	return WithWindowOptions(virtualization.WithHeightFunc(fn))
}

// WithBinder sets the renderer bound to realized rows.
func WithBinder(b virtualization.Binder) Option {
	return WithWindowOptions(virtualization.WithBinder(b))
}

// WithWindowOptions passes options through to the virtualization window.
func WithWindowOptions(opts ...virtualization.Option) Option {
	return func(c *config) { c.window = append(c.window, opts...) }
}
