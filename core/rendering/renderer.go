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

// Package rendering turns window view models into HTML pages and terminal
// text. Both renderers only read the realized rows of a window.
package rendering

import (
	"bytes"
	"embed"
	"fmt"
	"io"

	"github.com/google/safehtml/template"

	"github.com/google/vgrid/core/views"
)

//go:embed templates/*
var templateFS embed.FS

const (
	windowPage  = "window.html"
	landingPage = "landing.html"
)

// HTMLRenderer renders view models with the embedded page templates. Pages
// are executed into a buffer first, so a failed page writes nothing.
type HTMLRenderer struct {
	pages map[string]*template.Template
}

// NewHTMLRenderer parses the embedded templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	trusted := template.TrustedFSFromEmbed(templateFS)
	r := &HTMLRenderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{windowPage, landingPage} {
		t, err := template.New(name).ParseFS(trusted, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *HTMLRenderer) execute(w io.Writer, page string, data any) error {
	var buf bytes.Buffer
	if err := r.pages[page].Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Render writes the grid page of vm.
func (r *HTMLRenderer) Render(w io.Writer, vm views.WindowViewModel) error {
	return r.execute(w, windowPage, vm)
}

// RenderLanding writes the source list page.
func (r *HTMLRenderer) RenderLanding(w io.Writer, vm views.LandingViewModel) error {
	return r.execute(w, landingPage, vm)
}
