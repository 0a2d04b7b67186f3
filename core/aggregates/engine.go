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

package aggregates

import (
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/google/vgrid/core/items"
)

// Request asks for one aggregate over a field.
type Request struct {
	Field    string
	Function Function
	Caption  string // prefixed as "Caption: value" unless Format is set
	Format   string // fmt verb ("%.2f") or shorthand N<d>, F<d>, P<d>
}

// Result is a computed aggregate.
type Result struct {
	Field     string
	Function  Function
	Value     any // int64 for Count, float64 otherwise
	Formatted string
}

// Engine holds the summary requests of a view and computes them.
type Engine struct {
	resolver      *items.Resolver
	requests      []Request
	defaultFormat string
	printer       *message.Printer
	onChange      func()
}

// NewEngine creates an Engine that reads fields through resolver and
// formats numbers for lang.
func NewEngine(resolver *items.Resolver, lang language.Tag) *Engine {
	return &Engine{
		resolver: resolver,
		printer:  message.NewPrinter(lang),
	}
}

// OnChange registers fn to be called when requests or formats change.
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

// SetRequests replaces the summary requests.
func (e *Engine) SetRequests(reqs []Request) {
	e.requests = slices.Clone(reqs)
	e.changed()
}

// Requests returns a copy of the summary requests.
func (e *Engine) Requests() []Request {
	return slices.Clone(e.requests)
}

// SetDefaultFormat sets the format applied to numeric results of requests
// without their own format. An empty format means raw values.
func (e *Engine) SetDefaultFormat(format string) {
	e.defaultFormat = format
	e.changed()
}

// DefaultFormat returns the grid-wide numeric format.
func (e *Engine) DefaultFormat() string {
	return e.defaultFormat
}

// Accumulate builds one State per request over in.
func (e *Engine) Accumulate(in []items.Item, requests []Request) []*State {
	states := make([]*State, len(requests))
	getters := make([]items.Getter, len(requests))
	for i, r := range requests {
		states[i] = NewState()
		getters[i] = e.resolver.Getter(r.Field)
	}
	for _, it := range in {
		for i, g := range getters {
			v, err := read(g, it)
			if err != nil {
				states[i].AddMissing()
				continue
			}
			states[i].Add(v)
		}
	}
	return states
}

// Results turns states built for requests into formatted results.
// Functions without a result (see State.Value) are omitted.
func (e *Engine) Results(states []*State, requests []Request) []Result {
	out := make([]Result, 0, len(requests))
	for i, r := range requests {
		v, ok := states[i].Value(r.Function)
		if !ok {
			continue
		}
		out = append(out, Result{
			Field:     r.Field,
			Function:  r.Function,
			Value:     v,
			Formatted: e.format(r, v),
		})
	}
	return out
}

// Compute evaluates requests over in.
func (e *Engine) Compute(in []items.Item, requests []Request) []Result {
	return e.Results(e.Accumulate(in, requests), requests)
}

// Summary evaluates the engine's own requests over in.
func (e *Engine) Summary(in []items.Item) []Result {
	return e.Compute(in, e.requests)
}

func read(g items.Getter, it items.Item) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, errAccessorPanic
		}
	}()
	return g(it)
}
