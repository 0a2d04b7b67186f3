//go:build vgriddebug

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

package virtualization

import "fmt"

// checkWindow panics when the realized rows break the window bounds.
func checkWindow(w *Window) {
	if got, limit := w.end-w.start+1, w.ViewportRows()+2*w.buffer; got > limit {
		panic(fmt.Sprintf("virtualization: range [%d, %d] spans %d entries, limit %d", w.start, w.end, got, limit))
	}
	if got := len(w.pool.realized); got > max(0, w.end-w.start+1) {
		panic(fmt.Sprintf("virtualization: %d rows realized for range [%d, %d]", got, w.start, w.end))
	}
	for i, r := range w.pool.realized {
		if i < w.start || i > w.end || i >= len(w.entries) {
			panic(fmt.Sprintf("virtualization: row %s bound to %d outside [%d, %d]", r.ID, i, w.start, w.end))
		}
		if r.Index != i || !r.bound || r.Generation != w.generation {
			panic(fmt.Sprintf("virtualization: row %s is stale", r.ID))
		}
	}
}
