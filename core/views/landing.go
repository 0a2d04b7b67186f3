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

package views

import "github.com/google/safehtml"

// SourceInfo describes one data source on the landing page.
type SourceInfo struct {
	Name        string
	Description string
	Type        string
	Items       int // -1 when the source is not loaded yet
	URL         safehtml.URL
}

// LandingViewModel lists the data sources a server offers.
type LandingViewModel struct {
	Title    string
	Subtitle string
	Sources  []SourceInfo
}
