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

// Reason names what changed when a grid is invalidated.
type Reason int

const (
	ReasonSource Reason = iota
	ReasonFilter
	ReasonSort
	ReasonGrouping
	ReasonExpand
	ReasonAggregates
	ReasonViewport
)

func (r Reason) String() string {
	switch r {
	case ReasonSource:
		return "source"
	case ReasonFilter:
		return "filter"
	case ReasonSort:
		return "sort"
	case ReasonGrouping:
		return "grouping"
	case ReasonExpand:
		return "expand"
	case ReasonAggregates:
		return "aggregates"
	case ReasonViewport:
		return "viewport"
	}
	return "unknown"
}

// stage is a set of pipeline steps that must run again.
type stage uint8

const (
	stageFilter stage = 1 << iota
	stageSort
	stageGroup
	stageAggregate
	stageCompose
	stageWindow
)

const stageAll = stageFilter | stageSort | stageGroup | stageAggregate | stageCompose | stageWindow

// stages returns the steps invalidated by r. Every step also invalidates
// the steps after it that consume its output.
func (r Reason) stages() stage {
	switch r {
	case ReasonSource, ReasonFilter:
		return stageAll
	case ReasonSort:
		return stageSort | stageGroup | stageAggregate | stageCompose | stageWindow
	case ReasonGrouping:
		return stageGroup | stageAggregate | stageCompose | stageWindow
	case ReasonExpand:
		return stageCompose | stageWindow
	case ReasonAggregates:
		return stageAggregate
	case ReasonViewport:
		return stageWindow
	}
	return stageAll
}

func (s stage) has(o stage) bool {
	return s&o != 0
}
