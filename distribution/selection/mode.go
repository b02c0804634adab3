// Copyright 2024 Foxyholic, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package selection

// Mode picks which teams are eligible candidates for a placement request.
type Mode int8

const (
	// ModeAny applies no filtering beyond the request's boolean flags.
	ModeAny Mode = iota

	// ModeWantCompleteSources restricts candidates to teams entirely composed
	// of servers that already hold every shard of the range, to keep data
	// where it is.
	ModeWantCompleteSources

	// ModeWantTrueBest disables scan shortcuts and forces a full scan for the
	// globally most (or least) utilized team.
	ModeWantTrueBest
)

func (m Mode) String() string {
	switch m {
	case ModeWantCompleteSources:
		return "Want_Complete_Srcs"
	case ModeWantTrueBest:
		return "Want_True_Best"
	case ModeAny:
		return "Any"
	}
	return "Unknown"
}
