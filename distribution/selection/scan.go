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

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/foxyholic/teamselect/common"
	"github.com/foxyholic/teamselect/common/metric"
	"github.com/foxyholic/teamselect/distribution/model"
	"github.com/foxyholic/teamselect/distribution/team"
)

// A request not asking for the true best may stop scanning once this many
// eligible candidates were scored.
const defaultSampleLimit = 10

// Scanner folds a request's comparator over candidate teams the way the team
// collection does: filter by mode and flags, keep the extremal candidate,
// resolve the request's reply exactly once.
type Scanner struct {
	// IncludeUnhealthy admits unhealthy or wrongly configured teams as
	// candidates. Off by default.
	IncludeUnhealthy bool

	// SampleLimit bounds how many eligible candidates a non-true-best scan
	// scores before settling. ModeWantTrueBest always scans everything.
	SampleLimit int

	// HasShardsInRange answers whether a team already hosts at least one
	// shard of the given range. The shard map belongs to the collection, so
	// it is injected here; when nil, the TeamMustHaveShards flag is ignored.
	HasShardsInRange func(t team.Team, keys *model.KeyRange) bool

	log *slog.Logger

	requestsTotal metric.Counter
	resolvedMatch metric.Counter
	resolvedExact metric.Counter
	resolvedEmpty metric.Counter
}

func NewScanner() *Scanner {
	return &Scanner{
		SampleLimit: defaultSampleLimit,
		log: slog.With(
			slog.String("component", "team-scanner"),
		),
		requestsTotal: metric.NewCounter("teamselect_selection_requests",
			"Placement requests scanned", "count", nil),
		resolvedMatch: metric.NewCounter("teamselect_selection_resolved_match",
			"Requests resolved with a winning team", "count", nil),
		resolvedExact: metric.NewCounter("teamselect_selection_resolved_exact_match",
			"Requests whose winner exactly matched the source set", "count", nil),
		resolvedEmpty: metric.NewCounter("teamselect_selection_resolved_empty",
			"Requests resolved with no eligible team", "count", nil),
	}
}

// SelectBest scans the candidates and resolves req with the best eligible
// team, or with an empty result when none qualifies. It returns the resolved
// outcome for callers that already have it in hand.
func (s *Scanner) SelectBest(req *Request, candidates []team.Team) Result {
	s.requestsTotal.Inc()

	var best team.Team
	scored := 0
	for _, t := range candidates {
		if !s.eligible(req, t) {
			continue
		}
		if best == nil || req.IsBetter(t, best) {
			best = t
		}
		scored++
		if req.Mode != ModeWantTrueBest && s.SampleLimit > 0 && scored >= s.SampleLimit {
			break
		}
	}

	if best == nil {
		s.resolvedEmpty.Inc()
		s.log.Debug(
			"No eligible team",
			slog.String("request", req.Describe()),
		)
		req.ResolveEmpty()
		return Result{}
	}

	res := Result{
		Team:       best,
		ExactMatch: s.exactMatch(req, best),
	}
	s.resolvedMatch.Inc()
	if res.ExactMatch {
		s.resolvedExact.Inc()
	}
	s.log.Debug(
		"Selected team",
		slog.String("request", req.Describe()),
		slog.String("team", team.Describe(best)),
		slog.String("load", humanize.IBytes(uint64(max(best.LoadBytes(true, req.InflightPenalty), 0)))),
	)
	req.Resolve(res)
	return res
}

func (s *Scanner) eligible(req *Request, t team.Team) bool {
	if !s.IncludeUnhealthy && (!t.IsHealthy() || t.IsWrongConfiguration()) {
		return false
	}

	members := common.NewSetFrom(t.ServerIDs())

	// An empty complete-source set gives the filter nothing to enforce, as
	// with by-servers requests.
	if req.Mode == ModeWantCompleteSources && !req.CompleteSources.IsEmpty() &&
		!req.CompleteSources.ContainsAll(members) {
		return false
	}
	if req.FindTeamByServers && !members.Equals(req.Sources) {
		return false
	}
	if req.TeamMustHaveShards && s.HasShardsInRange != nil && !s.HasShardsInRange(t, req.Keys) {
		return false
	}
	return true
}

func (s *Scanner) exactMatch(req *Request, t team.Team) bool {
	members := common.NewSetFrom(t.ServerIDs())
	src := req.CompleteSources
	if req.FindTeamByServers {
		src = req.Sources
	}
	return !src.IsEmpty() && members.Equals(src)
}
