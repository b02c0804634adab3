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
	"context"
	"fmt"
	"strings"

	"github.com/foxyholic/teamselect/common"
	"github.com/foxyholic/teamselect/common/concurrent"
	"github.com/foxyholic/teamselect/distribution/model"
	"github.com/foxyholic/teamselect/distribution/team"
)

// Result is the outcome of a placement request. A nil Team means no eligible
// team exists right now; that is a normal outcome, not an error. ExactMatch
// reports whether the winning team's member set is exactly the request's
// source set (Sources for by-servers requests, CompleteSources otherwise).
type Result struct {
	Team       team.Team
	ExactMatch bool
}

// Options are the scoring knobs of a placement request.
type Options struct {
	// PreferLowerDiskUtil makes the less loaded team win the disk-load
	// comparison. By default the more loaded team wins.
	PreferLowerDiskUtil bool

	// TeamMustHaveShards restricts candidates to teams already hosting at
	// least one shard of the request's key range. Interpreted by the
	// candidate scan, not by the comparator.
	TeamMustHaveShards bool

	// ForReadBalance ranks by read bandwidth before disk load.
	ForReadBalance bool

	// PreferLowerReadUtil makes the lower-bandwidth team win the read
	// comparison. Only meaningful when ForReadBalance is set; ignored
	// otherwise.
	PreferLowerReadUtil bool

	// InflightPenalty scales the in-flight portion of every load figure the
	// comparator fetches. 0 ignores pending work, 1 counts it at face value,
	// >1 discourages piling onto teams with work already queued.
	InflightPenalty float64

	// Keys optionally scopes candidate enumeration to teams relevant to this
	// range.
	Keys *model.KeyRange
}

// DefaultOptions counts in-flight work at face value and prefers the more
// loaded team, matching the historical defaults of the movement scheduler.
func DefaultOptions() Options {
	return Options{
		InflightPenalty: 1.0,
	}
}

// Request describes what kind of team is wanted and how candidates are
// scored. The policy fields are set at construction and must not be mutated
// afterwards; CompleteSources and Sources are filled in by the team
// collection while it resolves the affected shards.
//
// The reply is a one-shot future: it is resolved exactly once, with a winning
// team or with an empty Result. Dropping the request without resolving it
// surfaces concurrent.ErrDropped to the waiter.
type Request struct {
	Mode Mode
	Options

	// FindTeamByServers restricts candidates to the team whose member set
	// exactly equals Sources. Interpreted by the candidate scan.
	FindTeamByServers bool

	// CompleteSources holds the servers having every shard of the range
	// under consideration (intersection of the shards' member sets).
	CompleteSources common.Set[model.ServerID]

	// Sources holds the servers having at least one shard of the range
	// (union of the shards' member sets).
	Sources common.Set[model.ServerID]

	reply concurrent.Future[Result]
}

func NewRequest(mode Mode, opts Options) *Request {
	return &Request{
		Mode:            mode,
		Options:         opts,
		CompleteSources: common.NewSet[model.ServerID](),
		Sources:         common.NewSet[model.ServerID](),
		reply:           concurrent.NewFuture[Result](),
	}
}

// NewRequestByServers asks for the team whose member set is exactly the given
// servers. Used by the movement executor to re-resolve a team it already
// committed to.
func NewRequestByServers(servers []model.ServerID) *Request {
	r := NewRequest(ModeWantCompleteSources, DefaultOptions())
	r.FindTeamByServers = true
	r.Sources = common.NewSetFrom(servers)
	return r
}

// Reply exposes the one-shot reply future. The resolving side calls Complete
// (or Close when tearing down without an answer); the requester calls Await.
func (r *Request) Reply() concurrent.Future[Result] {
	return r.reply
}

// Resolve completes the request with the given outcome. Reports false if the
// request was already resolved.
func (r *Request) Resolve(res Result) bool {
	return r.reply.Complete(res)
}

// ResolveEmpty completes the request with "no eligible team".
func (r *Request) ResolveEmpty() bool {
	return r.reply.Complete(Result{})
}

// Await blocks until the request is resolved, ctx expires, or the resolving
// side dropped the request (concurrent.ErrDropped).
func (r *Request) Await(ctx context.Context) (Result, error) {
	return r.reply.Wait(ctx)
}

// IsBetter reports whether candidate a should be preferred over candidate b.
//
// When ForReadBalance is set, read bandwidth is compared first: the lower
// figure wins under PreferLowerReadUtil, the higher one otherwise, and equal
// figures fall through. The disk-load comparison then prefers the higher
// LoadBytes score unless PreferLowerDiskUtil is set. Full ties yield false,
// so a fold over candidates keeps the first-enumerated of equals.
//
// Both figures include in-flight work, scaled by the request's
// InflightPenalty.
func (r *Request) IsBetter(a, b team.Team) bool {
	if r.ForReadBalance {
		readA := a.LoadReadBandwidth(true, r.InflightPenalty)
		readB := b.LoadReadBandwidth(true, r.InflightPenalty)
		if readA != readB {
			if r.PreferLowerReadUtil {
				return readA < readB
			}
			return readA > readB
		}
	}

	loadA := a.LoadBytes(true, r.InflightPenalty)
	loadB := b.LoadBytes(true, r.InflightPenalty)
	if r.PreferLowerDiskUtil {
		return loadA < loadB
	}
	return loadA > loadB
}

// Describe formats the request's mode, flags and complete-source list into a
// diagnostic string.
func (r *Request) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TeamSelect:%s PreferLowerDiskUtil:%t teamMustHaveShards:%t forReadBalance:%t inflightPenalty:%g findTeamByServers:%t;",
		r.Mode, r.PreferLowerDiskUtil, r.TeamMustHaveShards, r.ForReadBalance, r.InflightPenalty, r.FindTeamByServers)
	sb.WriteString("CompleteSources:")
	for _, id := range r.CompleteSources.GetSorted() {
		sb.WriteString(string(id))
		sb.WriteString(",")
	}
	return sb.String()
}
