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

package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxyholic/teamselect/distribution/model"
)

// Team is one replica-placement group: a fixed group of storage nodes that
// jointly hold a replica set of some part of the keyspace.
//
// A Team is shared by multiple concurrent holders (the team collection,
// in-flight placement requests, movement executors). Every method is safe to
// call concurrently with every other method; the counter mutators are
// commutative delta updates, the flag mutators are last-writer-wins.
type Team interface {
	// ID returns the stable team identifier.
	ID() string

	// Size returns the current number of members.
	Size() int

	// ServerIDs returns the member replica set, in membership order.
	ServerIDs() []model.ServerID

	// LastKnownInterfaces returns the cached snapshot of each member's
	// storage-node interface. Entries for members that never reported
	// metrics carry only the id.
	LastKnownInterfaces() []model.StorageNodeInfo

	// AddDataInFlight adjusts the bytes of shard data scheduled for movement
	// into this team. Callers pairing an increase must apply the matching
	// decrease on completion or cancellation.
	AddDataInFlight(delta int64)

	// AddReadInFlight adjusts the read load (bytes/s) scheduled toward this
	// team. Same pairing contract as AddDataInFlight.
	AddReadInFlight(delta int64)

	DataInFlight() int64
	ReadInFlight() int64

	// LoadBytes returns the stored-bytes metric. When includeInFlight is set,
	// the in-flight data is added after being scaled by inflightPenalty: 0
	// ignores pending work, 1 counts it at face value, >1 over-penalizes
	// teams that already have work queued.
	LoadBytes(includeInFlight bool, inflightPenalty float64) int64

	// LoadReadBandwidth is the read-load analogue of LoadBytes, in bytes/s.
	LoadReadBandwidth(includeInFlight bool, inflightPenalty float64) float64

	// MinAvailableSpace returns the smallest free capacity across members.
	// When includeInFlight is set, each member is charged its share of the
	// pending in-flight data as if already written.
	MinAvailableSpace(includeInFlight bool) int64

	// MinAvailableSpaceRatio is MinAvailableSpace as a fraction of each
	// member's total capacity.
	MinAvailableSpaceRatio(includeInFlight bool) float64

	// HasHealthyAvailableSpace reports whether the in-flight-projected free
	// ratio stays at or above minRatio.
	HasHealthyAvailableSpace(minRatio float64) bool

	// UpdateStorageMetrics refreshes the cached load and capacity figures
	// from the member nodes. The refresh is all-or-nothing: on error the
	// previously cached snapshot is kept intact.
	UpdateStorageMetrics(ctx context.Context) error

	IsHealthy() bool
	SetHealthy(healthy bool)

	Priority() int
	SetPriority(priority int)

	// IsOptimal reports whether the team matches the ideal replication
	// topology.
	IsOptimal() bool

	IsWrongConfiguration() bool
	SetWrongConfiguration(wrong bool)

	// AddServers appends the given ids to the membership. Membership only
	// grows; a team that must shrink is retired and replaced.
	AddServers(ids []model.ServerID)
}

// NodeMetrics is one storage node's self-report: its identity alongside its
// current load figures.
type NodeMetrics struct {
	Info    model.StorageNodeInfo
	Metrics model.StorageMetrics
}

// MetricsSource answers storage-metrics queries for individual nodes. It is
// implemented by the cluster layer that talks to the nodes; queries may be
// slow or fail transiently.
type MetricsSource interface {
	QueryStorageMetrics(ctx context.Context, id model.ServerID) (NodeMetrics, error)
}

// Describe formats the team id, size and member list into a diagnostic
// string. Derived purely from the Team accessors.
func Describe(t Team) string {
	interfaces := t.LastKnownInterfaces()
	var sb strings.Builder
	fmt.Fprintf(&sb, "TeamID %s; ", t.ID())
	fmt.Fprintf(&sb, "Size %d; ", len(interfaces))
	for i, info := range interfaces {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(info.Addr)
		sb.WriteString(" ")
		sb.WriteString(info.ShortID())
	}
	return sb.String()
}
