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
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/foxyholic/teamselect/distribution/model"
)

var _ Team = &storageTeam{}

type storageTeam struct {
	id          string
	desiredSize int
	source      MetricsSource
	log         *slog.Logger

	dataInFlight atomic.Int64
	readInFlight atomic.Int64

	healthy            atomic.Bool
	wrongConfiguration atomic.Bool
	optimal            atomic.Bool
	priority           atomic.Int32

	mu        sync.RWMutex
	members   []model.ServerID
	lastKnown map[model.ServerID]model.StorageNodeInfo
	metrics   map[model.ServerID]model.StorageMetrics
}

// NewTeam creates a team over the given member nodes. desiredSize is the
// replication factor the team ought to have: the team is optimal while its
// membership matches it. New teams start healthy until the collection says
// otherwise.
func NewTeam(source MetricsSource, nodes []model.StorageNodeInfo, desiredSize int) Team {
	t := &storageTeam{
		id:          uuid.NewString(),
		desiredSize: desiredSize,
		source:      source,
		members:     make([]model.ServerID, 0, len(nodes)),
		lastKnown:   make(map[model.ServerID]model.StorageNodeInfo, len(nodes)),
		metrics:     map[model.ServerID]model.StorageMetrics{},
	}
	for _, n := range nodes {
		t.members = append(t.members, n.ID)
		t.lastKnown[n.ID] = n
	}
	t.log = slog.With(
		slog.String("component", "storage-team"),
		slog.String("team-id", t.id),
	)
	t.healthy.Store(true)
	t.optimal.Store(len(nodes) == desiredSize)
	return t
}

func (t *storageTeam) ID() string {
	return t.id
}

func (t *storageTeam) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

func (t *storageTeam) ServerIDs() []model.ServerID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]model.ServerID, len(t.members))
	copy(ids, t.members)
	return ids
}

func (t *storageTeam) LastKnownInterfaces() []model.StorageNodeInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	infos := make([]model.StorageNodeInfo, 0, len(t.members))
	for _, id := range t.members {
		infos = append(infos, t.lastKnown[id])
	}
	return infos
}

func (t *storageTeam) AddDataInFlight(delta int64) {
	t.dataInFlight.Add(delta)
}

func (t *storageTeam) AddReadInFlight(delta int64) {
	t.readInFlight.Add(delta)
}

func (t *storageTeam) DataInFlight() int64 {
	return t.dataInFlight.Load()
}

func (t *storageTeam) ReadInFlight() int64 {
	return t.readInFlight.Load()
}

func (t *storageTeam) LoadBytes(includeInFlight bool, inflightPenalty float64) int64 {
	t.mu.RLock()
	var stored int64
	for _, m := range t.metrics {
		stored += m.StoredBytes
	}
	t.mu.RUnlock()

	if includeInFlight {
		stored += int64(float64(t.dataInFlight.Load()) * inflightPenalty)
	}
	return stored
}

func (t *storageTeam) LoadReadBandwidth(includeInFlight bool, inflightPenalty float64) float64 {
	t.mu.RLock()
	var bandwidth float64
	for _, m := range t.metrics {
		bandwidth += m.ReadBandwidth
	}
	t.mu.RUnlock()

	if includeInFlight {
		bandwidth += float64(t.readInFlight.Load()) * inflightPenalty
	}
	return bandwidth
}

func (t *storageTeam) MinAvailableSpace(includeInFlight bool) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	minAvailable := int64(math.MaxInt64)
	for _, id := range t.members {
		m, ok := t.metrics[id]
		if !ok {
			continue
		}
		available := m.AvailableBytes
		if includeInFlight {
			available -= t.inFlightShareLocked()
		}
		if available < 0 {
			available = 0
		}
		if available < minAvailable {
			minAvailable = available
		}
	}
	return minAvailable
}

func (t *storageTeam) MinAvailableSpaceRatio(includeInFlight bool) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	minRatio := 1.0
	for _, id := range t.members {
		m, ok := t.metrics[id]
		if !ok {
			continue
		}
		if m.TotalBytes <= 0 {
			return 0
		}
		available := m.AvailableBytes
		if includeInFlight {
			available -= t.inFlightShareLocked()
		}
		if available < 0 {
			available = 0
		}
		if ratio := float64(available) / float64(m.TotalBytes); ratio < minRatio {
			minRatio = ratio
		}
	}
	return minRatio
}

// inFlightShareLocked is the slice of the pending in-flight data each member
// would receive. Callers hold t.mu.
func (t *storageTeam) inFlightShareLocked() int64 {
	if len(t.members) == 0 {
		return 0
	}
	return t.dataInFlight.Load() / int64(len(t.members))
}

func (t *storageTeam) HasHealthyAvailableSpace(minRatio float64) bool {
	return t.MinAvailableSpaceRatio(true) >= minRatio
}

func (t *storageTeam) UpdateStorageMetrics(ctx context.Context) error {
	members := t.ServerIDs()

	var err error
	reports := make(map[model.ServerID]NodeMetrics, len(members))
	for _, id := range members {
		report, queryErr := t.source.QueryStorageMetrics(ctx, id)
		if queryErr != nil {
			err = multierr.Append(err, errors.Wrapf(queryErr, "failed to query storage metrics from server %s", id))
			continue
		}
		reports[id] = report
	}
	if err != nil {
		// Keep the previous snapshot intact.
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, report := range reports {
		t.metrics[id] = report.Metrics
		t.lastKnown[id] = report.Info
	}
	// Drop metrics of servers the snapshot no longer covers. Membership only
	// grows, so in practice this is a no-op.
	for id := range t.metrics {
		if _, ok := reports[id]; !ok {
			delete(t.metrics, id)
		}
	}
	t.log.Debug("Refreshed storage metrics", slog.Int("servers", len(reports)))
	return nil
}

func (t *storageTeam) IsHealthy() bool {
	return t.healthy.Load()
}

func (t *storageTeam) SetHealthy(healthy bool) {
	t.healthy.Store(healthy)
}

func (t *storageTeam) Priority() int {
	return int(t.priority.Load())
}

func (t *storageTeam) SetPriority(priority int) {
	t.priority.Store(int32(priority))
}

func (t *storageTeam) IsOptimal() bool {
	return t.optimal.Load()
}

func (t *storageTeam) IsWrongConfiguration() bool {
	return t.wrongConfiguration.Load()
}

func (t *storageTeam) SetWrongConfiguration(wrong bool) {
	t.wrongConfiguration.Store(wrong)
}

func (t *storageTeam) AddServers(ids []model.ServerID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing := make(map[model.ServerID]bool, len(t.members))
	for _, id := range t.members {
		existing[id] = true
	}
	for _, id := range ids {
		if existing[id] {
			continue
		}
		t.members = append(t.members, id)
		existing[id] = true
		if _, ok := t.lastKnown[id]; !ok {
			t.lastKnown[id] = model.StorageNodeInfo{ID: id}
		}
	}
	t.optimal.Store(len(t.members) == t.desiredSize)
}
