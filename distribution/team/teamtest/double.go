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

// Package teamtest provides a deterministic Team implementation with
// caller-controlled metrics, for scenario tests of selection policies.
package teamtest

import (
	"context"
	"sync/atomic"

	"github.com/foxyholic/teamselect/distribution/model"
	"github.com/foxyholic/teamselect/distribution/team"
)

var _ team.Team = &Double{}

// Double implements the Team contract over fixed figures. Set the exported
// fields before handing it to the code under test; the in-flight counters and
// classification flags behave like the production team's.
type Double struct {
	TeamID        string
	Members       []model.StorageNodeInfo
	StoredBytes   int64
	ReadBandwidth float64
	MinAvailable  int64
	MinRatio      float64
	RefreshErr    error

	dataInFlight atomic.Int64
	readInFlight atomic.Int64

	healthy            atomic.Bool
	wrongConfiguration atomic.Bool
	optimal            atomic.Bool
	priority           atomic.Int32
}

// New returns a healthy, optimal double with the given id and member ids.
func New(id string, memberIDs ...model.ServerID) *Double {
	d := &Double{
		TeamID:   id,
		MinRatio: 1.0,
	}
	for _, mid := range memberIDs {
		d.Members = append(d.Members, model.StorageNodeInfo{
			Addr: "node-" + string(mid) + ":6648",
			ID:   mid,
		})
	}
	d.healthy.Store(true)
	d.optimal.Store(true)
	return d
}

func (d *Double) WithLoad(storedBytes int64, readBandwidth float64) *Double {
	d.StoredBytes = storedBytes
	d.ReadBandwidth = readBandwidth
	return d
}

func (d *Double) WithAvailableSpace(minAvailable int64, minRatio float64) *Double {
	d.MinAvailable = minAvailable
	d.MinRatio = minRatio
	return d
}

func (d *Double) ID() string {
	return d.TeamID
}

func (d *Double) Size() int {
	return len(d.Members)
}

func (d *Double) ServerIDs() []model.ServerID {
	ids := make([]model.ServerID, 0, len(d.Members))
	for _, m := range d.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (d *Double) LastKnownInterfaces() []model.StorageNodeInfo {
	infos := make([]model.StorageNodeInfo, len(d.Members))
	copy(infos, d.Members)
	return infos
}

func (d *Double) AddDataInFlight(delta int64) {
	d.dataInFlight.Add(delta)
}

func (d *Double) AddReadInFlight(delta int64) {
	d.readInFlight.Add(delta)
}

func (d *Double) DataInFlight() int64 {
	return d.dataInFlight.Load()
}

func (d *Double) ReadInFlight() int64 {
	return d.readInFlight.Load()
}

func (d *Double) LoadBytes(includeInFlight bool, inflightPenalty float64) int64 {
	load := d.StoredBytes
	if includeInFlight {
		load += int64(float64(d.dataInFlight.Load()) * inflightPenalty)
	}
	return load
}

func (d *Double) LoadReadBandwidth(includeInFlight bool, inflightPenalty float64) float64 {
	bandwidth := d.ReadBandwidth
	if includeInFlight {
		bandwidth += float64(d.readInFlight.Load()) * inflightPenalty
	}
	return bandwidth
}

func (d *Double) MinAvailableSpace(includeInFlight bool) int64 {
	available := d.MinAvailable
	if includeInFlight && len(d.Members) > 0 {
		available -= d.dataInFlight.Load() / int64(len(d.Members))
	}
	if available < 0 {
		available = 0
	}
	return available
}

func (d *Double) MinAvailableSpaceRatio(_ bool) float64 {
	return d.MinRatio
}

func (d *Double) HasHealthyAvailableSpace(minRatio float64) bool {
	return d.MinAvailableSpaceRatio(true) >= minRatio
}

func (d *Double) UpdateStorageMetrics(context.Context) error {
	return d.RefreshErr
}

func (d *Double) IsHealthy() bool {
	return d.healthy.Load()
}

func (d *Double) SetHealthy(healthy bool) {
	d.healthy.Store(healthy)
}

func (d *Double) Priority() int {
	return int(d.priority.Load())
}

func (d *Double) SetPriority(priority int) {
	d.priority.Store(int32(priority))
}

func (d *Double) IsOptimal() bool {
	return d.optimal.Load()
}

func (d *Double) SetOptimal(optimal bool) {
	d.optimal.Store(optimal)
}

func (d *Double) IsWrongConfiguration() bool {
	return d.wrongConfiguration.Load()
}

func (d *Double) SetWrongConfiguration(wrong bool) {
	d.wrongConfiguration.Store(wrong)
}

func (d *Double) AddServers(ids []model.ServerID) {
	existing := map[model.ServerID]bool{}
	for _, m := range d.Members {
		existing[m.ID] = true
	}
	for _, id := range ids {
		if !existing[id] {
			d.Members = append(d.Members, model.StorageNodeInfo{ID: id})
		}
	}
}
