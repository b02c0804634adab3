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
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/foxyholic/teamselect/distribution/model"
)

// stubSource reports fixed metrics and can be told to fail for some servers.
type stubSource struct {
	mu      sync.Mutex
	nodes   map[model.ServerID]NodeMetrics
	failing map[model.ServerID]int
}

func newStubSource() *stubSource {
	return &stubSource{
		nodes:   map[model.ServerID]NodeMetrics{},
		failing: map[model.ServerID]int{},
	}
}

func (s *stubSource) addNode(id model.ServerID, stored int64, readBandwidth float64, available, total int64) model.StorageNodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := model.StorageNodeInfo{
		Addr: fmt.Sprintf("%s.storage.local:6648", id),
		ID:   id,
	}
	s.nodes[id] = NodeMetrics{
		Info: info,
		Metrics: model.StorageMetrics{
			StoredBytes:    stored,
			ReadBandwidth:  readBandwidth,
			AvailableBytes: available,
			TotalBytes:     total,
		},
	}
	return info
}

func (s *stubSource) failNext(id model.ServerID, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = times
}

func (s *stubSource) QueryStorageMetrics(_ context.Context, id model.ServerID) (NodeMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[id] > 0 {
		s.failing[id]--
		return NodeMetrics{}, errors.Errorf("server %s unreachable", id)
	}
	report, ok := s.nodes[id]
	if !ok {
		return NodeMetrics{}, errors.Errorf("unknown server %s", id)
	}
	return report, nil
}

func newTestTeam(t *testing.T, source *stubSource, stored int64, readBandwidth float64) Team {
	t.Helper()
	infos := []model.StorageNodeInfo{
		source.addNode("srv-a", stored/2, readBandwidth/2, 500, 1000),
		source.addNode("srv-b", stored/2, readBandwidth/2, 800, 1000),
	}
	tm := NewTeam(source, infos, 2)
	assert.NoError(t, tm.UpdateStorageMetrics(context.Background()))
	return tm
}

func TestTeamDataInFlightCommutes(t *testing.T) {
	source := newStubSource()
	a := newTestTeam(t, source, 1000, 10)
	b := newTestTeam(t, source, 1000, 10)

	a.AddDataInFlight(100)
	a.AddDataInFlight(-30)

	b.AddDataInFlight(-30)
	b.AddDataInFlight(100)

	assert.EqualValues(t, 70, a.DataInFlight())
	assert.EqualValues(t, 70, b.DataInFlight())
}

func TestTeamLoadBytesExcludesInFlight(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	base := tm.LoadBytes(false, 1.0)
	tm.AddDataInFlight(5000)
	tm.AddDataInFlight(123)
	assert.Equal(t, base, tm.LoadBytes(false, 1.0))
	assert.Equal(t, base+5123, tm.LoadBytes(true, 1.0))
}

func TestTeamInflightPenalty(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)
	tm.AddDataInFlight(200)

	assert.EqualValues(t, 1000, tm.LoadBytes(true, 0))
	assert.EqualValues(t, 1200, tm.LoadBytes(true, 1.0))
	assert.EqualValues(t, 1400, tm.LoadBytes(true, 2.0))

	tm.AddReadInFlight(50)
	assert.InDelta(t, 10, tm.LoadReadBandwidth(true, 0), 1e-9)
	assert.InDelta(t, 60, tm.LoadReadBandwidth(true, 1.0), 1e-9)
	assert.InDelta(t, 110, tm.LoadReadBandwidth(true, 2.0), 1e-9)
}

func TestTeamMinAvailableSpace(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	// srv-a has 500 of 1000 available.
	assert.EqualValues(t, 500, tm.MinAvailableSpace(false))
	assert.InDelta(t, 0.5, tm.MinAvailableSpaceRatio(false), 1e-9)

	// 400 bytes in flight, split over the 2 members.
	tm.AddDataInFlight(400)
	assert.EqualValues(t, 300, tm.MinAvailableSpace(true))
	assert.InDelta(t, 0.3, tm.MinAvailableSpaceRatio(true), 1e-9)
}

func TestTeamHasHealthyAvailableSpace(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	for _, ratio := range []float64{0, 0.1, 0.3, 0.5, 0.7, 1.0} {
		assert.Equal(t, tm.MinAvailableSpaceRatio(true) >= ratio, tm.HasHealthyAvailableSpace(ratio),
			"minRatio=%f", ratio)
	}
}

func TestTeamRefreshAllOrNothing(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	before := tm.LoadBytes(false, 0)
	source.addNode("srv-a", 9999, 99, 1, 1000)
	source.failNext("srv-b", 1)

	err := tm.UpdateStorageMetrics(context.Background())
	assert.Error(t, err)

	// The partial snapshot was discarded.
	assert.Equal(t, before, tm.LoadBytes(false, 0))
	assert.EqualValues(t, 500, tm.MinAvailableSpace(false))

	// Once all members answer, the refresh applies.
	assert.NoError(t, tm.UpdateStorageMetrics(context.Background()))
	assert.EqualValues(t, 9999+500, tm.LoadBytes(false, 0))
}

func TestTeamFlags(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	assert.True(t, tm.IsHealthy())
	tm.SetHealthy(false)
	assert.False(t, tm.IsHealthy())

	assert.False(t, tm.IsWrongConfiguration())
	tm.SetWrongConfiguration(true)
	assert.True(t, tm.IsWrongConfiguration())

	assert.Equal(t, 0, tm.Priority())
	tm.SetPriority(200)
	assert.Equal(t, 200, tm.Priority())
}

func TestTeamAddServers(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)
	assert.Equal(t, 2, tm.Size())
	assert.True(t, tm.IsOptimal())

	source.addNode("srv-c", 100, 1, 900, 1000)
	tm.AddServers([]model.ServerID{"srv-c", "srv-a"})
	assert.Equal(t, 3, tm.Size())
	assert.Equal(t, []model.ServerID{"srv-a", "srv-b", "srv-c"}, tm.ServerIDs())

	// Membership grew past the desired size.
	assert.False(t, tm.IsOptimal())

	// The new member has no cached interface until the next refresh.
	infos := tm.LastKnownInterfaces()
	assert.Equal(t, "", infos[2].Addr)
	assert.NoError(t, tm.UpdateStorageMetrics(context.Background()))
	infos = tm.LastKnownInterfaces()
	assert.Equal(t, "srv-c.storage.local:6648", infos[2].Addr)
}

func TestTeamDescribe(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	desc := Describe(tm)
	assert.Contains(t, desc, fmt.Sprintf("TeamID %s", tm.ID()))
	assert.Contains(t, desc, "Size 2")
	assert.Contains(t, desc, "srv-a.storage.local:6648 srv-a")
	assert.Contains(t, desc, "srv-b.storage.local:6648 srv-b")
}

func TestTeamConcurrentAccounting(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	const workers = 10
	const iterations = 1000

	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				tm.AddDataInFlight(3)
				tm.AddReadInFlight(1)
				tm.AddDataInFlight(-1)
				_ = tm.LoadBytes(true, 1.0)
				_ = tm.IsHealthy()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, workers*iterations*2, tm.DataInFlight())
	assert.EqualValues(t, workers*iterations, tm.ReadInFlight())
}
