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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefresherRetriesTransientFailure(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	source.addNode("srv-a", 2000, 20, 400, 1000)
	source.failNext("srv-a", 1)

	err := NewRefresher(tm).Refresh(context.Background())
	assert.NoError(t, err)
	assert.EqualValues(t, 2000+500, tm.LoadBytes(false, 0))
}

func TestRefresherStopsOnCancel(t *testing.T) {
	source := newStubSource()
	tm := newTestTeam(t, source, 1000, 10)

	// The member never recovers; cancellation must end the retry loop.
	source.failNext("srv-b", 1<<30)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := NewRefresher(tm).Refresh(ctx)
	assert.Error(t, err)
}
