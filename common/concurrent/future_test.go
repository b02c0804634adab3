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

package concurrent

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func assertFutureNotReady[T any](t *testing.T, f Future[T]) {
	t.Helper()

	done := make(chan bool, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go func() {
		_, err := f.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		done <- true
	}()

	select {
	case <-done:
		assert.Fail(t, "should have timed out")

	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestFuture(t *testing.T) {
	f := NewFuture[int]()
	assert.False(t, f.Resolved())
	assertFutureNotReady(t, f)

	assert.True(t, f.Complete(5))
	assert.True(t, f.Resolved())
	res, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, res)

	f = NewFuture[int]()
	assert.True(t, f.Fail(io.EOF))
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestFutureSingleResolution(t *testing.T) {
	f := NewFuture[int]()
	assert.True(t, f.Complete(1))
	assert.False(t, f.Complete(2))
	assert.False(t, f.Fail(io.EOF))
	assert.NoError(t, f.Close())

	res, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, res)
}

func TestFutureDropped(t *testing.T) {
	f := NewFuture[int]()
	assert.NoError(t, f.Close())

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrDropped)

	// Completing after the drop must not disturb the delivered error.
	assert.False(t, f.Complete(1))
}

func TestFutureWaitCancelled(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The future is still resolvable afterwards: cancellation of the waiter
	// is not a resolution.
	assert.True(t, f.Complete(7))
}
