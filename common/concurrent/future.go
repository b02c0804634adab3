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
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/foxyholic/teamselect/common/channel"
)

// ErrDropped is delivered to the waiter when the resolving side closed the
// future without ever completing or failing it.
var ErrDropped = errors.New("future: dropped without resolution")

// Future is a one-shot reply slot. It is resolved at most once: the first of
// Complete, Fail or Close wins and every later call is a no-op reporting
// false. The waiting side calls Wait exactly once.
type Future[T any] interface {
	// Wait until the future is either completed, failed or dropped.
	Wait(ctx context.Context) (T, error)

	// Complete resolves the future with a result.
	Complete(result T) bool

	// Fail resolves the future with an error.
	Fail(err error) bool

	// Close marks the future as dropped if it was not resolved yet.
	// The waiter receives ErrDropped.
	Close() error

	// Resolved reports whether the future has already been resolved.
	Resolved() bool
}

type value[T any] struct {
	t   T
	err error
}

type future[T any] struct {
	resolved atomic.Bool
	val      chan value[T]
}

func NewFuture[T any]() Future[T] {
	return &future[T]{
		val: make(chan value[T], 1),
	}
}

func (f *future[T]) Wait(ctx context.Context) (t T, err error) {
	select {
	case v := <-f.val:
		return v.t, v.err

	case <-ctx.Done():
		return t, ctx.Err()
	}
}

func (f *future[T]) Complete(result T) bool {
	return f.resolve(value[T]{t: result})
}

func (f *future[T]) Fail(err error) bool {
	return f.resolve(value[T]{err: err})
}

func (f *future[T]) Close() error {
	f.resolve(value[T]{err: ErrDropped})
	return nil
}

func (f *future[T]) Resolved() bool {
	return f.resolved.Load()
}

func (f *future[T]) resolve(v value[T]) bool {
	if !f.resolved.CompareAndSwap(false, true) {
		return false
	}

	// The swap succeeds for exactly one caller and the channel has one slot,
	// so the push cannot fail.
	return channel.PushNoBlock(f.val, v)
}
