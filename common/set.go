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

package common

import (
	"sort"

	"golang.org/x/exp/constraints"
)

type Set[T constraints.Ordered] interface {
	Add(t T)
	Remove(t T)
	Contains(t T) bool
	ContainsAll(other Set[T]) bool
	Equals(other Set[T]) bool
	Count() int
	IsEmpty() bool
	GetSorted() []T
}

func NewSet[T constraints.Ordered]() Set[T] {
	return &set[T]{
		Items: map[T]bool{},
	}
}

func NewSetFrom[T constraints.Ordered](i []T) Set[T] {
	s := NewSet[T]()
	for _, x := range i {
		s.Add(x)
	}
	return s
}

// UnionOf collects every element appearing in at least one of the slices.
func UnionOf[T constraints.Ordered](groups ...[]T) Set[T] {
	s := NewSet[T]()
	for _, g := range groups {
		for _, x := range g {
			s.Add(x)
		}
	}
	return s
}

// IntersectionOf collects the elements appearing in every one of the slices.
// The intersection of zero slices is empty.
func IntersectionOf[T constraints.Ordered](groups ...[]T) Set[T] {
	s := NewSet[T]()
	if len(groups) == 0 {
		return s
	}
	rest := make([]Set[T], 0, len(groups)-1)
	for _, g := range groups[1:] {
		rest = append(rest, NewSetFrom(g))
	}
	for _, x := range groups[0] {
		inAll := true
		for _, r := range rest {
			if !r.Contains(x) {
				inAll = false
				break
			}
		}
		if inAll {
			s.Add(x)
		}
	}
	return s
}

type set[T constraints.Ordered] struct {
	Items map[T]bool
}

func (s *set[T]) Add(t T) {
	s.Items[t] = true
}

func (s *set[T]) Remove(t T) {
	delete(s.Items, t)
}

func (s *set[T]) Contains(t T) bool {
	_, found := s.Items[t]
	return found
}

func (s *set[T]) ContainsAll(other Set[T]) bool {
	for _, x := range other.GetSorted() {
		if !s.Contains(x) {
			return false
		}
	}
	return true
}

func (s *set[T]) Equals(other Set[T]) bool {
	if s.Count() != other.Count() {
		return false
	}
	return s.ContainsAll(other)
}

func (s *set[T]) Count() int {
	return len(s.Items)
}

func (s *set[T]) IsEmpty() bool {
	return s.Count() == 0
}

func (s *set[T]) GetSorted() []T {
	r := make([]T, 0, len(s.Items))
	for k := range s.Items {
		r = append(r, k)
	}

	sort.SliceStable(r, func(i, j int) bool {
		return r[i] < r[j]
	})
	return r
}
