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

package model

import (
	"bytes"
	"fmt"
)

// KeyRange is a half-open range of keys [Begin, End). An empty End means the
// range extends to the end of the keyspace.
type KeyRange struct {
	Begin []byte
	End   []byte
}

func (r KeyRange) Contains(key []byte) bool {
	if bytes.Compare(key, r.Begin) < 0 {
		return false
	}
	return len(r.End) == 0 || bytes.Compare(key, r.End) < 0
}

// Overlaps reports whether the two ranges share at least one key.
func (r KeyRange) Overlaps(other KeyRange) bool {
	if len(r.End) != 0 && bytes.Compare(r.End, other.Begin) <= 0 {
		return false
	}
	if len(other.End) != 0 && bytes.Compare(other.End, r.Begin) <= 0 {
		return false
	}
	return true
}

func (r KeyRange) String() string {
	return fmt.Sprintf("[%q, %q)", r.Begin, r.End)
}
