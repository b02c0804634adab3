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

// StorageMetrics is one sample of a storage node's load figures, as reported
// by the node itself.
type StorageMetrics struct {
	// StoredBytes is the logical bytes currently stored on the node.
	StoredBytes int64 `json:"stored-bytes" yaml:"storedBytes"`

	// ReadBandwidth is the node's current read throughput, in bytes/s.
	ReadBandwidth float64 `json:"read-bandwidth" yaml:"readBandwidth"`

	// AvailableBytes is the free capacity left on the node.
	AvailableBytes int64 `json:"available-bytes" yaml:"availableBytes"`

	// TotalBytes is the node's total capacity.
	TotalBytes int64 `json:"total-bytes" yaml:"totalBytes"`
}

// AvailableRatio returns the free capacity as a fraction of total capacity.
// A node with unknown capacity counts as full.
func (m StorageMetrics) AvailableRatio() float64 {
	if m.TotalBytes <= 0 {
		return 0
	}
	return float64(m.AvailableBytes) / float64(m.TotalBytes)
}
