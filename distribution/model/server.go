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

// ServerID is the stable identifier of one storage node, unique among
// concurrently live nodes.
type ServerID string

const shortIDLen = 8

// StorageNodeInfo is the last known surface of a storage node: where to reach
// it, and who it claims to be. Cached by teams for diagnostics.
type StorageNodeInfo struct {
	// Addr is the endpoint advertised for node->node traffic
	Addr string `json:"addr" yaml:"addr"`
	// ID is the node's unique identifier
	ID ServerID `json:"id" yaml:"id"`
}

// ShortID returns a truncated identifier for compact log lines.
func (info StorageNodeInfo) ShortID() string {
	if len(info.ID) <= shortIDLen {
		return string(info.ID)
	}
	return string(info.ID[:shortIDLen])
}
