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
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultRefreshInterval = 1 * time.Minute

// Refresher retries the transient failures of a team's storage-metrics
// refresh, and can run the refresh periodically. Failed refreshes leave the
// team's cached metrics stale, never corrupted, so retrying is always safe.
type Refresher struct {
	team     Team
	interval time.Duration
	log      *slog.Logger
}

func NewRefresher(t Team) *Refresher {
	return &Refresher{
		team:     t,
		interval: defaultRefreshInterval,
		log: slog.With(
			slog.String("component", "team-metrics-refresher"),
			slog.String("team-id", t.ID()),
		),
	}
}

func (r *Refresher) WithInterval(interval time.Duration) *Refresher {
	r.interval = interval
	return r
}

// Refresh runs one refresh, retrying with exponential backoff until it
// succeeds or ctx is cancelled.
func (r *Refresher) Refresh(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry until cancelled
	return backoff.RetryNotify(func() error {
		return r.team.UpdateStorageMetrics(ctx)
	}, backoff.WithContext(policy, ctx),
		func(err error, duration time.Duration) {
			r.log.Warn(
				"Failed to refresh team storage metrics",
				slog.Any("error", err),
				slog.Duration("retry-after", duration),
			)
		})
}

// Run refreshes the team's metrics on the configured interval until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
