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

// Package simulator replays placement requests against a cluster described in
// a YAML file, without any live storage nodes. Useful to understand what the
// selection policy would decide for a given cluster shape.
package simulator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foxyholic/teamselect/common"
	"github.com/foxyholic/teamselect/distribution/model"
	"github.com/foxyholic/teamselect/distribution/selection"
	"github.com/foxyholic/teamselect/distribution/team"
)

var (
	configFile string

	Cmd = &cobra.Command{
		Use:   "simulator",
		Short: "Replay placement requests against a described cluster",
		Long:  `Replay placement requests against a described cluster`,
		RunE:  exec,
	}
)

func init() {
	Cmd.Flags().StringVarP(&configFile, "conf", "f", "", "Cluster description file")
	_ = Cmd.MarkFlagRequired("conf")
}

type nodeConfig struct {
	ID             string  `mapstructure:"id"`
	Addr           string  `mapstructure:"addr"`
	StoredBytes    int64   `mapstructure:"storedBytes"`
	ReadBandwidth  float64 `mapstructure:"readBandwidth"`
	AvailableBytes int64   `mapstructure:"availableBytes"`
	TotalBytes     int64   `mapstructure:"totalBytes"`
}

type requestConfig struct {
	Mode                string   `mapstructure:"mode"`
	PreferLowerDiskUtil bool     `mapstructure:"preferLowerDiskUtil"`
	ForReadBalance      bool     `mapstructure:"forReadBalance"`
	PreferLowerReadUtil bool     `mapstructure:"preferLowerReadUtil"`
	InflightPenalty     float64  `mapstructure:"inflightPenalty"`
	CompleteSources     []string `mapstructure:"completeSources"`
	Sources             []string `mapstructure:"sources"`
}

type clusterConfig struct {
	ReplicationFactor int             `mapstructure:"replicationFactor"`
	Nodes             []nodeConfig    `mapstructure:"nodes"`
	Teams             [][]string      `mapstructure:"teams"`
	Requests          []requestConfig `mapstructure:"requests"`
}

// staticSource serves the metrics frozen in the config file.
type staticSource struct {
	nodes map[model.ServerID]team.NodeMetrics
}

func (s *staticSource) QueryStorageMetrics(_ context.Context, id model.ServerID) (team.NodeMetrics, error) {
	report, ok := s.nodes[id]
	if !ok {
		return team.NodeMetrics{}, errors.Errorf("unknown storage node: %s", id)
	}
	return report, nil
}

func loadConfig() (clusterConfig, error) {
	cc := clusterConfig{}
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return cc, errors.Wrap(err, "failed to read cluster description")
	}
	if err := v.Unmarshal(&cc); err != nil {
		return cc, errors.Wrap(err, "failed to parse cluster description")
	}
	if cc.ReplicationFactor == 0 {
		cc.ReplicationFactor = 3
	}
	return cc, nil
}

func parseMode(s string) (selection.Mode, error) {
	switch {
	case s == "" || strings.EqualFold(s, "any"):
		return selection.ModeAny, nil
	case strings.EqualFold(s, "want_complete_srcs"):
		return selection.ModeWantCompleteSources, nil
	case strings.EqualFold(s, "want_true_best"):
		return selection.ModeWantTrueBest, nil
	}
	return selection.ModeAny, errors.Errorf("unknown selection mode: %s", s)
}

func buildTeams(cc clusterConfig, source team.MetricsSource) ([]team.Team, error) {
	// Preserve file order while dropping duplicated member lists.
	uniqueTeams := linkedhashset.New()
	for _, members := range cc.Teams {
		uniqueTeams.Add(strings.Join(members, ","))
	}

	infoByID := map[model.ServerID]model.StorageNodeInfo{}
	for _, n := range cc.Nodes {
		infoByID[model.ServerID(n.ID)] = model.StorageNodeInfo{
			Addr: n.Addr,
			ID:   model.ServerID(n.ID),
		}
	}

	teams := make([]team.Team, 0, uniqueTeams.Size())
	for it := uniqueTeams.Iterator(); it.Next(); {
		memberKey := it.Value().(string) //nolint:revive
		var nodes []model.StorageNodeInfo
		for _, id := range strings.Split(memberKey, ",") {
			info, ok := infoByID[model.ServerID(id)]
			if !ok {
				return nil, errors.Errorf("team references unknown node: %s", id)
			}
			nodes = append(nodes, info)
		}
		teams = append(teams, team.NewTeam(source, nodes, cc.ReplicationFactor))
	}
	return teams, nil
}

func exec(*cobra.Command, []string) error {
	cc, err := loadConfig()
	if err != nil {
		return err
	}

	source := &staticSource{nodes: map[model.ServerID]team.NodeMetrics{}}
	for _, n := range cc.Nodes {
		id := model.ServerID(n.ID)
		source.nodes[id] = team.NodeMetrics{
			Info: model.StorageNodeInfo{Addr: n.Addr, ID: id},
			Metrics: model.StorageMetrics{
				StoredBytes:    n.StoredBytes,
				ReadBandwidth:  n.ReadBandwidth,
				AvailableBytes: n.AvailableBytes,
				TotalBytes:     n.TotalBytes,
			},
		}
	}

	teams, err := buildTeams(cc, source)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, t := range teams {
		if err := t.UpdateStorageMetrics(ctx); err != nil {
			return err
		}
		slog.Info(
			"Team ready",
			slog.String("team", team.Describe(t)),
			slog.String("load", humanize.IBytes(uint64(t.LoadBytes(false, 0)))),
			slog.String("min-available", humanize.IBytes(uint64(t.MinAvailableSpace(false)))),
		)
	}

	scanner := selection.NewScanner()
	for i, rc := range cc.Requests {
		mode, err := parseMode(rc.Mode)
		if err != nil {
			return err
		}
		req := selection.NewRequest(mode, selection.Options{
			PreferLowerDiskUtil: rc.PreferLowerDiskUtil,
			ForReadBalance:      rc.ForReadBalance,
			PreferLowerReadUtil: rc.PreferLowerReadUtil,
			InflightPenalty:     rc.InflightPenalty,
		})
		for _, id := range rc.CompleteSources {
			req.CompleteSources.Add(model.ServerID(id))
		}
		req.Sources = common.NewSetFrom(toServerIDs(rc.Sources))

		scanner.SelectBest(req, teams)
		res, err := req.Await(ctx)
		if err != nil {
			return err
		}
		if res.Team == nil {
			slog.Info(
				"Request not satisfiable",
				slog.Int("request", i),
				slog.String("detail", req.Describe()),
			)
			continue
		}
		slog.Info(
			"Request resolved",
			slog.Int("request", i),
			slog.String("detail", req.Describe()),
			slog.String("winner", team.Describe(res.Team)),
			slog.Bool("exact-match", res.ExactMatch),
		)
	}
	return nil
}

func toServerIDs(ids []string) []model.ServerID {
	out := make([]model.ServerID, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ServerID(id))
	}
	return out
}
