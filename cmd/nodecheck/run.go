// Copyright 2022 Metrika Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"io"

	"nodecheck/internal/pkg/alert"
	"nodecheck/internal/pkg/discover/utils"
	"nodecheck/internal/pkg/global"
	"nodecheck/internal/pkg/health"
	"nodecheck/internal/pkg/identity"
	"nodecheck/internal/pkg/probe"
	"nodecheck/internal/pkg/rpc"
	"nodecheck/pkg/timesync"

	"go.uber.org/zap"
)

// run performs one health check, alerts, records metrics and writes the
// report to out. It returns whether the node is healthy.
func run(ctx context.Context, conf *global.Config, out io.Writer) (bool, error) {
	report := newChecker(conf).Run(ctx)

	if conf.Alert.TeamsWebhook != "" {
		sendAlert(ctx, conf, report)
	}

	if conf.Metrics.Textfile != "" {
		m := health.NewMetrics()
		m.Observe(report, timesync.Now())
		if err := m.WriteTextfile(conf.Metrics.Textfile); err != nil {
			zap.S().Errorw("failed to write metrics textfile", "path", conf.Metrics.Textfile, zap.Error(err))
		}
	}

	var err error
	if conf.JSONOutput {
		err = health.WriteJSON(out, report)
	} else {
		err = health.WriteText(out, report)
	}

	return report.IsHealthy(), err
}

func newChecker(conf *global.Config) *health.Checker {
	return &health.Checker{
		BlockSync: probe.NewBlockSync(probe.BlockSyncConf{
			Local:         rpc.NewClient(rpc.ClientConf{URL: conf.BlockSync.LocalURL, Timeout: conf.BlockSync.Timeout}),
			Reference:     rpc.NewClient(rpc.ClientConf{URL: conf.BlockSync.ReferenceURL, Timeout: conf.BlockSync.Timeout}),
			MaxDifference: conf.BlockSync.MaxBlockDifference,
		}),
		DiskSpace: probe.NewDiskSpace(probe.DiskSpaceConf{
			RootPath:       conf.RootPath,
			Command:        conf.DiskSpace.Command,
			MinAvailableGB: conf.DiskSpace.MinAvailableGB,
			Timeout:        conf.DiskSpace.Timeout,
		}),
		Containers: probe.NewContainer(probe.ContainerConf{
			Required: conf.Containers.Required,
			Match:    probe.MatchMode(conf.Containers.Match),
			Timeout:  conf.Containers.Timeout,
			Lister:   newLister(conf.Containers),
		}),
	}
}

func newLister(conf global.ContainersConfig) probe.Lister {
	if conf.Source == probe.SourceDocker {
		if conf.DockerHost != "" {
			utils.DefaultDockerHost = conf.DockerHost
		}

		return probe.DockerLister{}
	}

	return &probe.CommandLister{Command: conf.Command}
}

func sendAlert(ctx context.Context, conf *global.Config, report health.Report) {
	resolverConf := identity.ResolverConf{Timeout: conf.Identity.Timeout}
	if conf.Identity.CloudMetadata {
		resolverConf.Sources = identity.CloudSources()
	}
	node := identity.NewResolver(resolverConf).Resolve(ctx)

	clock := timesync.NewTimeSync(conf.Alert.NTPServer, conf.Alert.Timeout)
	if err := clock.SyncNow(); err != nil {
		zap.S().Warnw("could not sync with NTP server, using local clock", "host", conf.Alert.NTPServer, zap.Error(err))
	}

	dispatcher := alert.NewDispatcher(alert.DispatcherConf{
		URL:     conf.Alert.TeamsWebhook,
		Timeout: conf.Alert.Timeout,
		Clock:   clock.Now,
	})

	res := dispatcher.Dispatch(ctx, report, node, conf.Alert.MentionAll)
	zap.S().Debugw("alert dispatched", "status", res.Status)
}
