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

package health

import (
	"errors"
	"time"

	"nodecheck/internal/pkg/probe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "nodecheck"

// Metrics gauges describing the last run, kept in a private registry so
// they can be written for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	Healthy           prometheus.Gauge
	CheckUp           *prometheus.GaugeVec
	CheckError        *prometheus.GaugeVec
	BlockDifference   prometheus.Gauge
	LocalBlock        prometheus.Gauge
	ReferenceBlock    prometheus.Gauge
	DiskAvailableGB   prometheus.Gauge
	MissingContainers prometheus.Gauge
	LastRun           prometheus.Gauge
}

// NewMetrics creates the gauges in a new registry. Probe detail gauges
// are registered by Observe.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Healthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "healthy",
			Help: "1 if every check passed on the last run.",
		}),
		CheckUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "check_up",
			Help: "1 if the check passed on the last run.",
		}, []string{"check"}),
		CheckError: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "check_error",
			Help: "1 if the check could not complete on the last run.",
		}, []string{"check"}),
		BlockDifference: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "block_difference",
			Help: "Absolute block distance between the local and the reference node.",
		}),
		LocalBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "local_block",
			Help: "Latest block of the local node.",
		}),
		ReferenceBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reference_block",
			Help: "Latest block of the reference node.",
		}),
		DiskAvailableGB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "disk_available_gigabytes",
			Help: "Available space on the root mount in gigabytes.",
		}),
		MissingContainers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "missing_containers",
			Help: "Number of required containers not running.",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time of the last run.",
		}),
	}
}

// Observe records the report. Detail gauges of a probe are exported only
// when the probe completed, otherwise they are removed from the registry.
func (m *Metrics) Observe(r Report, now time.Time) {
	m.Healthy.Set(boolGauge(r.IsHealthy()))
	m.LastRun.Set(float64(now.Unix()))

	for _, check := range r.Checks() {
		m.CheckUp.WithLabelValues(check.Name).Set(boolGauge(check.Result.Passed))
		m.CheckError.WithLabelValues(check.Name).Set(boolGauge(check.Result.Failed()))

		switch d := check.Result.Details.(type) {
		case probe.BlockSyncDetails:
			m.BlockDifference.Set(float64(d.BlockDifference))
			m.LocalBlock.Set(float64(d.LocalBlock))
			m.ReferenceBlock.Set(float64(d.ReferenceBlock))
		case probe.DiskSpaceDetails:
			m.DiskAvailableGB.Set(d.AvailableGB)
		case probe.ContainerDetails:
			m.MissingContainers.Set(float64(len(d.Missing)))
		}

		m.expose(!check.Result.Failed(), m.detailGauges(check.Name)...)
	}
}

func (m *Metrics) detailGauges(check string) []prometheus.Collector {
	switch check {
	case probe.NameBlockSync:
		return []prometheus.Collector{m.BlockDifference, m.LocalBlock, m.ReferenceBlock}
	case probe.NameDiskSpace:
		return []prometheus.Collector{m.DiskAvailableGB}
	case probe.NameContainers:
		return []prometheus.Collector{m.MissingContainers}
	}

	return nil
}

func (m *Metrics) expose(on bool, cs ...prometheus.Collector) {
	for _, c := range cs {
		if !on {
			m.registry.Unregister(c)
			continue
		}

		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				zap.S().Errorw("failed to register metric", zap.Error(err))
			}
		}
	}
}

// Gatherer returns the metrics registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile atomically writes the metrics in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
