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
	"context"
	"fmt"
	"sync"

	"nodecheck/internal/pkg/probe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checker runs the node probes and aggregates them into a Report.
type Checker struct {
	BlockSync  probe.Prober
	DiskSpace  probe.Prober
	Containers probe.Prober
}

// Run starts every probe in its own goroutine and waits for all of them.
// A failing probe never stops the others.
func (c *Checker) Run(ctx context.Context) Report {
	log := zap.S().With("run_id", uuid.NewString())
	log.Debug("starting health check")

	probes := []probe.Prober{c.BlockSync, c.DiskSpace, c.Containers}
	results := make([]probe.Result, len(probes))

	wg := &sync.WaitGroup{}
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe.Prober) {
			defer wg.Done()
			results[i] = runProbe(ctx, p)
		}(i, p)
	}
	wg.Wait()

	report := NewReport(results[0], results[1], results[2])

	for _, check := range report.Checks() {
		if check.Result.Passed {
			log.Infow("check passed", "check", check.Name)
		} else {
			log.Warnw("check failed", "check", check.Name, "error", check.Result.Err)
		}
	}
	log.Infow("health check finished", "healthy", report.IsHealthy())

	return report
}

// runProbe converts a panicking or missing probe into a failure.
func runProbe(ctx context.Context, p probe.Prober) (res probe.Result) {
	if p == nil {
		return probe.Failure(probe.ErrUnknown)
	}

	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("probe panicked", "check", p.Name(), "panic", r)
			res = probe.Failure(fmt.Errorf("%w: %v", probe.ErrProbePanic, r))
		}
	}()

	return p.Probe(ctx)
}
