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

package timesync

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"
)

const (
	defaultQueryTimeout = 3 * time.Second

	// offsets within these bounds are not worth adjusting for
	maxAheadDrift  = 3 * time.Second
	maxBehindDrift = -500 * time.Millisecond
)

// TimeSync is a clock corrected by the offset reported by an NTP server.
// Without a successful sync it is the local clock.
type TimeSync struct {
	host         string
	timeout      time.Duration
	delta        time.Duration
	shouldAdjust bool
	queryNTP     func(host string, opts ntp.QueryOptions) (*ntp.Response, error) // to enable mocking
	*sync.RWMutex
}

// Default local clock, never synced.
var Default = NewTimeSync("", 0)

// NewTimeSync returns a clock synced against host. An empty host disables
// syncing.
func NewTimeSync(host string, timeout time.Duration) *TimeSync {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	return &TimeSync{
		host:     host,
		timeout:  timeout,
		queryNTP: ntp.QueryWithOptions,
		RWMutex:  &sync.RWMutex{},
	}
}

// SyncNow queries the NTP server once and stores the clock offset.
// No-op when no host is configured.
func (t *TimeSync) SyncNow() error {
	if t.host == "" {
		return nil
	}

	resp, err := t.queryNTP(t.host, ntp.QueryOptions{Timeout: t.timeout})
	if err != nil {
		return err
	}

	t.Lock()
	defer t.Unlock()

	t.delta = resp.ClockOffset
	t.shouldAdjust = t.delta > maxAheadDrift || t.delta < maxBehindDrift

	zap.S().Debugw("time synced", "host", t.host, "offset", resp.ClockOffset, "adjust", t.shouldAdjust)

	return nil
}

// Offset returns the last offset reported by the NTP server.
func (t *TimeSync) Offset() time.Duration {
	t.RLock()
	defer t.RUnlock()
	return t.delta
}

// Now returns the current time. May be adjusted
// based on the offset received from NTP server.
func (t *TimeSync) Now() time.Time {
	t.RLock()
	defer t.RUnlock()

	if t.shouldAdjust {
		return time.Now().Add(t.delta)
	}

	return time.Now()
}

// NewTicker implements zapcore.Clock interface.
func (t *TimeSync) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Now is a convenience wrapper for calling timesync.Default.Now()
func Now() time.Time {
	return Default.Now()
}
