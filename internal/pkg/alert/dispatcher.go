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

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"nodecheck/internal/pkg/health"
	"nodecheck/internal/pkg/identity"
	"nodecheck/pkg/timesync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second

	// max response body bytes kept for logging
	maxBodyBytes = 4 << 10
)

// Status outcome of a dispatch.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ErrWebhookStatus webhook answered with a non-200 status
var ErrWebhookStatus = errors.New("unexpected webhook status")

// Result outcome of a dispatch. Err is set only for StatusFailed.
type Result struct {
	Status Status
	Err    error
}

// Payload webhook request body.
type Payload struct {
	Text string `json:"text"`
}

// DispatcherConf Dispatcher configuration struct.
type DispatcherConf struct {
	// URL incoming webhook URL, empty disables alerting
	URL string

	// Timeout bounds the webhook request
	Timeout time.Duration

	// Clock message timestamp source, defaults to timesync.Now
	Clock func() time.Time

	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

// Dispatcher posts health reports to a chat webhook.
type Dispatcher struct {
	DispatcherConf
}

// NewDispatcher Dispatcher constructor.
func NewDispatcher(conf DispatcherConf) *Dispatcher {
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}

	if conf.Clock == nil {
		conf.Clock = timesync.Now
	}

	if conf.HTTPClient == nil {
		conf.HTTPClient = &http.Client{Timeout: conf.Timeout}
	}

	return &Dispatcher{DispatcherConf: conf}
}

// Dispatch formats and sends the report. Failures are logged and returned
// in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, r health.Report, node identity.Node, mentionAll bool) Result {
	if d.URL == "" {
		zap.S().Warn("teams webhook URL not provided, skipping alert")

		return Result{Status: StatusSkipped}
	}

	msg := FormatMessage(r, node, mentionAll, d.Clock())
	if err := d.send(ctx, msg); err != nil {
		zap.S().Errorw("failed to send teams alert", zap.Error(err))

		return Result{Status: StatusFailed, Err: err}
	}

	zap.S().Infow("teams alert sent", "healthy", r.IsHealthy(), "node", node.Name)

	return Result{Status: StatusSent}
}

func (d *Dispatcher) send(ctx context.Context, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	body, err := json.Marshal(Payload{Text: msg})
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "invalid webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

		return errors.Wrapf(ErrWebhookStatus, "status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
