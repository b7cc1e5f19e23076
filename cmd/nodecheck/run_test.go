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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"nodecheck/internal/pkg/alert"
	"nodecheck/internal/pkg/global"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	l, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(l)
	os.Exit(m.Run())
}

func newRPCServer(t *testing.T, block uint64) string {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"0x%x"}`, block)
	}))
	t.Cleanup(ts.Close)

	return ts.URL
}

func newTestConfig(t *testing.T, local, reference uint64) *global.Config {
	t.Helper()

	t.Setenv(global.EnvTeamsWebhook, "")
	t.Setenv(global.EnvRootPath, "")
	conf, err := global.LoadConfig(filepath.Join("testdata", "nodecheck.yml"))
	require.NoError(t, err)

	conf.BlockSync.LocalURL = newRPCServer(t, local)
	conf.BlockSync.ReferenceURL = newRPCServer(t, reference)
	require.NoError(t, conf.Validate())

	return conf
}

func TestRunHealthyJSON(t *testing.T) {
	conf := newTestConfig(t, 1000, 1010)
	conf.JSONOutput = true

	out := &bytes.Buffer{}
	healthy, err := run(context.Background(), conf, out)
	require.NoError(t, err)
	require.True(t, healthy)

	doc := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Equal(t, true, doc["is_healthy"])

	checks := doc["checks"].(map[string]interface{})
	for _, name := range []string{"block_sync", "disk_space", "containers"} {
		require.Equal(t, "ok", checks[name].(map[string]interface{})["status"], name)
	}

	disk := checks["disk_space"].(map[string]interface{})["details"].(map[string]interface{})
	require.Equal(t, 2150.4, disk["available_space_gb"])
}

func TestRunUnhealthyText(t *testing.T) {
	conf := newTestConfig(t, 1000, 1100)
	conf.Containers.Required = []string{"mainnet-geth-1", "mainnet-lighthouse-1"}

	out := &bytes.Buffer{}
	healthy, err := run(context.Background(), conf, out)
	require.NoError(t, err)
	require.False(t, healthy)

	require.Contains(t, out.String(), "[FAIL] (Difference: 100 blocks)")
	require.Contains(t, out.String(), "[OK] (Available: 2150.4G, Required: >=100G)")
	require.Contains(t, out.String(), "[FAIL] (Missing containers: mainnet-lighthouse-1)")
	require.True(t, strings.HasSuffix(out.String(), "\nOverall Status:\n[FAIL]\n"+strings.Repeat("=", 50)+"\n\n"))
}

func TestRunSendsAlert(t *testing.T) {
	var calls int32
	var payload alert.Payload

	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
	}))
	defer webhook.Close()

	conf := newTestConfig(t, 1000, 1000)
	conf.Alert.TeamsWebhook = webhook.URL
	conf.Alert.MentionAll = true

	healthy, err := run(context.Background(), conf, io.Discard)
	require.NoError(t, err)
	require.True(t, healthy)

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.True(t, strings.HasPrefix(payload.Text, "<at>everyone</at>\n"))
	require.Contains(t, payload.Text, "Status: [HEALTHY]")
}

func TestRunWritesMetrics(t *testing.T) {
	conf := newTestConfig(t, 1000, 1000)
	conf.Metrics.Textfile = filepath.Join(t.TempDir(), "nodecheck.prom")

	_, err := run(context.Background(), conf, io.Discard)
	require.NoError(t, err)

	b, err := os.ReadFile(conf.Metrics.Textfile)
	require.NoError(t, err)
	require.Contains(t, string(b), "nodecheck_healthy 1")
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv(global.EnvRootPath, "/dev/nvme0n1p2")
	t.Setenv(global.EnvTeamsWebhook, "https://example.webhook.office.com/env")

	testCases := []struct {
		name   string
		args   []string
		assert func(t *testing.T, conf *global.Config)
	}{
		{
			name: "env overrides file",
			args: []string{"--config", filepath.Join("testdata", "nodecheck.yml")},
			assert: func(t *testing.T, conf *global.Config) {
				require.Equal(t, "/dev/nvme0n1p2", conf.RootPath)
				require.Equal(t, "https://example.webhook.office.com/env", conf.Alert.TeamsWebhook)
				require.False(t, conf.JSONOutput)
				require.False(t, conf.ExitOnUnhealthy)
			},
		},
		{
			name: "flags override env",
			args: []string{
				"--config", filepath.Join("testdata", "nodecheck.yml"),
				"--root-path", "/dev/sda2",
				"--teams-webhook", "https://example.webhook.office.com/flag",
				"--json-output", "--mention-all", "--exit-code",
				"--log-level", "debug",
				"--metrics-textfile", "/var/lib/node_exporter/nodecheck.prom",
			},
			assert: func(t *testing.T, conf *global.Config) {
				require.Equal(t, "/dev/sda2", conf.RootPath)
				require.Equal(t, "https://example.webhook.office.com/flag", conf.Alert.TeamsWebhook)
				require.True(t, conf.JSONOutput)
				require.True(t, conf.Alert.MentionAll)
				require.True(t, conf.ExitOnUnhealthy)
				require.Equal(t, "debug", conf.Log.Lvl)
				require.Equal(t, "/var/lib/node_exporter/nodecheck.prom", conf.Metrics.Textfile)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "nodecheck"}
			f := bindFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tc.args))

			conf, err := loadConfig(cmd, f)
			require.NoError(t, err)
			tc.assert(t, conf)
		})
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cmd := &cobra.Command{Use: "nodecheck"}
	f := bindFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", filepath.Join("testdata", "nodecheck.yml"),
		"--teams-webhook", "not a url",
		"--log-level", "verbose",
	}))

	_, err := loadConfig(cmd, f)
	require.Error(t, err)

	var cerr *global.ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Errors(), 2)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cmd := &cobra.Command{Use: "nodecheck"}
	f := bindFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--config", "testdata/missing.yml"}))

	_, err := loadConfig(cmd, f)
	require.ErrorIs(t, err, global.ErrConfigNotFound)
}
