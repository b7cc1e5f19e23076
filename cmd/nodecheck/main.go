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
	"errors"
	"fmt"
	"os"
	"time"

	"nodecheck/internal/pkg/global"
	"nodecheck/pkg/timesync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exitUnhealthy exit status used with --exit-code when a check fails.
const exitUnhealthy = 2

var errUnhealthy = errors.New("node is unhealthy")

type flags struct {
	configPath      string
	envFile         string
	rootPath        string
	jsonOutput      bool
	teamsWebhook    string
	mentionAll      bool
	logLevel        string
	metricsTextfile string
	exitCode        bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nodecheck",
		Short:         "Ethereum full node health check",
		Long:          "Checks block sync against a reference node, free disk space and the client containers, prints a report and optionally alerts a Teams channel.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := bindFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd, f)
		if err != nil {
			return err
		}

		setupZapLogger(conf.Log)
		defer zap.S().Sync()

		healthy, err := run(cmd.Context(), conf, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		if !healthy && conf.ExitOnUnhealthy {
			return errUnhealthy
		}

		return nil
	}

	return cmd
}

func bindFlags(cmd *cobra.Command) *flags {
	f := &flags{}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "configuration file path")
	fl.StringVar(&f.envFile, "env-file", "", "dotenv file loaded before reading the configuration")
	fl.StringVar(&f.rootPath, "root-path", global.DefaultRootPath, "disk root path")
	fl.BoolVar(&f.jsonOutput, "json-output", false, "output results in JSON format")
	fl.StringVar(&f.teamsWebhook, "teams-webhook", "", "Microsoft Teams webhook URL for alerts")
	fl.BoolVar(&f.mentionAll, "mention-all", false, "mention everyone in the Teams alert")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fl.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write probe metrics to this node_exporter textfile")
	fl.BoolVar(&f.exitCode, "exit-code", false, fmt.Sprintf("exit with status %d when the node is unhealthy", exitUnhealthy))

	return f
}

// loadConfig reads env file, config file and environment, then overlays
// the flags explicitly set on the command line.
func loadConfig(cmd *cobra.Command, f *flags) (*global.Config, error) {
	if err := global.LoadEnvFile(f.envFile); err != nil {
		return nil, err
	}

	conf, err := global.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("root-path") {
		conf.RootPath = f.rootPath
	}
	if fl.Changed("json-output") {
		conf.JSONOutput = f.jsonOutput
	}
	if fl.Changed("teams-webhook") {
		conf.Alert.TeamsWebhook = f.teamsWebhook
	}
	if fl.Changed("mention-all") {
		conf.Alert.MentionAll = f.mentionAll
	}
	if fl.Changed("log-level") {
		conf.Log.Lvl = f.logLevel
	}
	if fl.Changed("metrics-textfile") {
		conf.Metrics.Textfile = f.metricsTextfile
	}
	if fl.Changed("exit-code") {
		conf.ExitOnUnhealthy = f.exitCode
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func setupZapLogger(conf global.LogConfig) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(conf.Level())
	cfg.OutputPaths = conf.Outputs
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.EncoderConfig.EncodeTime = logTimestampMSEncoder
	opts := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.WithClock(timesync.Default),
	}
	l, err := cfg.Build(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup zap logging: %v", err))
	}

	zap.ReplaceGlobals(l)
}

// logTimestampMSEncoder encodes the log timestamp as an int64 from Time.UnixMilli()
func logTimestampMSEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt64(t.UnixMilli())
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if errors.Is(err, errUnhealthy) {
		os.Exit(exitUnhealthy)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "nodecheck: %v\n", err)
		os.Exit(1)
	}
}
