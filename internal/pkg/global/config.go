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

package global

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nodecheck/internal/pkg/probe"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	yaml "gopkg.in/yaml.v3"
)

var (
	// AppName name to use for directories
	AppName = "nodecheck"

	// AppEtcPath for configuration files
	AppEtcPath = filepath.Join("/etc", AppName)

	// DefaultConfigName config filename
	DefaultConfigName = "nodecheck.yml"

	// DefaultConfigPath system-wide config file path
	DefaultConfigPath = filepath.Join(AppEtcPath, DefaultConfigName)

	// ConfigFilePriority files tried in order when no config path is given
	ConfigFilePriority = []string{
		DefaultConfigName,
		DefaultConfigPath,
	}

	// DefaultRootPath device of the root mount on the reference CentOS hosts
	DefaultRootPath = "/dev/mapper/centos-root"

	// DefaultLocalRPC local execution client JSON-RPC endpoint
	DefaultLocalRPC = "http://localhost:8545"

	// DefaultReferenceRPC trusted mainnet endpoint used as the sync reference
	DefaultReferenceRPC = "https://ethereum-mainnet.core.chainstack.com/09e453b884cef2b4983f653148231787"

	// DefaultTimeout bound for every outbound call
	DefaultTimeout = 10 * time.Second

	// DefaultIdentityTimeout bound for each host identity lookup
	DefaultIdentityTimeout = 3 * time.Second
)

// Environment overrides, applied on top of the config file.
const (
	EnvRootPath     = "NODECHECK_ROOT_PATH"
	EnvTeamsWebhook = "NODECHECK_TEAMS_WEBHOOK"
	EnvLocalRPC     = "NODECHECK_LOCAL_RPC"
	EnvReferenceRPC = "NODECHECK_REFERENCE_RPC"
	EnvLogLevel     = "NODECHECK_LOG_LEVEL"
)

// ErrConfigNotFound explicitly requested config file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

type BlockSyncConfig struct {
	LocalURL           string        `yaml:"local_url"`
	ReferenceURL       string        `yaml:"reference_url"`
	MaxBlockDifference uint64        `yaml:"max_block_difference"`
	Timeout            time.Duration `yaml:"timeout"`
}

type DiskSpaceConfig struct {
	Command        []string      `yaml:"command"`
	MinAvailableGB float64       `yaml:"min_available_gb"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ContainersConfig struct {
	Source     string        `yaml:"source"`
	Command    []string      `yaml:"command"`
	Required   []string      `yaml:"required"`
	Match      string        `yaml:"match"`
	DockerHost string        `yaml:"docker_host"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AlertConfig struct {
	TeamsWebhook string        `yaml:"teams_webhook"`
	MentionAll   bool          `yaml:"mention_all"`
	NTPServer    string        `yaml:"ntp_server"`
	Timeout      time.Duration `yaml:"timeout"`
}

type IdentityConfig struct {
	CloudMetadata bool          `yaml:"cloud_metadata"`
	Timeout       time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Lvl     string   `yaml:"level"`
	Outputs []string `yaml:"outputs"`
}

// Config the nodecheck configuration.
type Config struct {
	RootPath        string           `yaml:"root_path"`
	JSONOutput      bool             `yaml:"json_output"`
	ExitOnUnhealthy bool             `yaml:"exit_on_unhealthy"`
	BlockSync       BlockSyncConfig  `yaml:"block_sync"`
	DiskSpace       DiskSpaceConfig  `yaml:"disk_space"`
	Containers      ContainersConfig `yaml:"containers"`
	Alert           AlertConfig      `yaml:"alert"`
	Identity        IdentityConfig   `yaml:"identity"`
	Metrics         MetricsConfig    `yaml:"metrics"`
	Log             LogConfig        `yaml:"logging"`
}

var zapLevelMapper = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

func (l LogConfig) Level() zapcore.Level {
	return zapLevelMapper[strings.ToLower(l.Lvl)]
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are left untouched.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}

// LoadConfig reads the config from path, or from the first existing file
// in ConfigFilePriority when path is empty, then applies environment
// overrides and defaults. A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	var (
		content []byte
		err     error
	)

	if path != "" {
		content, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		if err != nil {
			return nil, err
		}
	} else {
		for _, fn := range ConfigFilePriority {
			content, err = os.ReadFile(fn)
			if err == nil {
				break
			}
		}
	}

	// thresholds where 0 is a meaningful value are defaulted before
	// unmarshal so an explicit 0 in the file is kept
	conf := &Config{
		BlockSync: BlockSyncConfig{MaxBlockDifference: probe.DefaultMaxBlockDifference},
		DiskSpace: DiskSpaceConfig{MinAvailableGB: probe.DefaultMinAvailableGB},
	}
	if len(content) > 0 {
		if err := yaml.Unmarshal(content, conf); err != nil {
			return nil, fmt.Errorf("parsing configuration: %w", err)
		}
	}

	conf.applyEnv()
	conf.setDefaults()

	return conf, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRootPath); v != "" {
		c.RootPath = v
	}

	if v := os.Getenv(EnvTeamsWebhook); v != "" {
		c.Alert.TeamsWebhook = v
	}

	if v := os.Getenv(EnvLocalRPC); v != "" {
		c.BlockSync.LocalURL = v
	}

	if v := os.Getenv(EnvReferenceRPC); v != "" {
		c.BlockSync.ReferenceURL = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Lvl = v
	}
}

// setDefaults fills zero values.
func (c *Config) setDefaults() {
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}

	if c.BlockSync.LocalURL == "" {
		c.BlockSync.LocalURL = DefaultLocalRPC
	}

	if c.BlockSync.ReferenceURL == "" {
		c.BlockSync.ReferenceURL = DefaultReferenceRPC
	}

	if len(c.DiskSpace.Command) == 0 {
		c.DiskSpace.Command = append([]string(nil), probe.DefaultDiskCommand...)
	}

	if c.Containers.Source == "" {
		c.Containers.Source = probe.SourceCLI
	}

	if len(c.Containers.Command) == 0 {
		c.Containers.Command = append([]string(nil), probe.DefaultContainerCommand...)
	}

	if len(c.Containers.Required) == 0 {
		c.Containers.Required = append([]string(nil), probe.DefaultRequiredContainers...)
	}

	if c.Containers.Match == "" {
		c.Containers.Match = string(probe.MatchSubstring)
	}

	if c.Identity.Timeout == 0 {
		c.Identity.Timeout = DefaultIdentityTimeout
	}

	if c.Log.Lvl == "" {
		c.Log.Lvl = "info"
	}

	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	for _, d := range []*time.Duration{
		&c.BlockSync.Timeout, &c.DiskSpace.Timeout, &c.Containers.Timeout, &c.Alert.Timeout,
	} {
		if *d == 0 {
			*d = DefaultTimeout
		}
	}
}

// Validate returns a *ConfigError listing every invalid setting.
func (c *Config) Validate() error {
	cerr := &ConfigError{}

	if c.RootPath == "" {
		cerr.Append(errors.New("root_path must not be empty"))
	}

	if err := validateHTTPURL(c.BlockSync.LocalURL); err != nil {
		cerr.Append(fmt.Errorf("block_sync.local_url: %w", err))
	}

	if err := validateHTTPURL(c.BlockSync.ReferenceURL); err != nil {
		cerr.Append(fmt.Errorf("block_sync.reference_url: %w", err))
	}

	if c.Alert.TeamsWebhook != "" {
		if err := validateHTTPURL(c.Alert.TeamsWebhook); err != nil {
			cerr.Append(fmt.Errorf("alert.teams_webhook: %w", err))
		}
	}

	if len(c.DiskSpace.Command) == 0 || c.DiskSpace.Command[0] == "" {
		cerr.Append(errors.New("disk_space.command must not be empty"))
	}

	if c.DiskSpace.MinAvailableGB < 0 {
		cerr.Append(fmt.Errorf("disk_space.min_available_gb must be positive: %v", c.DiskSpace.MinAvailableGB))
	}

	switch c.Containers.Source {
	case probe.SourceCLI:
		if len(c.Containers.Command) == 0 || c.Containers.Command[0] == "" {
			cerr.Append(errors.New("containers.command must not be empty"))
		}
	case probe.SourceDocker:
	default:
		cerr.Append(fmt.Errorf("containers.source must be cli or docker: %q", c.Containers.Source))
	}

	switch c.Containers.Match {
	case string(probe.MatchSubstring), string(probe.MatchExact):
	default:
		cerr.Append(fmt.Errorf("containers.match must be substring or exact: %q", c.Containers.Match))
	}

	for _, name := range c.Containers.Required {
		if strings.TrimSpace(name) == "" {
			cerr.Append(errors.New("containers.required contains an empty name"))
			break
		}
	}

	if _, ok := zapLevelMapper[strings.ToLower(c.Log.Lvl)]; !ok {
		cerr.Append(fmt.Errorf("logging.level unknown: %q", c.Log.Lvl))
	}

	for _, d := range []time.Duration{
		c.BlockSync.Timeout, c.DiskSpace.Timeout, c.Containers.Timeout, c.Alert.Timeout, c.Identity.Timeout,
	} {
		if d < 0 {
			cerr.Append(fmt.Errorf("negative timeout: %v", d))
			break
		}
	}

	return cerr.ErrIfAny()
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("missing host")
	}

	return nil
}
