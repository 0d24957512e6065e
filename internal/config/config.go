// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the orchestrator's configuration: every option
// spec.md §6 enumerates, plus the ambient logging and storage options
// the spec leaves unspecified. Precedence, highest first: command-line
// flags, environment variables (ORCH_ prefix), a YAML config file,
// built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Topology selects the scheduling strategy §2/§4.5 describe.
type Topology string

const (
	TopologyHierarchical   Topology = "hierarchical"
	TopologyCentralized    Topology = "centralized"
	TopologyFullyConnected Topology = "fully-connected"
)

// Config is the fully resolved, typed configuration for one
// orchestrator process.
type Config struct {
	Topology                Topology      `mapstructure:"topology"`
	WorkerCount             int           `mapstructure:"worker_count"`
	SubCoordinatorCount     int           `mapstructure:"sub_coordinator_count"`
	Model                   string        `mapstructure:"model"`
	SecureMode              bool          `mapstructure:"secure_mode"`
	ProjectFolder           string        `mapstructure:"project_folder"`
	ParallelLLM             bool          `mapstructure:"parallel_llm"`
	MaxWorkersPerAgentPool  int           `mapstructure:"max_workers_per_agent_pool"`
	PerLLMTimeout           time.Duration `mapstructure:"per_llm_timeout"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
	PollingInterval         time.Duration `mapstructure:"polling_interval"`
	TaskTimeout             time.Duration `mapstructure:"task_timeout"`

	// Ambient, not in spec.md's enumerated option list.
	LogLevel   string `mapstructure:"log_level"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Load resolves configuration from flags > environment > config file >
// defaults. flags may be nil; any value it carries overrides the
// lower-precedence sources for that key.
func Load(cfgFile string, flags *viper.Viper) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orchestrator/")
		v.SetConfigName("orchestrator")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix("ORCH")
	v.AutomaticEnv()

	if flags != nil {
		for key, val := range flagsToMap(flags) {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants §6 implies: a known topology, a
// sub-coordinator-count only when hierarchical, and positive counts.
func (c *Config) Validate() error {
	switch c.Topology {
	case TopologyHierarchical, TopologyCentralized, TopologyFullyConnected:
	default:
		return fmt.Errorf("unknown topology %q", c.Topology)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker_count must be >= 1, got %d", c.WorkerCount)
	}
	if c.Topology == TopologyHierarchical && c.SubCoordinatorCount < 1 {
		return fmt.Errorf("sub_coordinator_count must be >= 1 for hierarchical topology, got %d", c.SubCoordinatorCount)
	}
	return nil
}

// setDefaults populates §6's defaults plus this implementation's
// ambient options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("topology", string(TopologyCentralized))
	v.SetDefault("worker_count", 1)
	v.SetDefault("sub_coordinator_count", 1)
	v.SetDefault("model", "claude-sonnet-4-5")
	v.SetDefault("secure_mode", true)
	v.SetDefault("project_folder", ".")
	v.SetDefault("parallel_llm", true)
	v.SetDefault("max_workers_per_agent_pool", 3)
	v.SetDefault("per_llm_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker_threshold", 5)
	v.SetDefault("circuit_breaker_timeout", 60*time.Second)
	v.SetDefault("polling_interval", 100*time.Millisecond)
	v.SetDefault("task_timeout", 300*time.Second)

	v.SetDefault("log_level", "info")
	v.SetDefault("sqlite_path", ":memory:")
}

// flagsToMap copies every key a flags Viper instance was explicitly
// given into a plain map, so it can be merged in ahead of the
// environment/file/default layers regardless of flag library.
func flagsToMap(flags *viper.Viper) map[string]any {
	out := make(map[string]any)
	for _, key := range flags.AllKeys() {
		out[key] = flags.Get(key)
	}
	return out
}
