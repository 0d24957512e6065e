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
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchconfig "github.com/meshloom/orchestrator/internal/config"
)

var (
	cfgFile string
	flags   = viper.New()
	cfg     *orchconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Multi-agent task orchestration core",
	Long:  `orchestrator decomposes a natural-language task and distributes it across a tree of cooperating agents backed by an LLM Gateway.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./orchestrator.yaml)")
	rootCmd.PersistentFlags().String("topology", "", "hierarchical, centralized, or fully-connected")
	rootCmd.PersistentFlags().Int("worker-count", 0, "number of Workers")
	rootCmd.PersistentFlags().Int("sub-coordinator-count", 0, "number of Sub-Coordinators (hierarchical only)")
	rootCmd.PersistentFlags().String("model", "", "LLM model identifier")
	rootCmd.PersistentFlags().Bool("secure-mode", true, "restrict command execution and file writes to the allow-list")
	rootCmd.PersistentFlags().String("project-folder", "", "project directory file writes are contained to")
	rootCmd.PersistentFlags().Bool("parallel-llm", true, "has no effect: the decomposition pipeline's four calls always run concurrently")
	rootCmd.PersistentFlags().Int("max-workers-per-agent-pool", 0, "bounded concurrent LLM calls per agent")
	rootCmd.PersistentFlags().Duration("per-llm-timeout", 0, "per-Gateway-call timeout")
	rootCmd.PersistentFlags().Int("circuit-breaker-threshold", 0, "consecutive backend failures before CIRCUIT_OPEN")
	rootCmd.PersistentFlags().Duration("circuit-breaker-timeout", 0, "backend quarantine duration")
	rootCmd.PersistentFlags().Duration("polling-interval", 0, "agent inbox poll interval")
	rootCmd.PersistentFlags().Duration("task-timeout", 0, "maximum time to wait for a request's final result")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, or error")
	rootCmd.PersistentFlags().String("sqlite-path", "", "Message Store database path (\":memory:\" for ephemeral)")
}

// forwardChangedFlags copies only the flags the user actually set on
// the command line into the overrides Viper; an unset flag must not
// mask a lower-precedence config/env/default value with its zero
// value.
func forwardChangedFlags() {
	fs := rootCmd.PersistentFlags()
	strs := map[string]string{
		"topology": "topology", "model": "model",
		"project-folder": "project_folder", "log-level": "log_level",
		"sqlite-path": "sqlite_path",
	}
	for flagName, key := range strs {
		if fs.Changed(flagName) {
			if v, err := fs.GetString(flagName); err == nil {
				flags.Set(key, v)
			}
		}
	}

	ints := map[string]string{
		"worker-count": "worker_count", "sub-coordinator-count": "sub_coordinator_count",
		"max-workers-per-agent-pool": "max_workers_per_agent_pool",
		"circuit-breaker-threshold":  "circuit_breaker_threshold",
	}
	for flagName, key := range ints {
		if fs.Changed(flagName) {
			if v, err := fs.GetInt(flagName); err == nil {
				flags.Set(key, v)
			}
		}
	}

	bools := map[string]string{"secure-mode": "secure_mode", "parallel-llm": "parallel_llm"}
	for flagName, key := range bools {
		if fs.Changed(flagName) {
			if v, err := fs.GetBool(flagName); err == nil {
				flags.Set(key, v)
			}
		}
	}

	durations := map[string]string{
		"per-llm-timeout": "per_llm_timeout", "circuit-breaker-timeout": "circuit_breaker_timeout",
		"polling-interval": "polling_interval", "task-timeout": "task_timeout",
	}
	for flagName, key := range durations {
		if fs.Changed(flagName) {
			if v, err := fs.GetDuration(flagName); err == nil {
				flags.Set(key, v)
			}
		}
	}
}

// initConfig loads the typed configuration once flags are parsed,
// giving explicitly-set flag values precedence over environment, file,
// and defaults.
func initConfig() {
	forwardChangedFlags()

	loaded, err := orchconfig.Load(cfgFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg = loaded
}
