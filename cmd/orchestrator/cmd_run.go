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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshloom/orchestrator/internal/bus"
	orchconfig "github.com/meshloom/orchestrator/internal/config"
	"github.com/meshloom/orchestrator/internal/coordinator"
	"github.com/meshloom/orchestrator/internal/dispatcher"
	"github.com/meshloom/orchestrator/internal/gateway"
	"github.com/meshloom/orchestrator/internal/performance"
	"github.com/meshloom/orchestrator/internal/safety"
	"github.com/meshloom/orchestrator/internal/subcoordinator"
	"github.com/meshloom/orchestrator/internal/types"
	"github.com/meshloom/orchestrator/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run [task text]",
	Short: "Run a single natural-language task to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runTask,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// fleet holds every agent this process wires up, so the run loop can
// poll them all on a single shared interval.
type fleet struct {
	dispatcher      *dispatcher.Dispatcher
	coordinator     *coordinator.Coordinator
	subCoordinators []*subcoordinator.SubCoordinator
	workers         []*worker.Worker
}

func (f *fleet) pollOnce(ctx context.Context) error {
	if err := f.dispatcher.Poll(ctx); err != nil {
		return err
	}
	if err := f.coordinator.Poll(ctx); err != nil {
		return err
	}
	for _, sc := range f.subCoordinators {
		if err := sc.Poll(ctx); err != nil {
			return err
		}
	}
	for _, w := range f.workers {
		if err := w.Poll(ctx); err != nil {
			return err
		}
	}
	return nil
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TaskTimeout)
	defer cancel()

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := bus.Open(cfg.SQLitePath, logger)
	if err != nil {
		return fmt.Errorf("open message store: %w", err)
	}
	defer func() { _ = store.Close() }()

	registry := performance.NewRegistry()
	gw := gateway.New(buildBackends(ctx, cfg.Model, logger), gateway.Config{
		FailureThreshold:  cfg.CircuitBreakerThreshold,
		OpenDuration:      cfg.CircuitBreakerTimeout,
		AttemptTimeout:    cfg.PerLLMTimeout,
		MaxAttemptRetries: 1,
		MaxConcurrent:     int64(cfg.MaxWorkersPerAgentPool),
	}, logger)

	var runner *safety.Runner
	if cfg.SecureMode {
		runner = safety.NewRunner(cfg.ProjectFolder)
	}

	f := buildFleet(store, registry, gw, runner, logger)

	disp := f.dispatcher
	requestID, done, err := disp.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("dispatch task: %w", err)
	}
	logger.Info("task dispatched", zap.String("request_id", requestID))

	ticker := time.NewTicker(cfg.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			return printResult(cmd, res)
		case <-ctx.Done():
			return fmt.Errorf("task %s timed out after %s", requestID, cfg.TaskTimeout)
		case <-ticker.C:
			if err := f.pollOnce(ctx); err != nil {
				logger.Error("poll pass failed", zap.Error(err))
			}
		}
	}
}

// buildFleet constructs one Coordinator, cfg.SubCoordinatorCount
// Sub-Coordinators (only wired for the hierarchical topology), and
// cfg.WorkerCount Workers, all sharing the Message Store, performance
// Registry, and LLM Gateway.
func buildFleet(store *bus.Store, registry *performance.Registry, gw *gateway.Gateway, runner *safety.Runner, logger *zap.Logger) *fleet {
	workerIDs := make([]string, cfg.WorkerCount)
	for i := range workerIDs {
		workerIDs[i] = "worker-" + strconv.Itoa(i+1)
	}
	for _, id := range workerIDs {
		registry.Register(types.NewWorkerPerformance(id, types.RoleDeveloper))
	}

	workers := make([]*worker.Worker, len(workerIDs))
	for i, id := range workerIDs {
		workers[i] = worker.New(id, store, gw, runner, worker.Config{
			Model:            cfg.Model,
			Timeout:          cfg.PerLLMTimeout,
			ProjectDir:       cfg.ProjectFolder,
			SecureMode:       cfg.SecureMode,
			AllowSideEffects: cfg.SecureMode,
		}, logger)
	}

	coordCfg := coordinator.DefaultConfig()
	coordCfg.Topology = string(cfg.Topology)
	coordCfg.Model = cfg.Model
	coordCfg.ProjectDir = cfg.ProjectFolder
	coordCfg.Workers = workerIDs

	var subCoords []*subcoordinator.SubCoordinator
	if cfg.Topology == orchconfig.TopologyHierarchical {
		groupIDs := make([]string, cfg.SubCoordinatorCount)
		for i := range groupIDs {
			groupIDs[i] = "subq-" + strconv.Itoa(i+1)
		}

		groupWorkers := partition(workerIDs, len(groupIDs))
		subCoords = make([]*subcoordinator.SubCoordinator, len(groupIDs))
		for i, id := range groupIDs {
			registry.Register(types.NewWorkerPerformance(id, types.RoleDeveloper))
			subCoords[i] = subcoordinator.New(id, store, registry, subcoordinator.Config{
				Workers: groupWorkers[i],
			}, logger)
		}
		coordCfg.Groups = groupIDs
		coordCfg.Workers = nil
	}

	coord := coordinator.New("coordinator", store, registry, gw, coordCfg, logger)

	dispCfg := dispatcher.DefaultConfig()
	dispCfg.CoordinatorID = "coordinator"
	dispCfg.PollInterval = cfg.PollingInterval
	disp := dispatcher.New(store, dispCfg, logger)

	return &fleet{dispatcher: disp, coordinator: coord, subCoordinators: subCoords, workers: workers}
}

// partition splits ids into n roughly equal groups, dealing them out
// round-robin (the i-th id goes to group i % n).
func partition(ids []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	out := make([][]string, n)
	for i, id := range ids {
		g := i % n
		out[g] = append(out[g], id)
	}
	return out
}

func buildLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	lvl := zap.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

func printResult(cmd *cobra.Command, res dispatcher.Result) error {
	out := cmd.OutOrStdout()
	if res.Err != nil {
		encoded, _ := json.MarshalIndent(res.Summary, "", "  ")
		fmt.Fprintln(os.Stderr, res.Err)
		fmt.Fprintln(out, string(encoded))
		return res.Err
	}
	fmt.Fprintln(out, res.Content)
	encoded, _ := json.MarshalIndent(res.Summary, "", "  ")
	fmt.Fprintln(out, string(encoded))
	return nil
}
