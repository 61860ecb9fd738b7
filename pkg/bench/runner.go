// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/schemabench/pkg/engine"
)

// ProviderRun is one engine instance to benchmark.
type ProviderRun struct {
	// EngineName is the registry name of the backend.
	EngineName string
	// ConfigPath is the engine's YAML config.
	ConfigPath string
	// Options configures the run.
	Options Options
}

// Label names the run in logs and reports.
func (r ProviderRun) Label() string {
	if r.Options.Provider != "" && r.Options.Model != "" {
		return r.Options.Provider + "/" + r.Options.Model
	}
	return r.EngineName
}

// UnitResult is one provider run's outcome.
type UnitResult struct {
	Run     ProviderRun
	Reports []TaskReport
	Err     error
}

// RunProviders benchmarks the given providers with bounded parallelism.
// Each provider gets its own engine instance; a provider that fails or
// panics is recorded in its result and never takes down its siblings. The
// results come back in input order.
func (b *Bench) RunProviders(ctx context.Context, runs []ProviderRun, concurrency int) []UnitResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	started := time.Now()
	b.logger.Info("provider sweep starting", "providers", len(runs), "concurrency", concurrency)

	results := make([]UnitResult, len(runs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, run := range runs {
		group.Go(func() error {
			results[i] = b.runUnit(ctx, run)
			// Failures stay local to their unit.
			return nil
		})
	}
	group.Wait()

	b.logger.Info("provider sweep finished",
		"wall_clock", time.Since(started).Round(time.Millisecond).String())
	return results
}

// runUnit benchmarks one provider, converting panics into unit errors.
func (b *Bench) runUnit(ctx context.Context, run ProviderRun) (result UnitResult) {
	result.Run = run
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("provider %s panicked: %v", run.Label(), r)
			b.logger.Error("provider run panicked", "provider", run.Label(), "panic", r)
		}
	}()

	e, err := engine.New(run.EngineName, run.ConfigPath, b.logger)
	if err != nil {
		result.Err = fmt.Errorf("build engine for %s: %w", run.Label(), err)
		b.logger.Error("engine construction failed", "provider", run.Label(), "error", err)
		return result
	}
	defer func() {
		if err := e.Close(); err != nil {
			b.logger.Warn("engine close failed", "provider", run.Label(), "error", err)
		}
	}()

	result.Reports, result.Err = b.Run(ctx, e, run.Options)
	if result.Err != nil {
		b.logger.Error("provider run failed", "provider", run.Label(), "error", result.Err)
	}
	return result
}
