// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench orchestrates benchmark runs: it feeds task schemas through
// an engine, scores the outputs, and persists records and summary rows.
package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/schemabench/pkg/dataset"
	"github.com/AleutianAI/schemabench/pkg/engine"
	"github.com/AleutianAI/schemabench/pkg/evaluator"
	"github.com/AleutianAI/schemabench/pkg/logging"
	"github.com/AleutianAI/schemabench/pkg/messages"
	"github.com/AleutianAI/schemabench/pkg/types"
)

// Source yields the schemas of a task in row order.
type Source interface {
	Iterate(ctx context.Context, task string, limit int, fn func(sample dataset.Sample) error) error
}

// TaskState tracks one task through a benchmark run.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskEvaluating
	TaskPersisted
	TaskPersistFailed
)

// String returns the state name for log lines.
func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "PENDING"
	case TaskRunning:
		return "RUNNING"
	case TaskEvaluating:
		return "EVALUATING"
	case TaskPersisted:
		return "PERSISTED"
	case TaskPersistFailed:
		return "PERSIST_FAILED"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Options configures one engine's benchmark run.
type Options struct {
	// OutputDir is the root of the per-run results tree.
	OutputDir string
	// Provider and Model name the backend for the results path and summary
	// rows; when either is empty the run id names the results file instead.
	Provider string
	Model    string
	// Tasks lists the dataset tasks to run, in order.
	Tasks []string
	// Limit caps samples per task; 0 runs the whole split.
	Limit int
	// Resamples overrides the bootstrap resample count when positive.
	Resamples int
	// Seed, when set, makes the bootstrap deterministic.
	Seed *uint64
	// Formatter builds the prompt for each sample; FewShots when nil.
	Formatter messages.Formatter
	// Uploader, when set, archives the results file after the run.
	Uploader Uploader
	// ArchivePrefix is the remote object prefix for archived files.
	ArchivePrefix string
}

// TaskReport is the outcome of one task within a run.
type TaskReport struct {
	Task   string
	State  TaskState
	Result evaluator.Result
}

// Bench runs engines against the dataset and persists what they produce.
type Bench struct {
	source Source
	sink   *Sink
	logger *logging.Logger
}

// New builds a Bench.
func New(source Source, sink *Sink, logger *logging.Logger) *Bench {
	return &Bench{source: source, sink: sink, logger: logger}
}

// Run benchmarks one engine over the configured tasks. Samples within a
// task run sequentially; every terminal condition of a sample is recorded
// on its output rather than raised, so a run always produces a full results
// file. The returned reports carry one entry per task in input order.
func (b *Bench) Run(ctx context.Context, e engine.Engine, opts Options) ([]TaskReport, error) {
	runID := uuid.NewString()
	formatter := opts.Formatter
	if formatter == nil {
		formatter = messages.FewShots
	}

	logger := b.logger.With("run_id", runID, "engine", e.Name())
	recordsPath := resultsPath(opts, e.Name(), runID)
	writer, err := NewRecordWriter(recordsPath, RecordHeader{
		Engine:       e.Name(),
		EngineConfig: e.Config(),
	})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	logger.Info("benchmark run starting",
		"tasks", opts.Tasks, "limit", opts.Limit, "results", recordsPath)

	reports := make([]TaskReport, 0, len(opts.Tasks))
	for _, task := range opts.Tasks {
		report := b.runTask(ctx, e, task, runID, formatter, writer, opts)
		reports = append(reports, report)
		if ctx.Err() != nil {
			break
		}
	}

	if err := writer.Close(); err != nil {
		logger.Error("closing results file failed", "error", err)
	}

	logger.Info("benchmark run finished",
		"wall_clock", time.Since(started).Round(time.Millisecond).String(),
		"total_usage", e.TotalUsage().String())

	if opts.Uploader != nil {
		object := filepath.ToSlash(filepath.Join(opts.ArchivePrefix, e.Name(), filepath.Base(recordsPath)))
		if err := opts.Uploader.Upload(ctx, recordsPath, object); err != nil {
			logger.Error("archiving results failed", "object", object, "error", err)
		} else {
			logger.Info("results archived", "object", object)
		}
	}
	return reports, nil
}

// runTask drives one task through its lifecycle and returns its report.
func (b *Bench) runTask(ctx context.Context, e engine.Engine, task, runID string,
	formatter messages.Formatter, writer *RecordWriter, opts Options) TaskReport {

	logger := b.logger.With("run_id", runID, "engine", e.Name(), "task", task)
	report := TaskReport{Task: task, State: TaskPending}
	logger.Info("task state", "state", report.State.String())

	report.State = TaskRunning
	logger.Info("task state", "state", report.State.String())

	batch, err := b.generate(ctx, e, task, formatter, opts.Limit)
	if err != nil {
		logger.Error("task aborted", "error", err)
		report.State = TaskPersistFailed
		return report
	}

	report.State = TaskEvaluating
	logger.Info("task state", "state", report.State.String(), "samples", len(batch))

	evalOpts := []evaluator.Option{}
	if opts.Resamples > 0 {
		evalOpts = append(evalOpts, evaluator.WithResamples(opts.Resamples))
	}
	if opts.Seed != nil {
		evalOpts = append(evalOpts, evaluator.WithSeed(*opts.Seed))
	}
	report.Result = evaluator.Evaluate(batch, evalOpts...)

	report.State = TaskPersisted
	for _, output := range batch {
		if err := writer.Write(output); err != nil {
			logger.Error("persisting record failed", "error", err)
			report.State = TaskPersistFailed
			break
		}
	}
	if report.State == TaskPersisted && b.sink != nil {
		err := b.sink.Append(SummaryRow{
			RunID:    runID,
			Provider: opts.Provider,
			Model:    opts.Model,
			Task:     task,
			Result:   report.Result,
		})
		if err != nil {
			logger.Error("appending summary row failed", "error", err)
			report.State = TaskPersistFailed
		}
	}

	logger.Info("task state", "state", report.State.String(),
		"declared", report.Result.DeclaredCoverage.Display(),
		"empirical", report.Result.EmpiricalCoverage.Display(),
		"compliance", report.Result.Compliance.Display())
	return report
}

// generate runs every sample of a task through the engine sequentially.
func (b *Bench) generate(ctx context.Context, e engine.Engine, task string,
	formatter messages.Formatter, limit int) ([]*types.GenerationOutput, error) {

	var batch []*types.GenerationOutput
	err := b.source.Iterate(ctx, task, limit, func(sample dataset.Sample) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs := formatter(task, sample.Schema)
		batch = append(batch, engine.Run(ctx, e, task, msgs, sample.Schema))
		return nil
	})
	return batch, err
}

// resultsPath picks the results file location: provider/model when both are
// known, run id otherwise. Slashes in model names become underscores.
func resultsPath(opts Options, engineName, runID string) string {
	if opts.Provider != "" && opts.Model != "" {
		return filepath.Join(opts.OutputDir, engineName, opts.Provider,
			strings.ReplaceAll(opts.Model, "/", "_")+".jsonl")
	}
	return filepath.Join(opts.OutputDir, engineName, runID+".jsonl")
}
