// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/schemabench/pkg/bench"
	"github.com/AleutianAI/schemabench/pkg/dataset"
	"github.com/AleutianAI/schemabench/pkg/evaluator"
	"github.com/AleutianAI/schemabench/pkg/gcs"
	"github.com/AleutianAI/schemabench/pkg/logging"
	"github.com/AleutianAI/schemabench/pkg/messages"
)

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := LoadRunConfig(runConfigPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(logLevel),
		LogDir:  cfg.LogDir,
		Service: "schemabench",
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sourceOpts := []dataset.HFOption{}
	if cfg.CacheDir != "" {
		cache, err := dataset.OpenCache(cfg.CacheDir, logger)
		if err != nil {
			return err
		}
		defer cache.Close()
		sourceOpts = append(sourceOpts, dataset.WithCache(cache))
	}
	source := dataset.NewHFSource(logger, sourceOpts...)

	sink := bench.NewSink(cfg.SummaryFile)

	var uploader bench.Uploader
	var archivePrefix string
	if cfg.GCS != nil && cfg.GCS.Bucket != "" {
		client, err := gcs.NewClient(ctx, cfg.GCS.Bucket, cfg.GCS.SAKeyPath, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		uploader = client
		archivePrefix = cfg.GCS.Prefix
	}

	formatter := messages.FewShots
	if cfg.Prompt == "zeroshot" {
		formatter = messages.ZeroShot
	}

	runs := make([]bench.ProviderRun, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		tasks := provider.Tasks
		if len(tasks) == 0 {
			tasks = cfg.Tasks
		}
		runs = append(runs, bench.ProviderRun{
			EngineName: provider.Engine,
			ConfigPath: provider.Config,
			Options: bench.Options{
				OutputDir:     cfg.OutputDir,
				Provider:      provider.Provider,
				Model:         provider.Model,
				Tasks:         tasks,
				Limit:         cfg.Limit,
				Resamples:     cfg.Resamples,
				Seed:          cfg.Seed,
				Formatter:     formatter,
				Uploader:      uploader,
				ArchivePrefix: archivePrefix,
			},
		})
	}

	b := bench.New(source, sink, logger)
	results := b.RunProviders(ctx, runs, cfg.Concurrency)

	var rows []evaluator.ScoreRow
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		for _, report := range result.Reports {
			rows = append(rows, evaluator.ScoreRow{
				Label:  result.Run.Label() + " @ " + report.Task,
				Result: report.Result,
			})
		}
	}
	evaluator.PrintScores(os.Stdout, rows, detailed)

	if uploader != nil {
		object := summaryObject(archivePrefix, sink.Path())
		if err := sink.Archive(ctx, uploader, object); err != nil {
			logger.Error("archiving summary failed", "object", object, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d provider runs failed", failed, len(results))
	}
	return nil
}

// summaryObject names the archived summary in the bucket. Join drops an
// empty prefix so the object key never starts with a slash.
func summaryObject(prefix, summaryPath string) string {
	return filepath.ToSlash(filepath.Join(prefix, filepath.Base(summaryPath)))
}

func parseLogLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
