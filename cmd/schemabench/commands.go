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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/schemabench/pkg/dataset"
	"github.com/AleutianAI/schemabench/pkg/engine"
)

var (
	runConfigPath string
	logLevel      string
	detailed      bool

	rootCmd = &cobra.Command{
		Use:   "schemabench",
		Short: "Benchmark constrained JSON generation across providers",
		Long: `schemabench runs collections of JSON schemas through structured-output
engines, validates what they generate, and reports coverage and latency
with bootstrap confidence spreads.`,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark described by the run config",
		RunE:  runBenchmark, // Defined in cmd_run.go
	}

	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "List the benchmark tasks",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range dataset.Names() {
				fmt.Println(name)
			}
		},
	}

	enginesCmd = &cobra.Command{
		Use:   "engines",
		Short: "List the available engine backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range engine.Names() {
				fmt.Println(name)
			}
		},
	}

	scoresCmd = &cobra.Command{
		Use:   "scores [results.jsonl...]",
		Short: "Re-score persisted results files and print the score table",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScores, // Defined in cmd_scores.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "schemabench.yaml",
		"path to the run config")
	runCmd.Flags().BoolVar(&detailed, "detailed", false,
		"include [min - max] ranges in the score table")
	scoresCmd.Flags().BoolVar(&detailed, "detailed", false,
		"include [min - max] ranges in the score table")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(enginesCmd)
	rootCmd.AddCommand(scoresCmd)
}
