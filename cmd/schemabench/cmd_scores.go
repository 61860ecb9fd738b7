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
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/schemabench/pkg/bench"
	"github.com/AleutianAI/schemabench/pkg/evaluator"
	"github.com/AleutianAI/schemabench/pkg/types"
)

// runScores re-evaluates persisted results files. Scoring is a pure function
// of the records, so a results file can always be re-scored offline.
func runScores(cmd *cobra.Command, args []string) error {
	var rows []evaluator.ScoreRow
	for _, path := range args {
		header, outputs, err := bench.ReadRecords(path)
		if err != nil {
			return err
		}

		byTask := map[string][]*types.GenerationOutput{}
		for _, output := range outputs {
			byTask[output.Task] = append(byTask[output.Task], output)
		}

		tasks := make([]string, 0, len(byTask))
		for task := range byTask {
			tasks = append(tasks, task)
		}
		sort.Strings(tasks)

		for _, task := range tasks {
			rows = append(rows, evaluator.ScoreRow{
				Label:  header.Engine + " @ " + task,
				Result: evaluator.Evaluate(byTask[task]),
			})
		}
	}

	evaluator.PrintScores(os.Stdout, rows, detailed)
	return nil
}
