// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evaluator

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// ScoreRow is one rendered line of the score table, typically one
// engine/task combination.
type ScoreRow struct {
	Label  string
	Result Result
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderScores renders the score table. When detailed is set, each metric
// cell also carries the [min - max] range of its resampled values. Styling
// is applied only when styled is true; pipe-friendly output stays plain.
func RenderScores(rows []ScoreRow, detailed, styled bool) string {
	headers := []string{
		"Run", "Declared coverage", "Empirical coverage", "Compliance",
		"TTFT (s)", "TPOT (ms)", "TGT (s)", "GCT (s)", "Output tokens",
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if !styled {
				return lipgloss.NewStyle().Padding(0, 1)
			}
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, row := range rows {
		t.Row(
			row.Label,
			cell(row.Result.DeclaredCoverage, detailed),
			cell(row.Result.EmpiricalCoverage, detailed),
			cell(row.Result.Compliance, detailed),
			cell(row.Result.Perf.TTFT, detailed),
			cell(row.Result.Perf.TPOT, detailed),
			cell(row.Result.Perf.TGT, detailed),
			cell(row.Result.Perf.GCT, detailed),
			cell(row.Result.OutputTokens, detailed),
		)
	}
	return t.Render()
}

// PrintScores writes the score table to w, styling it only when w is a
// terminal.
func PrintScores(w io.Writer, rows []ScoreRow, detailed bool) {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	fmt.Fprintln(w, RenderScores(rows, detailed, styled))
}

func cell(metric types.Metric, detailed bool) string {
	display := metric.Display()
	if !detailed {
		return display
	}
	if r := metric.DisplayRange(); r != "" {
		return strings.Join([]string{display, r}, " ")
	}
	return display
}
