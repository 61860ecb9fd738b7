// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package types

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metric is a distribution of per-sample values (or bootstrap resample means)
// together with its summary. An empty Values slice with absent summary fields
// is a valid state meaning "no data" and renders as "n/a".
type Metric struct {
	Values []float64 `json:"values"`
	Std    *float64  `json:"std,omitempty"`
	Min    *float64  `json:"min,omitempty"`
	Max    *float64  `json:"max,omitempty"`
	Median *float64  `json:"median,omitempty"`
}

// NewMetric summarizes values into a Metric. An empty or nil input yields the
// "no data" state without error.
func NewMetric(values []float64) Metric {
	if len(values) == 0 {
		return Metric{Values: []float64{}}
	}

	m := Metric{Values: values}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	med := median(values)
	std := 0.0
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	m.Min, m.Max, m.Median, m.Std = &lo, &hi, &med, &std
	return m
}

// Display renders the metric as "<median> ± <std>", or "n/a" when empty.
func (m Metric) Display() string {
	if m.Median == nil || m.Std == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f ± %.2f", *m.Median, *m.Std)
}

// DisplayRange renders "[<min> - <max>]" for the detailed score table, or an
// empty string when the metric carries no data.
func (m Metric) DisplayRange() string {
	if m.Min == nil || m.Max == nil {
		return ""
	}
	return fmt.Sprintf("[%.2f - %.2f]", *m.Min, *m.Max)
}

// Mean returns the mean of the carried values, or nil when empty.
func (m Metric) Mean() *float64 {
	if len(m.Values) == 0 {
		return nil
	}
	v := stat.Mean(m.Values, nil)
	return &v
}

// median matches the usual middle-of-sorted definition, averaging the two
// central elements for even-length input. The input slice is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// AggregatedPerfMetrics carries one Metric per latency dimension for a task.
type AggregatedPerfMetrics struct {
	TTFT Metric `json:"ttft"`
	TPOT Metric `json:"tpot"`
	TGT  Metric `json:"tgt"`
	GCT  Metric `json:"gct"`
	PRFT Metric `json:"prft"`
}
