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
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// Bootstrap estimates the sampling distribution of the mean of values by
// drawing resamples with replacement and keeping each resample's mean. The
// returned metric summarizes those means. Empty input yields an empty metric.
func Bootstrap(values []float64, resamples int, rng *rand.Rand) types.Metric {
	if len(values) == 0 {
		return types.NewMetric(nil)
	}
	if resamples <= 0 {
		resamples = DefaultResamples
	}

	means := make([]float64, resamples)
	draw := make([]float64, len(values))
	for i := range means {
		for j := range draw {
			draw[j] = values[rng.IntN(len(values))]
		}
		means[i] = stat.Mean(draw, nil)
	}
	return types.NewMetric(means)
}
