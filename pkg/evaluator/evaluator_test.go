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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/types"
)

var objectSchema = types.Schema{
	"type":       "object",
	"properties": map[string]any{"a": map[string]any{"type": "string"}},
	"required":   []any{"a"},
}

// sample builds an output in a given terminal condition.
func sample(compiled bool, generation string) *types.GenerationOutput {
	out := types.NewGenerationOutput("default", nil, objectSchema)
	if compiled {
		out.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileOK}
		out.Metadata.DecodingStatus = types.DecodingStatus{Code: types.DecodingOK}
		out.Generation = generation
	} else {
		out.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileUnsupportedSchema}
	}
	return out
}

func TestEvaluateEmptyBatch(t *testing.T) {
	result := Evaluate(nil, WithSeed(1))

	assert.Equal(t, "n/a", result.DeclaredCoverage.Display())
	assert.Equal(t, "n/a", result.EmpiricalCoverage.Display())
	assert.Equal(t, "n/a", result.Compliance.Display())
	assert.Empty(t, result.OutputTokens.Values)
}

func TestEvaluateAllPerfect(t *testing.T) {
	outputs := []*types.GenerationOutput{
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": "y"}`),
		sample(true, `{"a": "z"}`),
	}

	result := Evaluate(outputs, WithSeed(7))

	// Resampling a constant population is exact at every iteration.
	require.NotNil(t, result.DeclaredCoverage.Median)
	assert.Equal(t, 1.0, *result.DeclaredCoverage.Median)
	assert.Equal(t, 0.0, *result.DeclaredCoverage.Std)
	assert.Equal(t, 1.0, *result.EmpiricalCoverage.Median)
	assert.Equal(t, 1.0, *result.Compliance.Median)

	for _, out := range outputs {
		assert.False(t, out.Metadata.Failure)
		assert.Empty(t, out.Metadata.FailureType)
	}
}

func TestEvaluateAllFailed(t *testing.T) {
	outputs := []*types.GenerationOutput{
		sample(false, ""),
		sample(false, ""),
	}

	result := Evaluate(outputs, WithSeed(7))

	assert.Equal(t, 0.0, *result.DeclaredCoverage.Median)
	assert.Equal(t, 0.0, *result.EmpiricalCoverage.Median)
	assert.Equal(t, "n/a", result.Compliance.Display(),
		"nothing compiled, so compliance has no population")
}

func TestEvaluateFailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		generation string
		schema     types.Schema
		wantType   string
	}{
		{
			name:       "empty generation",
			generation: "",
			schema:     objectSchema,
			wantType:   FailureEmptyGeneration,
		},
		{
			name:       "empty schema",
			generation: `{"a": "x"}`,
			schema:     types.Schema{},
			wantType:   FailureEmptyGeneration,
		},
		{
			name:       "not parsable",
			generation: `{"a": `,
			schema:     objectSchema,
			wantType:   FailureNotParsable,
		},
		{
			name:       "not an instance",
			generation: `{"a": 5}`,
			schema:     objectSchema,
			wantType:   FailureNotInstance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := types.NewGenerationOutput("default", nil, tt.schema)
			out.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileOK}
			out.Generation = tt.generation

			Evaluate([]*types.GenerationOutput{out}, WithSeed(1))

			assert.True(t, out.Metadata.Failure)
			assert.Equal(t, tt.wantType, out.Metadata.FailureType)
		})
	}
}

func TestEvaluateComplianceConditionsOnDeclared(t *testing.T) {
	// 7 compiled samples, 5 of them valid; 3 samples never compiled.
	// Compliance must be computed over the 7, not all 10.
	outputs := []*types.GenerationOutput{
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": "x"}`),
		sample(true, `{"a": 5}`),
		sample(true, `broken`),
		sample(false, ""),
		sample(false, ""),
		sample(false, ""),
	}

	result := Evaluate(outputs, WithSeed(42), WithResamples(2000))

	mean := result.Compliance.Mean()
	require.NotNil(t, mean)
	assert.InDelta(t, 5.0/7.0, *mean, 0.05)

	declaredMean := result.DeclaredCoverage.Mean()
	require.NotNil(t, declaredMean)
	assert.InDelta(t, 0.7, *declaredMean, 0.05)
}

func TestEvaluateDeterministicWithSeed(t *testing.T) {
	build := func() []*types.GenerationOutput {
		return []*types.GenerationOutput{
			sample(true, `{"a": "x"}`),
			sample(true, `{"a": 5}`),
			sample(false, ""),
		}
	}

	a := Evaluate(build(), WithSeed(99))
	b := Evaluate(build(), WithSeed(99))

	assert.Equal(t, a.DeclaredCoverage.Values, b.DeclaredCoverage.Values)
	assert.Equal(t, a.EmpiricalCoverage.Values, b.EmpiricalCoverage.Values)
	assert.Equal(t, a.Compliance.Values, b.Compliance.Values)
}

func TestEvaluateAggregatesPresentPerfOnly(t *testing.T) {
	withPerf := sample(true, `{"a": "x"}`)
	ttft := 0.5
	withPerf.PerfMetrics.TTFT = &ttft
	withPerf.TokenUsage.OutputTokens = 12

	noPerf := sample(false, "")

	result := Evaluate([]*types.GenerationOutput{withPerf, noPerf}, WithSeed(1))

	assert.Len(t, result.Perf.TTFT.Values, 1)
	assert.Equal(t, "n/a", result.Perf.TPOT.Display())
	assert.Equal(t, []float64{12}, result.OutputTokens.Values,
		"only valid samples contribute token counts")
}

func TestEvaluateOutputTokensExcludeFailedSamples(t *testing.T) {
	valid := sample(true, `{"a": "x"}`)
	valid.TokenUsage.OutputTokens = 40
	failed := sample(false, "")

	result := Evaluate([]*types.GenerationOutput{valid, failed}, WithSeed(1))

	assert.Equal(t, []float64{40}, result.OutputTokens.Values)
	require.NotNil(t, result.OutputTokens.Median)
	assert.Equal(t, 40.0, *result.OutputTokens.Median,
		"a compile-failed sample's zero count must not drag the median down")
}

func TestBootstrapProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))

	empty := Bootstrap(nil, 100, rng)
	assert.Empty(t, empty.Values)
	assert.Equal(t, "n/a", empty.Display())

	constant := Bootstrap([]float64{1, 1, 1, 1}, 50, rng)
	require.Len(t, constant.Values, 50)
	assert.Equal(t, 1.0, *constant.Median)
	assert.Equal(t, 0.0, *constant.Std)
	assert.Equal(t, 1.0, *constant.Min)
	assert.Equal(t, 1.0, *constant.Max)

	mixed := Bootstrap([]float64{0, 1}, 2000, rng)
	require.NotNil(t, mixed.Mean())
	assert.InDelta(t, 0.5, *mixed.Mean(), 0.05)
	assert.Greater(t, *mixed.Std, 0.0)
}

func TestRenderScores(t *testing.T) {
	outputs := []*types.GenerationOutput{sample(true, `{"a": "x"}`)}
	result := Evaluate(outputs, WithSeed(3))

	plain := RenderScores([]ScoreRow{{Label: "openai/gpt-4o-mini", Result: result}}, false, false)
	assert.Contains(t, plain, "openai/gpt-4o-mini")
	assert.Contains(t, plain, "Declared coverage")
	assert.Contains(t, plain, "1.00 ± 0.00")
	assert.Contains(t, plain, "n/a", "absent latency metrics render as n/a")

	detailed := RenderScores([]ScoreRow{{Label: "run", Result: result}}, true, false)
	assert.Contains(t, detailed, "[1.00 - 1.00]")
}
