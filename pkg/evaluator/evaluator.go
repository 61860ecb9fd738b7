// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluator scores a batch of generation outputs. Coverage rates are
// reported as bootstrap-resampled metrics so every score carries its spread,
// not just a point estimate.
package evaluator

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/AleutianAI/schemabench/pkg/types"
	"github.com/AleutianAI/schemabench/pkg/validation"
)

// Failure descriptions recorded on outputs that miss empirical coverage.
const (
	FailureEmptyGeneration = "Empty generation or schema"
	FailureNotParsable     = "Generation is not json parsable"
	FailureNotInstance     = "Generated json is not instance of the provided schema"
)

// DefaultResamples is the bootstrap resample count.
const DefaultResamples = 100

// Result carries the scored batch. Coverage metrics hold one resampled rate
// per bootstrap iteration; Outputs are the same records passed in, with
// failure annotations filled.
type Result struct {
	// DeclaredCoverage is the rate of samples whose schema compiled.
	DeclaredCoverage types.Metric
	// EmpiricalCoverage is the rate of samples whose generation parses and
	// validates against its schema.
	EmpiricalCoverage types.Metric
	// Compliance is empirical coverage restricted to samples that declared
	// support, i.e. P(valid | compiled).
	Compliance types.Metric
	// Perf aggregates the per-sample latency metrics that were present.
	Perf types.AggregatedPerfMetrics
	// OutputTokens aggregates generated token counts.
	OutputTokens types.Metric

	Outputs []*types.GenerationOutput
}

// Option customizes an evaluation.
type Option func(*config)

type config struct {
	resamples int
	seed      uint64
	seeded    bool
}

// WithResamples overrides the bootstrap resample count.
func WithResamples(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.resamples = n
		}
	}
}

// WithSeed makes the bootstrap deterministic.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
		c.seeded = true
	}
}

// Evaluate scores outputs in place and returns the batch result. An empty
// batch yields empty metrics that display as "n/a".
func Evaluate(outputs []*types.GenerationOutput, opts ...Option) Result {
	cfg := config{resamples: DefaultResamples}
	for _, opt := range opts {
		opt(&cfg)
	}
	var rng *rand.Rand
	if cfg.seeded {
		rng = rand.New(rand.NewPCG(cfg.seed, cfg.seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	declared := make([]float64, 0, len(outputs))
	empirical := make([]float64, 0, len(outputs))
	compliance := make([]float64, 0, len(outputs))
	var ttft, tpot, tgt, gct, prft, outputTokens []float64

	for _, output := range outputs {
		declaredOK := output.Metadata.CompileStatus.Code == types.CompileOK
		empiricalOK := classify(output)

		declared = append(declared, bit(declaredOK))
		empirical = append(empirical, bit(empiricalOK))
		if declaredOK {
			compliance = append(compliance, bit(empiricalOK))
		}

		appendPresent(&ttft, output.PerfMetrics.TTFT)
		appendPresent(&tpot, output.PerfMetrics.TPOT)
		appendPresent(&tgt, output.PerfMetrics.TGT)
		appendPresent(&gct, output.PerfMetrics.GCT)
		appendPresent(&prft, output.PerfMetrics.PRFT)
		// Token counts belong to the throughput pool only for samples that
		// produced a valid instance; zeros from failed samples would skew it.
		if empiricalOK {
			outputTokens = append(outputTokens, float64(output.TokenUsage.OutputTokens))
		}
	}

	return Result{
		DeclaredCoverage:  Bootstrap(declared, cfg.resamples, rng),
		EmpiricalCoverage: Bootstrap(empirical, cfg.resamples, rng),
		Compliance:        Bootstrap(compliance, cfg.resamples, rng),
		Perf: types.AggregatedPerfMetrics{
			TTFT: types.NewMetric(ttft),
			TPOT: types.NewMetric(tpot),
			TGT:  types.NewMetric(tgt),
			GCT:  types.NewMetric(gct),
			PRFT: types.NewMetric(prft),
		},
		OutputTokens: types.NewMetric(outputTokens),
		Outputs:      outputs,
	}
}

// classify decides a single sample's empirical bit and annotates the output
// with the failure description when the bit is 0.
func classify(output *types.GenerationOutput) bool {
	if output.Generation == "" || len(output.Schema) == 0 {
		markFailure(output, FailureEmptyGeneration)
		return false
	}

	var instance any
	if err := json.Unmarshal([]byte(output.Generation), &instance); err != nil {
		markFailure(output, FailureNotParsable)
		return false
	}

	if !validation.ValidateInstance(instance, output.Schema) {
		markFailure(output, FailureNotInstance)
		return false
	}

	output.Metadata.Failure = false
	output.Metadata.FailureType = ""
	return true
}

func markFailure(output *types.GenerationOutput, reason string) {
	output.Metadata.Failure = true
	output.Metadata.FailureType = reason
}

func bit(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func appendPresent(dst *[]float64, value *float64) {
	if value != nil {
		*dst = append(*dst, *value)
	}
}
