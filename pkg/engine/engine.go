// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine defines the constrained-generation engine boundary and the
// per-sample generation lifecycle shared by all backends.
//
// An engine takes a JSON schema and produces a JSON object that should match
// it. Engines never raise past their own boundary: every compilation or
// decoding failure is captured into the sample's status fields and the
// orchestrator keeps going.
package engine

import (
	"context"
	"time"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// Engine is the capability set every backend implements. Token-level
// operations are optional; backends without a tokenizer report "unsupported"
// through the boolean returns and a zero CountTokens.
//
// An Engine instance is not safe for concurrent Generate calls; each
// benchmark worker owns its own instance.
type Engine interface {
	// Name identifies the backend family, e.g. "openai_compatible".
	Name() string

	// Config returns the engine configuration for the persisted record header.
	Config() any

	// AdaptSchema gives the backend a chance to rewrite the schema before
	// generation, e.g. to satisfy a strict structured-output API.
	AdaptSchema(schema types.Schema) types.Schema

	// Generate runs the compile and decode stages for one sample, mutating
	// output in place. It must not panic or return errors; failures land in
	// output.Metadata.
	Generate(ctx context.Context, output *types.GenerationOutput)

	// Encode tokenizes text. The second return is false when unsupported.
	Encode(text string) ([]int, bool)

	// Decode detokenizes ids. The second return is false when unsupported.
	Decode(ids []int) (string, bool)

	// CountTokens returns the token count of text, or 0 when unsupported.
	CountTokens(text string) int

	// MaxContextLength is the engine's context window in tokens.
	MaxContextLength() int

	// AddUsage folds one generation's token usage into the engine total.
	AddUsage(usage types.TokenUsage)

	// TotalUsage is the accumulated usage since the engine was created.
	TotalUsage() types.TokenUsage

	// Close releases backend resources.
	Close() error
}

// Base provides the default implementations of the optional Engine
// capabilities plus the per-instance token-usage accumulator. Backends embed
// it and override what they support.
type Base struct {
	usage types.TokenUsage
}

// AddUsage accumulates usage. The owning engine is the sole mutator; samples
// within one engine run sequentially, so no locking is needed.
func (b *Base) AddUsage(usage types.TokenUsage) { b.usage = b.usage.Add(usage) }

// TotalUsage returns the accumulated usage.
func (b *Base) TotalUsage() types.TokenUsage { return b.usage }

// AdaptSchema returns the schema unchanged.
func (b *Base) AdaptSchema(schema types.Schema) types.Schema { return schema }

// Encode reports tokenization as unsupported.
func (b *Base) Encode(string) ([]int, bool) { return nil, false }

// Decode reports detokenization as unsupported.
func (b *Base) Decode([]int) (string, bool) { return "", false }

// CountTokens reports token counting as unsupported.
func (b *Base) CountTokens(string) int { return 0 }

// Close is a no-op.
func (b *Base) Close() error { return nil }

// Run is the profiled entrypoint for one sample. It adapts the schema,
// creates the output record, drives the engine, accumulates token usage and
// derives the performance metrics from whatever timestamps the lifecycle
// recorded. Missing timestamps propagate as absent metrics.
func Run(ctx context.Context, e Engine, task string, msgs []types.Message, schema types.Schema) *types.GenerationOutput {
	adapted := e.AdaptSchema(schema)
	output := types.NewGenerationOutput(task, msgs, adapted)

	start := time.Now()
	e.Generate(ctx, output)
	end := time.Now()

	output.PerfMetrics = types.PerfFromTimestamps(
		start,
		output.Metadata.GrammarCompilationEndTime,
		output.Metadata.FirstTokenArrivalTime,
		end,
		output.TokenUsage.OutputTokens,
	)

	e.AddUsage(output.TokenUsage)
	return output
}
