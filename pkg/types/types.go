// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package types defines the data model shared by engines, the evaluator and
// the benchmark orchestrator: generation outputs, status codes, token usage
// and performance metrics.
//
// A GenerationOutput is created once per sample, mutated in place by the
// engine during compilation and decoding, annotated by the evaluator, and
// immutable thereafter.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Schema is an arbitrary JSON-Schema document. It is treated opaquely except
// by schema adaptation hooks that inspect fields like "required", "type",
// "properties" and "additionalProperties".
type Schema = map[string]any

// Message is a single chat turn sent to an engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompileStatusCode classifies the outcome of the schema/grammar compilation
// stage of a generation attempt.
type CompileStatusCode int

const (
	CompileTBD CompileStatusCode = iota - 1
	CompileOK
	CompileUnsupportedSchema
	CompileRuntimeGrammarError
	CompileAPIBadResponse
	CompilePromptTooLong
	CompileTimeout
	CompileRuntimeTimeout
	CompileUnknownError
)

// String returns the wire name of the code.
func (c CompileStatusCode) String() string {
	switch c {
	case CompileTBD:
		return "TBD"
	case CompileOK:
		return "OK"
	case CompileUnsupportedSchema:
		return "UNSUPPORTED_SCHEMA"
	case CompileRuntimeGrammarError:
		return "RUNTIME_GRAMMAR_ERROR"
	case CompileAPIBadResponse:
		return "API_BAD_RESPONSE"
	case CompilePromptTooLong:
		return "PROMPT_TOO_LONG"
	case CompileTimeout:
		return "COMPILE_TIMEOUT"
	case CompileRuntimeTimeout:
		return "RUNTIME_TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// DecodingStatusCode classifies the outcome of the decoding stage.
type DecodingStatusCode int

const (
	DecodingTBD DecodingStatusCode = iota - 1
	DecodingOK
	DecodingExceedingMaxCtx
	DecodingTimeout
	DecodingBadAPIResponse
	DecodingUnknownError
)

// String returns the wire name of the code.
func (d DecodingStatusCode) String() string {
	switch d {
	case DecodingTBD:
		return "TBD"
	case DecodingOK:
		return "OK"
	case DecodingExceedingMaxCtx:
		return "EXCEEDING_MAX_CTX"
	case DecodingTimeout:
		return "DECODING_TIMEOUT"
	case DecodingBadAPIResponse:
		return "BAD_API_RESPONSE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// CompileStatus is the recorded result of the compilation stage. Code starts
// at TBD and is set exactly once per generation attempt; a TBD surviving to
// evaluation marks an unexercised path and is treated as a failure.
type CompileStatus struct {
	Code    CompileStatusCode `json:"code"`
	Message string            `json:"message,omitempty"`
}

// DecodingStatus is the recorded result of the decoding stage. It is only
// meaningful when the compile status is OK.
type DecodingStatus struct {
	Code    DecodingStatusCode `json:"code"`
	Message string             `json:"message,omitempty"`
}

// TokenUsage counts prompt and completion tokens. It is combinable by
// field-wise addition and accumulates per engine instance across all
// generations; the engine is the sole mutator.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the field-wise sum of two usages.
func (t TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  t.InputTokens + other.InputTokens,
		OutputTokens: t.OutputTokens + other.OutputTokens,
	}
}

// String renders the usage for log lines.
func (t TokenUsage) String() string {
	return fmt.Sprintf("token usage: %d input, %d output", t.InputTokens, t.OutputTokens)
}

// Token is a single generated token. Fields are optional because not every
// engine exposes ids or logprobs.
type Token struct {
	ID      *int     `json:"id,omitempty"`
	Text    string   `json:"text,omitempty"`
	Logprob *float64 `json:"logprob,omitempty"`
}

// GenerationMetadata carries the stage timestamps and statuses of a single
// generation attempt, plus the failure annotation set by the evaluator.
// The lifecycle never touches Failure/FailureType.
type GenerationMetadata struct {
	FirstTokenArrivalTime     *time.Time     `json:"first_token_arrival_time,omitempty"`
	GrammarCompilationEndTime *time.Time     `json:"grammar_compilation_end_time,omitempty"`
	CompileStatus             CompileStatus  `json:"compile_status"`
	DecodingStatus            DecodingStatus `json:"decoding_status"`
	Failure                   bool           `json:"failure"`
	FailureType               string         `json:"failure_type,omitempty"`
}

// GenerationOutput is the unit record of the benchmark: one sample pushed
// through one engine. It belongs to exactly one task.
type GenerationOutput struct {
	Task            string             `json:"task"`
	Messages        []Message          `json:"messages"`
	Generation      string             `json:"generation"`
	Schema          Schema             `json:"schema"`
	ID              string             `json:"id"`
	GeneratedTokens []Token            `json:"generated_tokens"`
	TokenUsage      TokenUsage         `json:"token_usage"`
	PerfMetrics     PerfMetrics        `json:"perf_metrics"`
	Metadata        GenerationMetadata `json:"metadata"`
}

// NewGenerationOutput creates the per-sample record with both statuses at TBD
// and a fresh unique id.
func NewGenerationOutput(task string, messages []Message, schema Schema) *GenerationOutput {
	return &GenerationOutput{
		Task:     task,
		Messages: messages,
		Schema:   schema,
		ID:       uuid.NewString(),
		Metadata: GenerationMetadata{
			CompileStatus:  CompileStatus{Code: CompileTBD},
			DecodingStatus: DecodingStatus{Code: DecodingTBD},
		},
	}
}
