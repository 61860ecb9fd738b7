// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// Stage timeout defaults. Engines can override per config.
const (
	DefaultCompileTimeout = 10 * time.Second
	DefaultDecodeTimeout  = 60 * time.Second
	DefaultProbeTimeout   = 15 * time.Second
)

// State tracks a sample through the generation lifecycle.
type State int

const (
	StateStart State = iota
	StateCompiling
	StateCompiled
	StateCompileFailed
	StateCompileTimeout
	StateDecoding
	StateDecoded
	StateDecodeFailed
	StateDecodeTimeout
	StateDone
)

// String returns the state name for log lines.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateCompiling:
		return "COMPILING"
	case StateCompiled:
		return "COMPILED"
	case StateCompileFailed:
		return "COMPILE_FAILED"
	case StateCompileTimeout:
		return "COMPILE_TIMEOUT"
	case StateDecoding:
		return "DECODING"
	case StateDecoded:
		return "DECODED"
	case StateDecodeFailed:
		return "DECODE_FAILED"
	case StateDecodeTimeout:
		return "DECODE_TIMEOUT"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// CompileError lets a compile function pick the status code recorded for its
// failure. Plain errors default to UNSUPPORTED_SCHEMA.
type CompileError struct {
	Code types.CompileStatusCode
	Err  error
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

// DecodeError lets a decode function pick the status code recorded for its
// failure. Plain errors default to UNKNOWN_ERROR.
type DecodeError struct {
	Code types.DecodingStatusCode
	Err  error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// errStageTimeout marks a stage abandoned at its deadline.
var errStageTimeout = errors.New("stage deadline exceeded")

// Lifecycle drives one sample through COMPILING and DECODING with bounded
// stage durations, recording timestamps and statuses on the output. Each
// stage failure or timeout is terminal for the sample; decoding is never
// attempted unless compilation succeeded.
type Lifecycle struct {
	output         *types.GenerationOutput
	compileTimeout time.Duration
	decodeTimeout  time.Duration
	state          State

	mu         sync.Mutex
	fragments  []string
	firstToken *time.Time
}

// LifecycleOption customizes stage timeouts.
type LifecycleOption func(*Lifecycle)

// WithCompileTimeout overrides the compile stage deadline.
func WithCompileTimeout(d time.Duration) LifecycleOption {
	return func(lc *Lifecycle) {
		if d > 0 {
			lc.compileTimeout = d
		}
	}
}

// WithDecodeTimeout overrides the decode stage deadline.
func WithDecodeTimeout(d time.Duration) LifecycleOption {
	return func(lc *Lifecycle) {
		if d > 0 {
			lc.decodeTimeout = d
		}
	}
}

// NewLifecycle creates the state machine for one sample.
func NewLifecycle(output *types.GenerationOutput, opts ...LifecycleOption) *Lifecycle {
	lc := &Lifecycle{
		output:         output,
		compileTimeout: DefaultCompileTimeout,
		decodeTimeout:  DefaultDecodeTimeout,
		state:          StateStart,
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// State returns the current lifecycle state.
func (lc *Lifecycle) State() State { return lc.state }

// Compile runs fn under the compile deadline. On success it records the
// grammar compilation end time and an OK status and returns true. On error
// or timeout it records the classified status and returns false; the sample
// must then terminate without decoding.
func (lc *Lifecycle) Compile(ctx context.Context, fn func(ctx context.Context) error) bool {
	lc.state = StateCompiling
	err := lc.runBounded(ctx, lc.compileTimeout, fn)
	switch {
	case err == nil:
		now := time.Now()
		lc.output.Metadata.GrammarCompilationEndTime = &now
		lc.output.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileOK}
		lc.state = StateCompiled
		return true
	case errors.Is(err, errStageTimeout):
		lc.output.Metadata.CompileStatus = types.CompileStatus{
			Code:    types.CompileTimeout,
			Message: "schema compilation timed out",
		}
		lc.state = StateCompileTimeout
		return false
	default:
		code := types.CompileUnsupportedSchema
		var cerr *CompileError
		if errors.As(err, &cerr) {
			code = cerr.Code
		}
		lc.output.Metadata.CompileStatus = types.CompileStatus{Code: code, Message: err.Error()}
		lc.state = StateCompileFailed
		return false
	}
}

// Decode runs fn under the decode deadline. fn streams generated fragments
// through emit; the first emit call stamps the first-token arrival time. On
// success the full text is assembled from the fragments in arrival order and
// an OK status recorded. On timeout, partial fragments are discarded and the
// first-token timestamp is explicitly unset so an incomplete generation never
// reports a latency metric.
func (lc *Lifecycle) Decode(ctx context.Context, fn func(ctx context.Context, emit func(fragment string)) error) bool {
	if lc.state != StateCompiled {
		return false
	}
	lc.state = StateDecoding
	err := lc.runBounded(ctx, lc.decodeTimeout, func(ctx context.Context) error {
		return fn(ctx, lc.emit)
	})
	switch {
	case err == nil:
		lc.mu.Lock()
		lc.output.Generation = strings.Join(lc.fragments, "")
		lc.output.Metadata.FirstTokenArrivalTime = lc.firstToken
		lc.mu.Unlock()
		lc.output.Metadata.DecodingStatus = types.DecodingStatus{Code: types.DecodingOK}
		lc.state = StateDecoded
		return true
	case errors.Is(err, errStageTimeout):
		lc.output.Metadata.FirstTokenArrivalTime = nil
		lc.output.Metadata.DecodingStatus = types.DecodingStatus{
			Code:    types.DecodingTimeout,
			Message: "generation timed out",
		}
		lc.state = StateDecodeTimeout
		return false
	default:
		code := types.DecodingUnknownError
		var derr *DecodeError
		if errors.As(err, &derr) {
			code = derr.Code
		}
		lc.output.Metadata.DecodingStatus = types.DecodingStatus{Code: code, Message: err.Error()}
		lc.state = StateDecodeFailed
		return false
	}
}

// Finish marks the sample done after a successful decode.
func (lc *Lifecycle) Finish() {
	if lc.state == StateDecoded {
		lc.state = StateDone
	}
}

// Fragments returns the streamed fragments in arrival order.
func (lc *Lifecycle) Fragments() []string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]string, len(lc.fragments))
	copy(out, lc.fragments)
	return out
}

// emit records the first-token arrival on its first call (even for an empty
// fragment, which marks stream start) and appends non-empty fragments.
func (lc *Lifecycle) emit(fragment string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.firstToken == nil {
		now := time.Now()
		lc.firstToken = &now
	}
	if fragment != "" {
		lc.fragments = append(lc.fragments, fragment)
	}
}

// runBounded executes fn with a deadline. When the deadline passes before fn
// returns, the stage context is cancelled, the goroutine is abandoned to
// finish on its own, and errStageTimeout is returned. Cancellation is
// cooperative: fn must honor its context for prompt teardown, but a stuck fn
// never blocks the caller past the deadline.
func (lc *Lifecycle) runBounded(parent context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return errStageTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errStageTimeout
		}
		return ctx.Err()
	}
}
