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

import "time"

// PerfMetrics holds the latency measurements of a single generation. Every
// field is optional; a metric derived from a timestamp that was never
// recorded stays nil rather than producing a bogus value.
type PerfMetrics struct {
	// TTFT is the time to first token in seconds.
	TTFT *float64 `json:"ttft,omitempty"`
	// TPOT is the time per output token in milliseconds.
	TPOT *float64 `json:"tpot,omitempty"`
	// TGT is the total generation time in seconds.
	TGT *float64 `json:"tgt,omitempty"`
	// GCT is the grammar/schema compilation time in seconds.
	GCT *float64 `json:"gct,omitempty"`
	// PRFT is the prefill time in seconds.
	PRFT *float64 `json:"prft,omitempty"`
}

// PerfFromTimestamps derives PerfMetrics from the lifecycle timestamps.
// start and end bracket the whole generation; the grammar-compilation-end and
// first-token-arrival timestamps are optional. Any absent operand propagates
// as an absent result.
func PerfFromTimestamps(start time.Time, grammarEnd, firstToken *time.Time, end time.Time, numOutputTokens int) PerfMetrics {
	ttft := subSeconds(firstToken, &start)

	var tpot *float64
	if numOutputTokens > 0 {
		tail := subSeconds(&end, firstToken)
		tpot = safeDivide(tail, float64(numOutputTokens-1))
		if tpot != nil {
			ms := *tpot * 1000
			tpot = &ms
		}
	}

	tgt := subSeconds(&end, &start)
	gct := subSeconds(grammarEnd, &start)
	prft := subSeconds(firstToken, grammarEnd)

	return PerfMetrics{TTFT: ttft, TPOT: tpot, TGT: tgt, GCT: gct, PRFT: prft}
}

// subSeconds returns a-b in seconds, or nil when either operand is absent.
func subSeconds(a, b *time.Time) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := a.Sub(*b).Seconds()
	return &v
}

// safeDivide returns a/b, or nil when a is absent or b is zero.
func safeDivide(a *float64, b float64) *float64 {
	if a == nil || b == 0 {
		return nil
	}
	v := *a / b
	return &v
}
