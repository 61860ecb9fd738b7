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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsageAdd(t *testing.T) {
	a := TokenUsage{InputTokens: 10, OutputTokens: 5}
	b := TokenUsage{InputTokens: 3, OutputTokens: 7}
	sum := a.Add(b)
	assert.Equal(t, 13, sum.InputTokens)
	assert.Equal(t, 12, sum.OutputTokens)
	// operands untouched
	assert.Equal(t, 10, a.InputTokens)
}

func TestNewGenerationOutputStartsAtTBD(t *testing.T) {
	out := NewGenerationOutput("Glaiveai2K", nil, Schema{"type": "object"})
	assert.Equal(t, CompileTBD, out.Metadata.CompileStatus.Code)
	assert.Equal(t, DecodingTBD, out.Metadata.DecodingStatus.Code)
	assert.NotEmpty(t, out.ID)

	other := NewGenerationOutput("Glaiveai2K", nil, nil)
	assert.NotEqual(t, out.ID, other.ID)
}

func TestStatusCodeStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"compile tbd", CompileTBD.String(), "TBD"},
		{"compile ok", CompileOK.String(), "OK"},
		{"compile timeout", CompileTimeout.String(), "COMPILE_TIMEOUT"},
		{"compile unsupported", CompileUnsupportedSchema.String(), "UNSUPPORTED_SCHEMA"},
		{"decode timeout", DecodingTimeout.String(), "DECODING_TIMEOUT"},
		{"decode bad api", DecodingBadAPIResponse.String(), "BAD_API_RESPONSE"},
		{"decode unknown", DecodingUnknownError.String(), "UNKNOWN_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPerfFromTimestamps(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gce := start.Add(2 * time.Second)
	fta := start.Add(3 * time.Second)
	end := start.Add(8 * time.Second)

	pm := PerfFromTimestamps(start, &gce, &fta, end, 11)
	require.NotNil(t, pm.TTFT)
	assert.InDelta(t, 3.0, *pm.TTFT, 1e-9)
	require.NotNil(t, pm.TPOT)
	assert.InDelta(t, 500.0, *pm.TPOT, 1e-9) // (8-3)s / 10 tokens in ms
	require.NotNil(t, pm.TGT)
	assert.InDelta(t, 8.0, *pm.TGT, 1e-9)
	require.NotNil(t, pm.GCT)
	assert.InDelta(t, 2.0, *pm.GCT, 1e-9)
	require.NotNil(t, pm.PRFT)
	assert.InDelta(t, 1.0, *pm.PRFT, 1e-9)
}

func TestPerfFromTimestampsAbsencePropagates(t *testing.T) {
	start := time.Now()
	end := start.Add(time.Second)

	tests := []struct {
		name       string
		gce        *time.Time
		fta        *time.Time
		numTokens  int
		wantTTFT   bool
		wantTPOT   bool
		wantGCT    bool
		wantPRFT   bool
	}{
		{"all absent", nil, nil, 0, false, false, false, false},
		{"no first token", timePtr(start.Add(100 * time.Millisecond)), nil, 5, false, false, true, false},
		{"no grammar end", nil, timePtr(start.Add(200 * time.Millisecond)), 5, true, true, false, false},
		{"single token divides by zero", timePtr(start), timePtr(start), 1, true, false, true, true},
		{"zero tokens", timePtr(start), timePtr(start), 0, true, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := PerfFromTimestamps(start, tt.gce, tt.fta, end, tt.numTokens)
			assert.Equal(t, tt.wantTTFT, pm.TTFT != nil, "ttft")
			assert.Equal(t, tt.wantTPOT, pm.TPOT != nil, "tpot")
			assert.Equal(t, tt.wantGCT, pm.GCT != nil, "gct")
			assert.Equal(t, tt.wantPRFT, pm.PRFT != nil, "prft")
			assert.NotNil(t, pm.TGT, "tgt always present")
		})
	}
}

func TestNewMetric(t *testing.T) {
	m := NewMetric([]float64{3, 1, 2, 4})
	require.NotNil(t, m.Median)
	assert.InDelta(t, 2.5, *m.Median, 1e-9)
	assert.InDelta(t, 1.0, *m.Min, 1e-9)
	assert.InDelta(t, 4.0, *m.Max, 1e-9)
	require.NotNil(t, m.Std)
	assert.Greater(t, *m.Std, 0.0)
}

func TestNewMetricEmpty(t *testing.T) {
	m := NewMetric(nil)
	assert.Empty(t, m.Values)
	assert.Nil(t, m.Median)
	assert.Equal(t, "n/a", m.Display())
	assert.Equal(t, "", m.DisplayRange())
	assert.Nil(t, m.Mean())
}

func TestMetricDisplay(t *testing.T) {
	m := NewMetric([]float64{1, 1, 1})
	assert.Equal(t, "1.00 ± 0.00", m.Display())
	assert.Equal(t, "[1.00 - 1.00]", m.DisplayRange())
}

func TestGenerationOutputRoundTrip(t *testing.T) {
	out := NewGenerationOutput(
		"Snowplow",
		[]Message{{Role: "user", Content: "generate"}},
		Schema{"type": "object", "required": []any{"a"}},
	)
	out.Generation = `{"a": "x"}`
	out.Metadata.CompileStatus = CompileStatus{Code: CompileOK}
	out.Metadata.DecodingStatus = DecodingStatus{Code: DecodingOK}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var back GenerationOutput
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, out.Task, back.Task)
	assert.Equal(t, out.Generation, back.Generation)
	assert.Equal(t, out.Schema, back.Schema)
	assert.Equal(t, CompileOK, back.Metadata.CompileStatus.Code)
	assert.Equal(t, DecodingOK, back.Metadata.DecodingStatus.Code)
}

func timePtr(t time.Time) *time.Time { return &t }
