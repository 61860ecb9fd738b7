// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/types"
)

func mustSchema(t *testing.T, raw string) types.Schema {
	t.Helper()
	var s types.Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return s
}

func TestIsSchemaValid(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   bool
	}{
		{"object schema", `{"type":"object"}`, true},
		{"empty schema", `{}`, true},
		{"bad type keyword", `{"type":"objekt"}`, false},
		{"bad properties shape", `{"properties": 12}`, false},
		{"bad required shape", `{"type":"object","required":"a"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsSchemaValid(mustSchema(t, tt.schema))
			if got != tt.want {
				t.Errorf("IsSchemaValid(%s) = %v, want %v", tt.schema, got, tt.want)
			}
		})
	}
}

func TestValidateInstance(t *testing.T) {
	schema := mustSchema(t, `{"type":"object","properties":{"a":{"type":"string"}},"required":["a"]}`)

	tests := []struct {
		name     string
		instance string
		want     bool
	}{
		{"conforming", `{"a": "x"}`, true},
		{"wrong property type", `{"a": 5}`, false},
		{"missing required", `{"b": "x"}`, false},
		{"wrong root type", `"a"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var instance any
			require.NoError(t, json.Unmarshal([]byte(tt.instance), &instance))
			got := ValidateInstance(instance, schema)
			if got != tt.want {
				t.Errorf("ValidateInstance(%s) = %v, want %v", tt.instance, got, tt.want)
			}
		})
	}
}

func TestValidateInstanceInvalidSchema(t *testing.T) {
	schema := mustSchema(t, `{"type":"objekt"}`)
	assert.False(t, ValidateInstance(map[string]any{}, schema))
}

func TestFormatChecks(t *testing.T) {
	tests := []struct {
		name   string
		format string
		value  string
		want   bool
	}{
		{"ipv4 ok", "ipv4", "192.168.1.1", true},
		{"ipv4 out of range", "ipv4", "300.1.1.1", false},
		{"ipv4 not an address", "ipv4", "not-an-ip", false},
		{"ipv4 rejects ipv6", "ipv4", "::1", false},
		{"ipv6 ok", "ipv6", "2001:db8::1", true},
		{"ipv6 loopback", "ipv6", "::1", true},
		{"ipv6 rejects ipv4", "ipv6", "10.0.0.1", false},
		{"ipv6 garbage", "ipv6", "zz::1::", false},
		{"uuid ok", "uuid", "0d2e74eb-7e47-4d7e-9e44-659f8f1f1a22", true},
		{"uuid garbage", "uuid", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := types.Schema{"type": "string", "format": tt.format}
			got := ValidateInstance(tt.value, schema)
			if got != tt.want {
				t.Errorf("format %s value %q = %v, want %v", tt.format, tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatChecksIgnoreNonStrings(t *testing.T) {
	schema := types.Schema{"format": "ipv4"}
	assert.True(t, ValidateInstance(float64(42), schema))
}

func TestValidateInstanceConcurrent(t *testing.T) {
	schema := mustSchema(t, `{"type":"object","properties":{"ip":{"type":"string","format":"ipv4"}}}`)
	instance := map[string]any{"ip": "10.1.2.3"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !ValidateInstance(instance, schema) {
					t.Error("expected instance to validate")
					return
				}
			}
		}()
	}
	wg.Wait()
}
