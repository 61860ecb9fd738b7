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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/types"
)

func TestStrictAdaptClosesObjectsAndRequiresProperties(t *testing.T) {
	schema := types.Schema{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
	}

	adapted := StrictAdapt(schema)

	assert.Equal(t, false, adapted["additionalProperties"])
	assert.Equal(t, []any{"age", "name"}, adapted["required"],
		"required keys are sorted for deterministic output")
}

func TestStrictAdaptNestedObjectsAndItems(t *testing.T) {
	schema := types.Schema{
		"properties": map[string]any{
			"address": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			},
			"tags": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label": map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	adapted := StrictAdapt(schema)

	assert.Equal(t, "object", adapted["type"], "missing root type defaults to object")

	address := adapted["properties"].(map[string]any)["address"].(map[string]any)
	assert.Equal(t, false, address["additionalProperties"])
	assert.Equal(t, []any{"city"}, address["required"])

	items := adapted["properties"].(map[string]any)["tags"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.Equal(t, []any{"label"}, items["required"])
}

func TestStrictAdaptLeavesNonObjectSchemasAlone(t *testing.T) {
	schema := types.Schema{"type": "string", "minLength": 1}

	adapted := StrictAdapt(schema)

	assert.Equal(t, "string", adapted["type"])
	_, hasAP := adapted["additionalProperties"]
	assert.False(t, hasAP)
	_, hasRequired := adapted["required"]
	assert.False(t, hasRequired)
}

func TestStrictAdaptNilSchema(t *testing.T) {
	require.Nil(t, StrictAdapt(nil))
}

func TestStrictAdaptEmptyPropertiesNotClosed(t *testing.T) {
	schema := types.Schema{"type": "object", "properties": map[string]any{}}

	adapted := StrictAdapt(schema)

	_, hasAP := adapted["additionalProperties"]
	assert.False(t, hasAP, "an empty properties map must not close the object")
}
