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
	"sort"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// StrictAdapt rewrites a schema for structured-output APIs that demand
// closed objects: every object with properties gets
// additionalProperties=false, the root gets a type if missing, and all
// declared properties become required. The schema is mutated in place and
// returned.
func StrictAdapt(schema types.Schema) types.Schema {
	if schema == nil {
		return schema
	}
	disallowAdditionalProperties(schema)
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	requireAllProperties(schema)
	return schema
}

// disallowAdditionalProperties closes every object node that declares
// properties, unless the node already closed itself. Descends through
// properties and items.
func disallowAdditionalProperties(node any) {
	obj, ok := node.(map[string]any)
	if !ok {
		return
	}

	props, hasProps := obj["properties"].(map[string]any)
	if hasProps && len(props) > 0 {
		if ap, set := obj["additionalProperties"]; !set || ap != false {
			obj["additionalProperties"] = false
		}
	}
	for _, prop := range props {
		disallowAdditionalProperties(prop)
	}
	if items, ok := obj["items"]; ok {
		disallowAdditionalProperties(items)
	}
}

// requireAllProperties sets required to the full property list on every
// object node in the tree, walking both nested maps and arrays.
func requireAllProperties(node any) {
	switch n := node.(type) {
	case map[string]any:
		if props, ok := n["properties"].(map[string]any); ok {
			keys := make([]string, 0, len(props))
			for key := range props {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			required := make([]any, 0, len(keys))
			for _, key := range keys {
				required = append(required, key)
			}
			n["required"] = required
		}
		for _, value := range n {
			requireAllProperties(value)
		}
	case []any:
		for _, item := range n {
			requireAllProperties(item)
		}
	}
}
