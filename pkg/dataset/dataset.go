// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset fetches the benchmark's JSON schema collections from the
// HuggingFace datasets server, with a local page cache so repeated runs do
// not hammer the API.
package dataset

import (
	"sort"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// DefaultDataset is the HuggingFace dataset the benchmark tasks live in.
const DefaultDataset = "epfl-dlab/JSONSchemaBench"

// taskNames are the dataset configs, each a collection of schemas from one
// source, ordered roughly by difficulty within each family.
var taskNames = []string{
	"Github_easy",
	"Github_hard",
	"Github_medium",
	"Github_trivial",
	"Github_ultra",
	"Glaiveai2K",
	"JsonSchemaStore",
	"Kubernetes",
	"Snowplow",
	"WashingtonPost",
	"default",
}

// Names returns the known task names, sorted.
func Names() []string {
	out := make([]string, len(taskNames))
	copy(out, taskNames)
	sort.Strings(out)
	return out
}

// IsKnownTask reports whether name is one of the benchmark tasks.
func IsKnownTask(name string) bool {
	for _, t := range taskNames {
		if t == name {
			return true
		}
	}
	return false
}

// Sample is one schema drawn from a task.
type Sample struct {
	// Index is the sample's position within the task split.
	Index int
	// Schema is the parsed JSON schema.
	Schema types.Schema
}
