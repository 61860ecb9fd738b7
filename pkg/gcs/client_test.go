// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/logging"
)

func TestNewClientMissingKeyFile(t *testing.T) {
	_, err := NewClient(context.Background(), "bucket", "/nonexistent/key.json", logging.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account key not found")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/x-ndjson", contentType("results/run.jsonl"))
	assert.Equal(t, "text/csv", contentType("summary.csv"))
	assert.Equal(t, "application/json", contentType("config.json"))
	assert.Equal(t, "application/octet-stream", contentType("archive.tar"))
}
