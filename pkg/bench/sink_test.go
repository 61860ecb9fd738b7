// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/evaluator"
	"github.com/AleutianAI/schemabench/pkg/types"
)

func TestRecordWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "run.jsonl")
	header := RecordHeader{
		Engine:       "openai_compatible",
		EngineConfig: map[string]any{"model": "gpt-4o-mini"},
	}

	writer, err := NewRecordWriter(path, header)
	require.NoError(t, err)

	first := types.NewGenerationOutput("Snowplow", nil, types.Schema{"type": "object"})
	first.Generation = `{"a": 1}`
	first.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileOK}
	second := types.NewGenerationOutput("Snowplow", nil, types.Schema{"type": "string"})
	second.Metadata.CompileStatus = types.CompileStatus{
		Code:    types.CompileUnsupportedSchema,
		Message: "no grammar",
	}

	require.NoError(t, writer.Write(first))
	require.NoError(t, writer.Write(second))
	require.NoError(t, writer.Close())

	gotHeader, outputs, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, "openai_compatible", gotHeader.Engine)
	require.Len(t, outputs, 2)
	assert.Equal(t, `{"a": 1}`, outputs[0].Generation)
	assert.Equal(t, first.ID, outputs[0].ID)
	assert.Equal(t, types.CompileUnsupportedSchema, outputs[1].Metadata.CompileStatus.Code)
}

func TestReadRecordsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, _, err := ReadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func testRow(task string) SummaryRow {
	out := types.NewGenerationOutput(task, nil, types.Schema{"type": "object"})
	out.Metadata.CompileStatus = types.CompileStatus{Code: types.CompileOK}
	out.Generation = `{}`
	result := evaluator.Evaluate([]*types.GenerationOutput{out}, evaluator.WithSeed(1))
	return SummaryRow{
		RunID:    "run-1",
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Task:     task,
		Result:   result,
	}
}

func TestSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores", "summary.csv")
	sink := NewSink(path)

	require.NoError(t, sink.Append(testRow("Github_easy")))
	require.NoError(t, sink.Append(testRow("Github_hard")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "run_id;provider;model;task;declared_coverage;empirical_coverage;compliance;ttft;tpot;tgt;gct;output_tokens", lines[0])
	assert.Contains(t, lines[1], "Github_easy")
	assert.Contains(t, lines[1], "1.00 ± 0.00")
}

func TestSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	sink := NewSink(path)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, sink.Append(testRow(fmt.Sprintf("task_%d", i))))
		}(i)
	}
	wg.Wait()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, workers+1, "one header plus one row per worker")
	for _, record := range records {
		assert.Len(t, record, 12, "every row keeps the full column layout")
	}
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string]string // object -> local
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, localPath, objectPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	if u.uploads == nil {
		u.uploads = map[string]string{}
	}
	u.uploads[objectPath] = localPath
	return nil
}

func TestSinkArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	sink := NewSink(path)
	require.NoError(t, sink.Append(testRow("default")))

	uploader := &fakeUploader{}
	require.NoError(t, sink.Archive(context.Background(), uploader, "runs/summary.csv"))
	assert.Equal(t, path, uploader.uploads["runs/summary.csv"])
}
