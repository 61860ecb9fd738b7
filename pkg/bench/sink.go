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
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/schemabench/pkg/evaluator"
	"github.com/AleutianAI/schemabench/pkg/types"
)

// RecordHeader is the first line of every results file, identifying the
// engine that produced the records after it.
type RecordHeader struct {
	Engine       string `json:"engine"`
	EngineConfig any    `json:"engine_config"`
}

// RecordWriter appends generation outputs to a jsonl file, one record per
// line, with a RecordHeader on the first line.
type RecordWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewRecordWriter creates path (and its parents) and writes the header.
func NewRecordWriter(path string, header RecordHeader) (*RecordWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results file %s: %w", path, err)
	}
	buf := bufio.NewWriter(file)
	w := &RecordWriter{file: file, buf: buf, enc: json.NewEncoder(buf)}
	if err := w.enc.Encode(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write results header: %w", err)
	}
	return w, nil
}

// Write appends one record.
func (w *RecordWriter) Write(output *types.GenerationOutput) error {
	return w.enc.Encode(output)
}

// Close flushes and closes the file.
func (w *RecordWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadRecords loads a results file written by RecordWriter.
func ReadRecords(path string) (RecordHeader, []*types.GenerationOutput, error) {
	file, err := os.Open(path)
	if err != nil {
		return RecordHeader{}, nil, fmt.Errorf("open results file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return RecordHeader{}, nil, fmt.Errorf("results file %s is empty", path)
	}
	var header RecordHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return RecordHeader{}, nil, fmt.Errorf("parse results header: %w", err)
	}

	var outputs []*types.GenerationOutput
	for scanner.Scan() {
		var output types.GenerationOutput
		if err := json.Unmarshal(scanner.Bytes(), &output); err != nil {
			return header, outputs, fmt.Errorf("parse results record %d: %w", len(outputs)+1, err)
		}
		outputs = append(outputs, &output)
	}
	return header, outputs, scanner.Err()
}

// csvHeader is the summary table's column layout. The separator is ';'
// because metric cells embed "median ± std" strings.
var csvHeader = []string{
	"run_id", "provider", "model", "task",
	"declared_coverage", "empirical_coverage", "compliance",
	"ttft", "tpot", "tgt", "gct", "output_tokens",
}

// SummaryRow is one engine/task score line of the shared summary file.
type SummaryRow struct {
	RunID    string
	Provider string
	Model    string
	Task     string
	Result   evaluator.Result
}

// Sink appends score rows to a shared semicolon-separated summary file.
// Concurrent benchmark workers append through one Sink, serialized by its
// mutex; the header is written once, when the file is still empty.
type Sink struct {
	mu   sync.Mutex
	path string
}

// NewSink creates a sink writing to path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Path returns the summary file location.
func (s *Sink) Path() string { return s.path }

// Append adds one row, creating the file and header as needed.
func (s *Sink) Append(row SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open summary file %s: %w", s.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat summary file: %w", err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = ';'
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}
	record := []string{
		row.RunID, row.Provider, row.Model, row.Task,
		row.Result.DeclaredCoverage.Display(),
		row.Result.EmpiricalCoverage.Display(),
		row.Result.Compliance.Display(),
		row.Result.Perf.TTFT.Display(),
		row.Result.Perf.TPOT.Display(),
		row.Result.Perf.TGT.Display(),
		row.Result.Perf.GCT.Display(),
		row.Result.OutputTokens.Display(),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Uploader pushes a local file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectPath string) error
}

// Archive uploads the summary file under objectPath.
func (s *Sink) Archive(ctx context.Context, uploader Uploader, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uploader.Upload(ctx, s.path, objectPath)
}
