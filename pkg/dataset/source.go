// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/AleutianAI/schemabench/pkg/logging"
	"github.com/AleutianAI/schemabench/pkg/types"
)

const (
	defaultEndpoint = "https://datasets-server.huggingface.co"
	defaultSplit    = "test"
	pageSize        = 100
)

// HFSource streams task schemas from the HuggingFace datasets-server rows
// API, one page at a time, optionally backed by a local Cache.
type HFSource struct {
	Dataset  string
	Split    string
	Endpoint string

	client *http.Client
	cache  *Cache
	logger *logging.Logger
}

// HFOption customizes an HFSource.
type HFOption func(*HFSource)

// WithCache attaches a page cache.
func WithCache(cache *Cache) HFOption {
	return func(s *HFSource) { s.cache = cache }
}

// WithEndpoint overrides the datasets-server endpoint.
func WithEndpoint(endpoint string) HFOption {
	return func(s *HFSource) { s.Endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HFOption {
	return func(s *HFSource) { s.client = client }
}

// NewHFSource builds a source for the default benchmark dataset.
func NewHFSource(logger *logging.Logger, opts ...HFOption) *HFSource {
	s := &HFSource{
		Dataset:  DefaultDataset,
		Split:    defaultSplit,
		Endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type rowsPage struct {
	Rows []struct {
		RowIdx int `json:"row_idx"`
		Row    struct {
			JSONSchema string `json:"json_schema"`
		} `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Len returns the number of samples in task's split.
func (s *HFSource) Len(ctx context.Context, task string) (int, error) {
	page, err := s.page(ctx, task, 0)
	if err != nil {
		return 0, err
	}
	return page.NumRowsTotal, nil
}

// Iterate walks the task's schemas in row order, calling fn for each parsed
// sample. A limit of 0 or less means the whole split. Rows whose schema
// fails to parse are skipped with a warning; fn returning an error stops the
// walk.
func (s *HFSource) Iterate(ctx context.Context, task string, limit int, fn func(sample Sample) error) error {
	seen := 0
	for offset := 0; ; offset += pageSize {
		page, err := s.page(ctx, task, offset)
		if err != nil {
			return err
		}
		if len(page.Rows) == 0 {
			return nil
		}
		for _, row := range page.Rows {
			if limit > 0 && seen >= limit {
				return nil
			}
			seen++

			var schema types.Schema
			if err := json.Unmarshal([]byte(row.Row.JSONSchema), &schema); err != nil {
				s.logger.Warn("skipping unparsable schema row",
					"task", task, "row", row.RowIdx, "error", err)
				continue
			}
			if err := fn(Sample{Index: row.RowIdx, Schema: schema}); err != nil {
				return err
			}
		}
		if offset+pageSize >= page.NumRowsTotal {
			return nil
		}
	}
}

// page returns one decoded page, consulting the cache first.
func (s *HFSource) page(ctx context.Context, task string, offset int) (*rowsPage, error) {
	if s.cache != nil {
		if body, ok := s.cache.GetPage(task, offset); ok {
			var page rowsPage
			if err := json.Unmarshal(body, &page); err == nil {
				return &page, nil
			}
			s.logger.Warn("discarding corrupt cached page", "task", task, "offset", offset)
		}
	}

	body, err := s.fetch(ctx, task, offset)
	if err != nil {
		return nil, err
	}
	var page rowsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode rows page for %s@%d: %w", task, offset, err)
	}
	if s.cache != nil {
		s.cache.PutPage(task, offset, body)
	}
	return &page, nil
}

func (s *HFSource) fetch(ctx context.Context, task string, offset int) ([]byte, error) {
	query := url.Values{}
	query.Set("dataset", s.Dataset)
	query.Set("config", task)
	query.Set("split", s.Split)
	query.Set("offset", fmt.Sprint(offset))
	query.Set("length", fmt.Sprint(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.Endpoint+"/rows?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rows request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rows for %s@%d: %w", task, offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("datasets server returned %d for %s@%d: %s",
			resp.StatusCode, task, offset, msg)
	}
	return io.ReadAll(resp.Body)
}
