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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AleutianAI/schemabench/pkg/logging"
	"github.com/AleutianAI/schemabench/pkg/types"
)

// OllamaName is the registry name of the local Ollama engine.
const OllamaName = "ollama"

// OllamaConfig configures a locally hosted Ollama server. Grammar
// compilation happens inside the server process, so an external probe
// command can be configured to vet schemas in a throwaway process first.
type OllamaConfig struct {
	Model            string        `yaml:"model" json:"model" validate:"required"`
	BaseURL          string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	MaxTokens        int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature      *float32      `yaml:"temperature" json:"temperature,omitempty"`
	MaxContextLength int           `yaml:"max_context_length" json:"max_context_length"`
	GrammarProbe     ProbeConfig   `yaml:"grammar_probe" json:"-"`
	Timeouts         StageTimeouts `yaml:"timeouts" json:"-"`
}

// OllamaEngine streams constrained generations from an Ollama server using
// its native chat API with the format field carrying the JSON schema.
type OllamaEngine struct {
	Base
	config OllamaConfig
	client *http.Client
	probe  Probe
	logger *logging.Logger
}

// NewOllamaEngine builds the engine from config.
func NewOllamaEngine(config OllamaConfig, logger *logging.Logger) (*OllamaEngine, error) {
	if config.MaxContextLength == 0 {
		config.MaxContextLength = 4096
	}
	probe := Probe{Command: config.GrammarProbe.Command}
	if config.GrammarProbe.TimeoutSeconds > 0 {
		probe.Timeout = time.Duration(config.GrammarProbe.TimeoutSeconds) * time.Second
	}

	logger.Info("initializing ollama engine", "model", config.Model, "base_url", config.BaseURL)

	return &OllamaEngine{
		config: config,
		client: &http.Client{Timeout: 5 * time.Minute},
		probe:  probe,
		logger: logger,
	}, nil
}

// Name implements Engine.
func (e *OllamaEngine) Name() string { return OllamaName }

// Config implements Engine.
func (e *OllamaEngine) Config() any { return e.config }

// MaxContextLength implements Engine.
func (e *OllamaEngine) MaxContextLength() int { return e.config.MaxContextLength }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   types.Schema    `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
}

type ollamaChatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// Generate implements Engine.
func (e *OllamaEngine) Generate(ctx context.Context, output *types.GenerationOutput) {
	lc := NewLifecycle(output,
		WithCompileTimeout(time.Duration(e.config.Timeouts.CompileSeconds)*time.Second),
		WithDecodeTimeout(time.Duration(e.config.Timeouts.DecodeSeconds)*time.Second),
	)

	// The response body is consumed in the decode stage, after the compile
	// stage context is gone, so the request carries its own context.
	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	var resp *http.Response
	ok := lc.Compile(ctx, func(ctx context.Context) error {
		if e.probe.Enabled() {
			if err := e.probe.Check(ctx, output.Schema); err != nil {
				return &CompileError{Code: types.CompileUnsupportedSchema, Err: err}
			}
		}

		body, err := json.Marshal(ollamaChatRequest{
			Model:    e.config.Model,
			Messages: output.Messages,
			Stream:   true,
			Format:   output.Schema,
			Options: ollamaOptions{
				NumPredict:  e.config.MaxTokens,
				Temperature: e.config.Temperature,
				NumCtx:      e.config.MaxContextLength,
			},
		})
		if err != nil {
			return fmt.Errorf("encode chat request: %w", err)
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
			e.config.BaseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := e.client.Do(req)
		if err != nil {
			return &CompileError{Code: types.CompileAPIBadResponse, Err: err}
		}
		if r.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
			r.Body.Close()
			// Ollama rejects grammar-incompatible schemas with a 400 before
			// any token is produced.
			return &CompileError{
				Code: types.CompileUnsupportedSchema,
				Err:  fmt.Errorf("ollama returned %d: %s", r.StatusCode, bytes.TrimSpace(msg)),
			}
		}
		resp = r
		return nil
	})
	if !ok {
		return
	}

	var usage types.TokenUsage
	ok = lc.Decode(ctx, func(ctx context.Context, emit func(fragment string)) error {
		// The decode goroutine owns the body: when the stage is abandoned at
		// its deadline, cancelReq unblocks Scan and this defer closes it, so
		// no other goroutine ever races the reader.
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var chunk ollamaChatChunk
			if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
				return &DecodeError{Code: types.DecodingBadAPIResponse,
					Err: fmt.Errorf("decode stream chunk: %w", err)}
			}
			if chunk.Error != "" {
				return &DecodeError{Code: types.DecodingBadAPIResponse,
					Err: fmt.Errorf("ollama stream error: %s", chunk.Error)}
			}
			emit(chunk.Message.Content)
			if chunk.Done {
				usage.InputTokens = chunk.PromptEvalCount
				usage.OutputTokens = chunk.EvalCount
				return nil
			}
		}
		if err := scanner.Err(); err != nil {
			return &DecodeError{Code: types.DecodingBadAPIResponse, Err: err}
		}
		return nil
	})
	if !ok {
		return
	}

	output.TokenUsage = usage
	output.GeneratedTokens = tokensFromFragments(lc.Fragments())
	lc.Finish()
}

func init() {
	Register(OllamaName, func(configPath string, logger *logging.Logger) (Engine, error) {
		cfg, err := loadConfig[OllamaConfig](configPath)
		if err != nil {
			return nil, err
		}
		return NewOllamaEngine(*cfg, logger)
	})
}
