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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/schemabench/pkg/logging"
	"github.com/AleutianAI/schemabench/pkg/types"
	"github.com/AleutianAI/schemabench/pkg/validation"
)

// OpenAICompatibleName is the registry name of the OpenAI-compatible engine.
const OpenAICompatibleName = "openai_compatible"

// OpenAICompatibleConfig configures a provider speaking the OpenAI chat
// completions protocol with json_schema structured outputs.
type OpenAICompatibleConfig struct {
	Model             string        `yaml:"model" json:"model" validate:"required"`
	Provider          string        `yaml:"provider" json:"provider" validate:"required"`
	BaseURL           string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	APIKeyVariable    string        `yaml:"api_key_variable_name" json:"api_key_variable_name" validate:"required"`
	MaxTokens         int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature       *float32      `yaml:"temperature" json:"temperature,omitempty"`
	MaxContextLength  int           `yaml:"max_context_length" json:"max_context_length"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Timeouts          StageTimeouts `yaml:"timeouts" json:"-"`
}

// OpenAICompatibleEngine drives any OpenAI-compatible provider. Compilation
// maps to the provider accepting the schema-bearing request (a rejected
// schema fails there); decoding consumes the token stream.
type OpenAICompatibleEngine struct {
	Base
	config  OpenAICompatibleConfig
	client  *openai.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewOpenAICompatibleEngine builds the engine from config. The API key is
// read from the environment variable the config names.
func NewOpenAICompatibleEngine(config OpenAICompatibleConfig, logger *logging.Logger) (*OpenAICompatibleEngine, error) {
	apiKey := os.Getenv(config.APIKeyVariable)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %s not set", config.APIKeyVariable)
	}
	if config.MaxContextLength == 0 {
		config.MaxContextLength = 4096
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = config.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	logger.Info("initializing openai-compatible engine",
		"provider", config.Provider, "model", config.Model, "base_url", config.BaseURL)

	return &OpenAICompatibleEngine{
		config:  config,
		client:  openai.NewClientWithConfig(clientCfg),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Name implements Engine.
func (e *OpenAICompatibleEngine) Name() string { return OpenAICompatibleName }

// Config implements Engine.
func (e *OpenAICompatibleEngine) Config() any { return e.config }

// AdaptSchema closes all objects and requires all properties, which strict
// structured-output endpoints demand.
func (e *OpenAICompatibleEngine) AdaptSchema(schema types.Schema) types.Schema {
	adapted := StrictAdapt(schema)
	if !validation.IsSchemaValid(adapted) {
		e.logger.Warn("adapted schema no longer compiles as a JSON schema",
			"provider", e.config.Provider, "model", e.config.Model)
	}
	return adapted
}

// MaxContextLength implements Engine.
func (e *OpenAICompatibleEngine) MaxContextLength() int { return e.config.MaxContextLength }

// Generate implements Engine.
func (e *OpenAICompatibleEngine) Generate(ctx context.Context, output *types.GenerationOutput) {
	lc := NewLifecycle(output,
		WithCompileTimeout(time.Duration(e.config.Timeouts.CompileSeconds)*time.Second),
		WithDecodeTimeout(time.Duration(e.config.Timeouts.DecodeSeconds)*time.Second),
	)

	// The stream must survive across both lifecycle stages; stage contexts
	// are cancelled when their stage ends, so the request gets its own.
	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	var stream *openai.ChatCompletionStream
	ok := lc.Compile(ctx, func(ctx context.Context) error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		raw, err := json.Marshal(output.Schema)
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		req := openai.ChatCompletionRequest{
			Model:         e.config.Model,
			Messages:      toOpenAIMessages(output.Messages),
			Stream:        true,
			StreamOptions: &openai.StreamOptions{IncludeUsage: true},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   "json_schema",
					Schema: json.RawMessage(raw),
				},
			},
		}
		if e.config.MaxTokens > 0 {
			req.MaxTokens = e.config.MaxTokens
		}
		if e.config.Temperature != nil {
			req.Temperature = *e.config.Temperature
		}

		s, err := e.client.CreateChatCompletionStream(reqCtx, req)
		if err != nil {
			// The provider rejected the schema-bearing request.
			return &CompileError{Code: types.CompileUnsupportedSchema, Err: err}
		}
		stream = s
		return nil
	})
	if !ok {
		return
	}

	var usage *openai.Usage
	ok = lc.Decode(ctx, func(ctx context.Context, emit func(fragment string)) error {
		// The decode goroutine owns the stream: when the stage is abandoned
		// at its deadline, cancelReq unblocks Recv and this defer closes it,
		// so no other goroutine ever races the reader.
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return &DecodeError{Code: types.DecodingBadAPIResponse, Err: err}
			}
			if resp.Usage != nil {
				usage = resp.Usage
			}

			fragment := ""
			if len(resp.Choices) > 0 {
				choice := resp.Choices[0]
				if choice.FinishReason == "" || choice.FinishReason == openai.FinishReasonStop {
					fragment = choice.Delta.Content
				}
			}
			emit(fragment)
		}
	})
	if !ok {
		return
	}

	if usage != nil {
		output.TokenUsage.InputTokens = usage.PromptTokens
		output.TokenUsage.OutputTokens = usage.CompletionTokens
	}
	output.GeneratedTokens = tokensFromFragments(lc.Fragments())
	lc.Finish()
}

func toOpenAIMessages(msgs []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// tokensFromFragments wraps streamed fragments as Token records. Remote
// providers stream text chunks, not tokenizer ids, so only the text is kept.
func tokensFromFragments(fragments []string) []types.Token {
	tokens := make([]types.Token, len(fragments))
	for i, f := range fragments {
		tokens[i] = types.Token{Text: f}
	}
	return tokens
}

func init() {
	Register(OpenAICompatibleName, func(configPath string, logger *logging.Logger) (Engine, error) {
		cfg, err := loadConfig[OpenAICompatibleConfig](configPath)
		if err != nil {
			return nil, err
		}
		return NewOpenAICompatibleEngine(*cfg, logger)
	})
}
