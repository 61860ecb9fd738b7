// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/schemabench/pkg/dataset"
)

var validate = validator.New()

// GCSConfig configures optional result archival.
type GCSConfig struct {
	Bucket    string `yaml:"bucket"`
	SAKeyPath string `yaml:"sa_key_path"`
	Prefix    string `yaml:"prefix"`
}

// ProviderConfig names one engine to benchmark.
type ProviderConfig struct {
	Engine   string   `yaml:"engine" validate:"required"`
	Config   string   `yaml:"config" validate:"required"`
	Provider string   `yaml:"provider"`
	Model    string   `yaml:"model"`
	Tasks    []string `yaml:"tasks"`
}

// RunConfig is the benchmark run file loaded by the run command.
type RunConfig struct {
	OutputDir   string           `yaml:"output_dir"`
	SummaryFile string           `yaml:"summary_file"`
	CacheDir    string           `yaml:"cache_dir"`
	LogDir      string           `yaml:"log_dir"`
	Concurrency int              `yaml:"concurrency"`
	Limit       int              `yaml:"limit"`
	Resamples   int              `yaml:"resamples"`
	Seed        *uint64          `yaml:"seed"`
	Prompt      string           `yaml:"prompt" validate:"omitempty,oneof=fewshot zeroshot"`
	Tasks       []string         `yaml:"tasks"`
	GCS         *GCSConfig       `yaml:"gcs"`
	Providers   []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// LoadRunConfig reads and validates path, filling defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse run config %s: %w", path, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid run config %s: %w", path, err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	if cfg.SummaryFile == "" {
		cfg.SummaryFile = cfg.OutputDir + "/eval_results.csv"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = []string{"default"}
	}

	for _, task := range cfg.Tasks {
		if !dataset.IsKnownTask(task) {
			return nil, fmt.Errorf("unknown task %q in run config (known: %v)", task, dataset.Names())
		}
	}
	for _, provider := range cfg.Providers {
		for _, task := range provider.Tasks {
			if !dataset.IsKnownTask(task) {
				return nil, fmt.Errorf("unknown task %q for provider %s", task, provider.Engine)
			}
		}
	}
	return &cfg, nil
}
