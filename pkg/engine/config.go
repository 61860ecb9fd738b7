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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ProbeConfig configures the crash-isolation probe of an engine backed by a
// native grammar compiler. An empty command disables the probe.
type ProbeConfig struct {
	Command        []string `yaml:"command"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// StageTimeouts carries the per-stage deadlines of a backend, in seconds.
// Zero values fall back to the package defaults.
type StageTimeouts struct {
	CompileSeconds int `yaml:"compile_timeout_seconds"`
	DecodeSeconds  int `yaml:"decode_timeout_seconds"`
}

// loadConfig reads and validates a YAML engine config.
func loadConfig[T any](path string) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine config %s: %w", path, err)
	}
	var cfg T
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid engine config %s: %w", path, err)
	}
	return &cfg, nil
}
