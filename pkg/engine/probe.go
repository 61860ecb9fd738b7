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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// Probe runs a grammar compilation step in an isolated child process with a
// hard kill timer. Native grammar compilers are known to segfault on
// pathological schemas; running them in-process would take the whole
// benchmark worker down. The probe feeds the schema JSON to the configured
// command on stdin and classifies abnormal termination (signal kill, non-zero
// exit, deadline) as a compilation failure the lifecycle records as
// UNSUPPORTED_SCHEMA.
//
// A zero-value Probe is disabled and always passes.
type Probe struct {
	// Command is the argv of the external grammar compiler check.
	Command []string
	// Timeout is the wall-clock budget for the child; DefaultProbeTimeout
	// when unset.
	Timeout time.Duration
}

// Enabled reports whether the probe is configured.
func (p *Probe) Enabled() bool { return p != nil && len(p.Command) > 0 }

// Check compiles the schema in the child process. A nil return means the
// schema is safe to compile in-process.
func (p *Probe) Check(ctx context.Context, schema types.Schema) error {
	if !p.Enabled() {
		return nil
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema for probe: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(raw)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Last-resort SIGKILL if the child ignores the context cancellation.
	cmd.WaitDelay = 2 * time.Second

	err = cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("grammar safety probe timed out after %s", timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return fmt.Errorf("grammar compiler terminated by signal %s", status.Signal())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("grammar compiler exited with code %d: %s", exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("grammar compiler exited with code %d", exitErr.ExitCode())
	}
	return fmt.Errorf("grammar safety probe failed to start: %w", err)
}
