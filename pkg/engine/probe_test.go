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
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemabench/pkg/types"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("probe tests require a POSIX shell")
	}
}

func TestProbeDisabled(t *testing.T) {
	var p Probe
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Check(context.Background(), types.Schema{"type": "object"}))
}

func TestProbeCleanExit(t *testing.T) {
	skipWithoutShell(t)
	p := Probe{Command: []string{"sh", "-c", "cat >/dev/null"}}
	require.True(t, p.Enabled())
	assert.NoError(t, p.Check(context.Background(), types.Schema{"type": "object"}))
}

func TestProbeNonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	p := Probe{Command: []string{"sh", "-c", "echo unsupported keyword >&2; exit 3"}}

	err := p.Check(context.Background(), types.Schema{"type": "object"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, err.Error(), "unsupported keyword")
}

func TestProbeSignalKill(t *testing.T) {
	skipWithoutShell(t)
	p := Probe{Command: []string{"sh", "-c", "kill -SEGV $$"}}

	err := p.Check(context.Background(), types.Schema{"type": "object"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminated by signal")
}

func TestProbeTimeout(t *testing.T) {
	skipWithoutShell(t)
	p := Probe{Command: []string{"sleep", "10"}, Timeout: 50 * time.Millisecond}

	start := time.Now()
	err := p.Check(context.Background(), types.Schema{"type": "object"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProbeStartFailure(t *testing.T) {
	p := Probe{Command: []string{"/nonexistent/grammar-compiler"}}

	err := p.Check(context.Background(), types.Schema{"type": "object"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}
