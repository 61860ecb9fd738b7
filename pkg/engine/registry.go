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
	"sort"
	"sync"

	"github.com/AleutianAI/schemabench/pkg/logging"
)

// Factory builds an engine from its YAML config file.
type Factory func(configPath string, logger *logging.Logger) (Engine, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
)

// Register adds an engine constructor under name. Backends register
// themselves from init; a duplicate name panics early instead of silently
// shadowing.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("engine %q registered twice", name))
	}
	factories[name] = factory
}

// New builds the named engine from configPath.
func New(name, configPath string, logger *logging.Logger) (Engine, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, Names())
	}
	return factory(configPath, logger)
}

// Names lists the registered engine names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
