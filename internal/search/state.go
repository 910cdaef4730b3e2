/*
 * Copyright 2025 Chuck Atkins and CUDA Auto-Compat contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package search

import (
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
)

// Result is the winning candidate: the directory holding the driver stack and
// the version it reported.
type Result struct {
	Version int
	Dir     string
}

// MajorMinorPatch decomposes the raw driver version for display.
func (r Result) MajorMinorPatch() (int, int, int) {
	return r.Version / 1000, (r.Version % 100) / 10, r.Version % 10
}

// State accumulates search progress across the pipeline stages. It is
// append-only: once a candidate is recorded its version never decreases, every
// directory is examined at most once whether reached by path or alias, and
// every driver file is opened at most once.
type State struct {
	log    logger.Interface
	prober VersionProber

	found *Result

	// dirPaths skips textual duplicates; dirInodes skips symlink and
	// bind-mount aliases of directories already examined.
	dirPaths  map[string]struct{}
	dirInodes map[uint64]struct{}

	// verCache maps a driver file's inode to its probed version so the same
	// file reachable through multiple paths is only dlopened once. Failed
	// probes are recorded as noVersion.
	verCache map[uint64]int
}

// Option configures a State.
type Option func(*State)

// WithProber replaces the CUDA ABI prober; tests substitute stub drivers.
func WithProber(p VersionProber) Option {
	return func(s *State) {
		s.prober = p
	}
}

// NewState creates an empty search state.
func NewState(log logger.Interface, opts ...Option) *State {
	s := &State{
		log:       log,
		dirPaths:  make(map[string]struct{}),
		dirInodes: make(map[uint64]struct{}),
		verCache:  make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		s.prober = &driverProber{log: log}
	}
	return s
}

// Found returns the current best candidate.
func (s *State) Found() (Result, bool) {
	if s.found == nil {
		return Result{}, false
	}
	return *s.found, true
}
