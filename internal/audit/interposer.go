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

// Package audit holds the dynamic-linker audit interposer's state and the
// plumbing it needs: the tracked-library path table, the audit-environment
// scrubber, and the search helper discovery and spawn logic. The cgo entry
// points in cmd/cuda-autocompat-audit delegate here.
package audit

import (
	"os"
	"strings"

	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

// Interposer owns the audit module's state: one precomputed absolute path per
// tracked library name. Population is all-or-nothing; until Initialize
// succeeds every lookup passes through unchanged.
type Interposer struct {
	log         logger.Interface
	sonames     []string
	paths       []string
	initialized bool
}

// NewInterposer creates an empty interposer tracking the four driver library
// names.
func NewInterposer(log logger.Interface) *Interposer {
	sonames := cuda.DriverLibNames()
	return &Interposer{
		log:     log,
		sonames: sonames,
		paths:   make([]string, len(sonames)),
	}
}

// Initialize performs the version-callback work: scrub our own entry from the
// audit environment, locate the helper relative to selfPath, run it with the
// scrubbed environment, and fill the path table from the directory it
// reports.
func (i *Interposer) Initialize(selfPath string) error {
	environ := ScrubbedEnviron(os.Environ(), paths.Filename(selfPath))

	helperPath, err := FindHelper(selfPath, os.Getenv("PATH"))
	if err != nil {
		return err
	}
	i.log.Debugf("search helper: %s", helperPath)

	dir, err := RunHelper(i.log, helperPath, environ)
	if err != nil {
		return err
	}

	table := make([]string, len(i.sonames))
	for idx, soname := range i.sonames {
		joined, err := paths.Join(dir, soname)
		if err != nil {
			return err
		}
		table[idx] = joined
	}

	i.paths = table
	i.initialized = true
	return nil
}

// ObjSearch answers a load-by-name query: a requested name exactly matching
// one of the tracked basenames resolves to its precomputed path; everything
// else is returned unchanged.
func (i *Interposer) ObjSearch(name string) string {
	if !i.initialized {
		return name
	}
	for idx, soname := range i.sonames {
		if name == soname {
			return i.paths[idx]
		}
	}
	return name
}

// ObjOpen reports whether a loaded object is one of ours and should get full
// bind auditing. An uninitialized table means no interest, never match-all.
func (i *Interposer) ObjOpen(objPath string) bool {
	if !i.initialized || objPath == "" {
		return false
	}
	for _, path := range i.paths {
		if strings.HasPrefix(objPath, path) {
			return true
		}
	}
	return false
}
