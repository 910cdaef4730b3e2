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

// Package preload eagerly loads a discovered driver stack with global symbol
// visibility so subsequent consumers resolve through it. It backs the stub
// libcuda packaging, which cannot fall back to the system default the way the
// audit module can.
package preload

import (
	"errors"
	"fmt"

	nvdl "github.com/NVIDIA/go-nvml/pkg/dl"

	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/dl"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
	"github.com/chuckatkins/cuda-autocompat/internal/search"
)

const libraryLoadFlags = nvdl.RTLD_LAZY | nvdl.RTLD_GLOBAL

// Search runs the driver search in-process, seeded from the dynamic linker's
// default directories.
func Search(log logger.Interface) (search.Result, error) {
	dirs, err := dl.DefaultSearchPaths()
	if err != nil {
		return search.Result{}, err
	}

	state := search.NewState(log)
	result, ok := state.Run(nil, dirs)
	if !ok {
		return search.Result{}, fmt.Errorf("no suitable %s found", cuda.DriverLibName)
	}
	return result, nil
}

// Loader holds the opened driver libraries in acquisition order.
type Loader struct {
	log  logger.Interface
	libs []*nvdl.DynamicLibrary
}

// Load opens the four driver libraries from dir in dependency order, lazily
// bound with global visibility. On any failure whatever opened is closed in
// reverse and an error is returned.
func Load(log logger.Interface, dir string) (*Loader, error) {
	log.Infof("Loading driver libs")

	l := &Loader{log: log}
	for _, soname := range cuda.DriverLibNames() {
		path, err := paths.Join(dir, soname)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		log.Verbosef("%s", path)

		log.Tracef("dlopen(%s)", path)
		lib := nvdl.New(path, libraryLoadFlags)
		if err := lib.Open(); err != nil {
			log.Errorf("Error loading %s: %v", soname, err)
			_ = l.Close()
			return nil, fmt.Errorf("error loading %s: %w", soname, err)
		}
		l.libs = append(l.libs, lib)
	}

	return l, nil
}

// Close unloads the libraries in reverse acquisition order.
func (l *Loader) Close() error {
	l.log.Infof("Unloading driver libs")

	var errs []error
	for i := len(l.libs) - 1; i >= 0; i-- {
		l.log.Tracef("dlclose(%s)", l.libs[i].Name)
		if err := l.libs[i].Close(); err != nil {
			l.log.Errorf("Error closing %s: %v", l.libs[i].Name, err)
			errs = append(errs, err)
		}
	}
	l.libs = nil

	return errors.Join(errs...)
}
