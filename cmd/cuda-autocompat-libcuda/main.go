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

// cuda-autocompat-libcuda is the stub libcuda.so.1 packaging. Built with
// -buildmode=c-shared, it runs the driver search in-process when loaded and
// eagerly opens the discovered driver stack with global visibility so the
// process resolves CUDA symbols through it. Unlike the audit module there is
// no pass-through fallback: a process that linked against this stub expected
// a working driver, so any failure terminates it.
package main

import "C"

import (
	"os"

	"github.com/chuckatkins/cuda-autocompat/internal/info"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/preload"
)

var loader *preload.Loader

func init() {
	log := logger.NewFromEnv()
	log.Infof("%s", info.Banner("libcuda stub interface"))

	result, err := preload.Search(log)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	loader, err = preload.Load(log, result.Dir)
	if err != nil {
		log.Errorf("Error loading driver libs")
		os.Exit(1)
	}
}

// cuda_autocompat_unload closes the driver libraries in reverse acquisition
// order. The Go runtime cannot run destructors on dlclose, so hosts that
// unload the stub call this first.
//
//export cuda_autocompat_unload
func cuda_autocompat_unload() {
	if loader == nil {
		return
	}
	if err := loader.Close(); err != nil {
		logger.NewFromEnv().Errorf("Error unloading driver libs")
	}
	loader = nil
}

func main() {}
