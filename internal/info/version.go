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

// Package info identifies this cuda-autocompat build in the startup banner
// the helper and the stub packagings log before doing any work.
package info

import "fmt"

// version and gitCommit can be stamped with go build's -X linker option; the
// defaults stand in for builds that do not set them.
var (
	version   = "2.0.0"
	gitCommit = ""
)

// Version returns the release version, including the commit hash when one was
// stamped in.
func Version() string {
	if gitCommit == "" {
		return version
	}
	return fmt.Sprintf("%s (commit %s)", version, gitCommit)
}

// Banner renders the startup line shared by every cuda-autocompat entry
// point. variant names the packaging that is starting up, e.g. the libcuda
// stub, and is omitted for the search helper itself.
func Banner(variant string) string {
	if variant == "" {
		return fmt.Sprintf("CUDA AutoCompat v%s", Version())
	}
	return fmt.Sprintf("CUDA AutoCompat v%s (%s)", Version(), variant)
}
