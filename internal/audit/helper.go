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

package audit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

// HelperName is the search helper executable's basename.
const HelperName = "cuda-autocompat-search"

// FindHelper locates the search helper: first as
// <prefix>/libexec/cuda-autocompat-search, where prefix is the parent of the
// lib directory containing the running module, then in each directory on
// pathEnv.
func FindHelper(selfPath, pathEnv string) (string, error) {
	if prefixLen := paths.ComponentPrefix(selfPath, "lib", false); prefixLen >= 0 {
		candidate, err := paths.Join(selfPath[:prefixLen], "libexec/"+HelperName)
		if err == nil && isExecutable(candidate) {
			return candidate, nil
		}
	}

	for _, dir := range paths.SplitList(pathEnv) {
		candidate, err := paths.Join(dir, HelperName)
		if err != nil {
			continue
		}
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to locate %s", HelperName)
}

func isExecutable(path string) bool {
	return unix.Access(path, unix.R_OK|unix.X_OK) == nil
}

// RunHelper spawns the helper with the given environment and a captive stdout
// pipe, and returns the driver directory it reports. The read is bounded at
// PathMax-1 bytes and stops at the first NUL or newline.
func RunHelper(log logger.Interface, helperPath string, environ []string) (string, error) {
	cmd := exec.Command(helperPath)
	cmd.Env = environ
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to execute search helper: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to execute search helper: %w", err)
	}

	out, readErr := io.ReadAll(io.LimitReader(stdout, paths.PathMax-1))
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("search helper failed: %w", err)
	}
	if readErr != nil {
		return "", fmt.Errorf("failed to read search helper output: %w", readErr)
	}

	if i := bytes.IndexAny(out, "\x00\n"); i >= 0 {
		out = out[:i]
	}
	if len(out) == 0 {
		return "", fmt.Errorf("search helper produced no output")
	}

	dir := string(out)
	log.Verbosef("driver directory: %s", dir)
	return dir, nil
}
