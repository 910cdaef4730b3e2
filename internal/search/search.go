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

// Package search implements the driver discovery pipeline: it enumerates
// candidate libcuda.so.1 files from user libraries, user directories, and
// CUDA_HOME, probes each for its driver version, validates the required
// sibling libraries, and keeps the newest valid candidate.
package search

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

// CUDAHomeEnvVar names a toolkit root whose compat driver is authoritative.
const CUDAHomeEnvVar = "CUDA_HOME"

// toolkitLibSuffix is the directory layout that identifies a toolkit runtime
// library; the toolkit root is the path remaining above it.
const toolkitLibSuffix = "targets/x86_64-linux/lib"

// runtimeLibNames are the toolkit runtime sonames that mark a CUDA toolkit
// installation.
var runtimeLibNames = []string{"libcudart.so.11", "libcudart.so.12", "libcudart.so.13"}

type updateResult int

const (
	updateAccepted updateResult = 0
	updateSkipped  updateResult = 1
	updateRejected updateResult = -1
)

// update evaluates one candidate driver path against the current best. The
// parent directory is examined at most once per state, by text and by inode;
// the file itself is probed at most once per state, by inode.
func (s *State) update(libcudaPath string) updateResult {
	s.log.Infof("libcuda: %s", libcudaPath)

	dir := filepath.Dir(libcudaPath)
	if _, seen := s.dirPaths[dir]; seen {
		s.log.Infof("libcuda: Skipping (directory already checked)")
		return updateRejected
	}
	s.dirPaths[dir] = struct{}{}

	var dirStat unix.Stat_t
	s.log.Tracef("stat(%s)", dir)
	if err := unix.Stat(dir, &dirStat); err != nil {
		s.log.Tracef("%v", err)
		s.log.Infof("libcuda: Skipping (directory stat error)")
		return updateRejected
	}
	if dirStat.Mode&unix.S_IFMT != unix.S_IFDIR {
		s.log.Infof("libcuda: Skipping (directory error)")
		return updateRejected
	}
	if _, seen := s.dirInodes[dirStat.Ino]; seen {
		s.log.Debugf("cached (inode = %d)", dirStat.Ino)
		s.log.Infof("libcuda: Skipping (directory inode already checked)")
		return updateRejected
	}
	s.dirInodes[dirStat.Ino] = struct{}{}

	ver, reason := s.libcudaVersion(libcudaPath)
	switch reason {
	case reasonIsDirectory:
		s.log.Infof("libcuda: Skipping (directory)")
		return updateRejected
	case reasonStatError:
		s.log.Infof("libcuda: Skipping (stat error)")
		return updateRejected
	case reasonSelfReference:
		s.log.Infof("libcuda: Skipping (autocompat detected)")
		return updateRejected
	case reasonLibraryError:
		s.log.Infof("libcuda: Skipping (library error)")
		return updateRejected
	}

	if !fileExists(filepath.Join(dir, cuda.NVVMLibName)) {
		s.log.Infof("libcuda: Skipping (%s not found)", cuda.NVVMLibName)
		return updateRejected
	}
	if !fileExists(filepath.Join(dir, cuda.PTXJitCompilerLibName)) {
		s.log.Infof("libcuda: Skipping (%s not found)", cuda.PTXJitCompilerLibName)
		return updateRejected
	}
	if !fileExists(filepath.Join(dir, cuda.DebuggerLibName)) {
		s.log.Infof("libcuda: Skipping (%s not found)", cuda.DebuggerLibName)
		return updateRejected
	}

	s.log.Infof("libcuda: cuDriverGetVersion = %d", ver)

	if s.found == nil {
		s.log.Infof("libcuda: Updating (first found)")
		s.found = &Result{Version: ver, Dir: dir}
		return updateAccepted
	}
	if ver > s.found.Version {
		s.log.Infof("libcuda: Updating (%d > %d)", ver, s.found.Version)
		s.found = &Result{Version: ver, Dir: dir}
		return updateAccepted
	}

	s.log.Infof("libcuda: Skipping (%d <= %d)", ver, s.found.Version)
	return updateSkipped
}

// SearchLibraries probes every user-provided library file named libcuda.so.1
// and keeps the newest valid candidate.
func (s *State) SearchLibraries(libs []string) {
	s.log.Infof("Searching for driver in libraries")
	for _, lib := range libs {
		s.log.Verbosef("%s", lib)
		if paths.Filename(lib) == cuda.DriverLibName {
			s.update(lib)
		}
	}
}

// SearchLibrariesToolkits probes user-provided library files for toolkit
// runtimes and evaluates each toolkit's compat driver.
func (s *State) SearchLibrariesToolkits(libs []string) {
	s.log.Infof("Searching for toolkits in libraries")
	for _, lib := range libs {
		s.log.Verbosef("%s", lib)
		if !isRuntimeLibName(paths.Filename(lib)) {
			continue
		}
		toolkit, ok := s.toolkitFromRuntime(lib)
		if !ok {
			continue
		}
		s.log.Debugf("-> %s", toolkit)
		s.update(filepath.Join(toolkit, "compat", cuda.DriverLibName))
	}
}

// SearchCUDAHome evaluates the compat driver beneath CUDA_HOME when set.
func (s *State) SearchCUDAHome() {
	s.log.Infof("Searching for toolkit in CUDA_HOME")
	toolkit := os.Getenv(CUDAHomeEnvVar)
	if toolkit == "" {
		return
	}
	s.log.Verbosef("%s=%s", CUDAHomeEnvVar, toolkit)

	libcudaPath := filepath.Join(toolkit, "compat", cuda.DriverLibName)
	if !fileExists(libcudaPath) {
		return
	}
	s.update(libcudaPath)
}

// SearchPathsToolkits looks for a toolkit runtime in each search directory and
// evaluates the owning toolkit's compat driver. Only the first runtime found
// per directory is considered.
func (s *State) SearchPathsToolkits(dirs []string) {
	s.log.Infof("Searching for toolkits in library search path")
	for _, dir := range dirs {
		s.log.Verbosef("%s", dir)
		for _, soname := range runtimeLibNames {
			runtimePath := filepath.Join(dir, soname)
			s.log.Debugf("%s", runtimePath)
			if !fileExists(runtimePath) {
				continue
			}
			toolkit, ok := s.toolkitFromRuntime(runtimePath)
			if !ok {
				break
			}
			s.log.Debugf("-> %s", toolkit)
			if libcudaPath := filepath.Join(toolkit, "compat", cuda.DriverLibName); fileExists(libcudaPath) {
				s.update(libcudaPath)
			}
			break
		}
	}
}

// SearchPaths evaluates a direct driver in each search directory.
func (s *State) SearchPaths(dirs []string) {
	s.log.Infof("Searching for driver in library search path")
	for _, dir := range dirs {
		s.log.Verbosef("%s", dir)
		libcudaPath := filepath.Join(dir, cuda.DriverLibName)
		s.log.Debugf("%s", libcudaPath)
		if !fileExists(libcudaPath) {
			continue
		}
		s.update(libcudaPath)
	}
}

// Run executes the canonical pipeline: direct drivers from the library list
// first, and only when that finds nothing the toolkit, CUDA_HOME, and
// directory stages, keeping the maximum version across them.
func (s *State) Run(libs, dirs []string) (Result, bool) {
	s.SearchLibraries(libs)
	if _, ok := s.Found(); !ok {
		s.SearchLibrariesToolkits(libs)
		s.SearchCUDAHome()
		s.SearchPathsToolkits(dirs)
		s.SearchPaths(dirs)
	}
	return s.Found()
}

// toolkitFromRuntime canonicalizes a runtime library path and walks back from
// its real directory to the toolkit root.
func (s *State) toolkitFromRuntime(runtimePath string) (string, bool) {
	realDir := filepath.Dir(canonicalize(runtimePath))
	s.log.Debugf("-> %s", realDir)
	return paths.TrimSuffixComponents(realDir, toolkitLibSuffix)
}

func canonicalize(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

func isRuntimeLibName(name string) bool {
	for _, soname := range runtimeLibNames {
		if name == soname {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
