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
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
)

// VersionProber extracts the driver version from a candidate library file by
// whatever means the build supports. The production prober speaks the CUDA C
// ABI through the dynamic loader; tests substitute fixed-version stubs.
type VersionProber interface {
	DriverVersion(path string) (int, error)
}

// noVersion is recorded in the version cache for files whose probe failed so
// aliases of a broken library are rejected without reopening it.
const noVersion = -1

// driverProber probes through the CUDA ABI.
type driverProber struct {
	log logger.Interface
}

var _ VersionProber = (*driverProber)(nil)

func (p *driverProber) DriverVersion(path string) (int, error) {
	p.log.Tracef("dlopen(%s)", path)
	drv, err := cuda.Open(path)
	if err != nil {
		return noVersion, err
	}
	defer func() {
		_ = drv.Close()
	}()

	ver, r := drv.DriverGetVersion()
	if r != cuda.SUCCESS {
		name, nameOK := drv.ErrorName(r)
		str, strOK := drv.ErrorString(r)
		if nameOK && strOK {
			p.log.Tracef("cuDriverGetVersion: %s (%s)", name, str)
		} else {
			p.log.Tracef("cuDriverGetVersion: %d", int(r))
		}
		return noVersion, fmt.Errorf("cuDriverGetVersion returned %d", int(r))
	}

	return ver, nil
}

// libcudaVersion stats the candidate, consults the inode cache, and probes on
// a miss. The returned reason explains rejection; reasonOK means ver is valid.
func (s *State) libcudaVersion(path string) (int, probeReason) {
	var st unix.Stat_t
	s.log.Tracef("stat(%s)", path)
	if err := unix.Stat(path, &st); err != nil {
		s.log.Tracef("%v", err)
		return noVersion, reasonStatError
	}
	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		return noVersion, reasonIsDirectory
	}

	if ver, ok := s.verCache[st.Ino]; ok {
		s.log.Debugf("cached (inode = %d)", st.Ino)
		if ver == noVersion {
			return noVersion, reasonLibraryError
		}
		return ver, reasonOK
	}
	s.verCache[st.Ino] = noVersion

	ver, err := s.prober.DriverVersion(path)
	if err != nil {
		if errors.Is(err, cuda.ErrSelfReference) {
			return noVersion, reasonSelfReference
		}
		return noVersion, reasonLibraryError
	}

	s.verCache[st.Ino] = ver
	return ver, reasonOK
}

type probeReason int

const (
	reasonOK probeReason = iota
	reasonStatError
	reasonIsDirectory
	reasonSelfReference
	reasonLibraryError
)
