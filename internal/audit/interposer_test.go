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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

func TestInterposerPassThroughBeforeInitialize(t *testing.T) {
	i := NewInterposer(newTestLogger())

	require.Equal(t, cuda.DriverLibName, i.ObjSearch(cuda.DriverLibName))
	require.Equal(t, "libc.so.6", i.ObjSearch("libc.so.6"))
	require.False(t, i.ObjOpen("/usr/lib/libcuda.so.1"))
	require.False(t, i.ObjOpen(""))
}

func TestInterposerInitialize(t *testing.T) {
	selfPath, _ := makeInstallTree(t, "#!/bin/sh\nprintf '/winner'\n")

	i := NewInterposer(newTestLogger())
	require.NoError(t, i.Initialize(selfPath))

	for _, soname := range cuda.DriverLibNames() {
		require.Equal(t, "/winner/"+soname, i.ObjSearch(soname))
	}
	require.Equal(t, "libc.so.6", i.ObjSearch("libc.so.6"))

	require.True(t, i.ObjOpen("/winner/"+cuda.DriverLibName))
	require.True(t, i.ObjOpen("/winner/"+cuda.DebuggerLibName))
	require.False(t, i.ObjOpen("/usr/lib/"+cuda.DriverLibName))
	require.False(t, i.ObjOpen(""))
}

func TestInterposerHelperFailureLeavesPassThrough(t *testing.T) {
	selfPath, _ := makeInstallTree(t, "#!/bin/sh\nexit 1\n")

	i := NewInterposer(newTestLogger())
	require.Error(t, i.Initialize(selfPath))

	require.Equal(t, cuda.DriverLibName, i.ObjSearch(cuda.DriverLibName))
	require.False(t, i.ObjOpen("/winner/"+cuda.DriverLibName))
}

func TestInterposerHelperMissingLeavesPassThrough(t *testing.T) {
	selfPath := filepath.Join(t.TempDir(), "libcuda-autocompat-audit.so")
	require.NoError(t, os.WriteFile(selfPath, []byte("elf"), 0o644))

	i := NewInterposer(newTestLogger())
	t.Setenv("PATH", t.TempDir())
	require.Error(t, i.Initialize(selfPath))

	require.Equal(t, cuda.DriverLibName, i.ObjSearch(cuda.DriverLibName))
}

func TestInterposerScrubsOwnAuditEntry(t *testing.T) {
	// The helper reports the LD_AUDIT value it observed so the test can assert
	// the module's own entry was removed before the spawn.
	observed := filepath.Join(t.TempDir(), "observed")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s' \"$LD_AUDIT\" > %s\nprintf '/winner'\n", observed)
	selfPath, _ := makeInstallTree(t, script)

	t.Setenv(AuditEnvVar, "/a/libother.so:"+selfPath)

	i := NewInterposer(newTestLogger())
	require.NoError(t, i.Initialize(selfPath))

	contents, err := os.ReadFile(observed)
	require.NoError(t, err)
	require.Equal(t, "/a/libother.so", string(contents))
	require.NotContains(t, string(contents), paths.Filename(selfPath))

	// The live environment is untouched.
	require.Equal(t, "/a/libother.so:"+selfPath, os.Getenv(AuditEnvVar))
}
