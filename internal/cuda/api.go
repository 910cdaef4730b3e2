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

// Package cuda probes candidate driver libraries through the CUDA C ABI. A
// candidate is opened from an explicit file path with local visibility so the
// probe never disturbs the process's own symbol namespace.
package cuda

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/chuckatkins/cuda-autocompat/internal/dl"
)

// The four libraries that make up a usable driver directory. DriverLibName
// must be probeable; the other three must be present as regular files next to
// it.
const (
	DriverLibName         = "libcuda.so.1"
	NVVMLibName           = "libnvidia-nvvm.so.4"
	PTXJitCompilerLibName = "libnvidia-ptxjitcompiler.so.1"
	DebuggerLibName       = "libcudadebugger.so.1"
)

const (
	// sentinelSymbol marks one of our own stub libraries. Probing a library
	// that exposes it would select the very module that installed us.
	sentinelSymbol = "cuda_autocompat_version"

	libraryLoadFlags = dl.RTLD_LAZY | dl.RTLD_LOCAL
)

// DriverLibNames returns the tracked library basenames in dependency order.
func DriverLibNames() []string {
	return []string{DriverLibName, NVVMLibName, PTXJitCompilerLibName, DebuggerLibName}
}

// ErrSelfReference is returned when a candidate turns out to be one of our
// own stub libraries.
var ErrSelfReference = errors.New("library is a cuda-autocompat stub")

// Driver is an open candidate driver library with its probe entry points
// resolved.
type Driver struct {
	lib              *dl.Library
	driverGetVersion unsafe.Pointer
	getErrorName     unsafe.Pointer
	getErrorString   unsafe.Pointer
}

// Open opens the library at path and resolves the probe ABI. The candidate is
// rejected when it exposes the autocompat sentinel symbol or when any of
// cuGetErrorName, cuGetErrorString, or cuDriverGetVersion is missing.
func Open(path string) (*Driver, error) {
	lib := dl.New(path, libraryLoadFlags)
	if err := lib.Open(); err != nil {
		return nil, err
	}

	if lib.Symbol(sentinelSymbol) != nil {
		_ = lib.Close()
		return nil, ErrSelfReference
	}

	d := &Driver{lib: lib}
	for _, sym := range []struct {
		name string
		ptr  *unsafe.Pointer
	}{
		{"cuGetErrorName", &d.getErrorName},
		{"cuGetErrorString", &d.getErrorString},
		{"cuDriverGetVersion", &d.driverGetVersion},
	} {
		if *sym.ptr = lib.Symbol(sym.name); *sym.ptr == nil {
			err := fmt.Errorf("failed to resolve %s: %s", sym.name, lib.LastError())
			_ = lib.Close()
			return nil, err
		}
	}

	return d, nil
}

// Close releases the underlying handle.
func (d *Driver) Close() error {
	return d.lib.Close()
}

// Path returns the loader's effective path for the open handle.
func (d *Driver) Path() string {
	return d.lib.Path()
}

// DriverGetVersion returns the driver version as an int.
func (d *Driver) DriverGetVersion() (int, Result) {
	var version int32
	r := cuDriverGetVersion(d.driverGetVersion, &version)

	return int(version), r
}

// ErrorName returns the static name string for a result code.
func (d *Driver) ErrorName(code Result) (string, bool) {
	name, r := cuGetError(d.getErrorName, code)
	return name, r == SUCCESS
}

// ErrorString returns the static description string for a result code.
func (d *Driver) ErrorString(code Result) (string, bool) {
	str, r := cuGetError(d.getErrorString, code)
	return str, r == SUCCESS
}
