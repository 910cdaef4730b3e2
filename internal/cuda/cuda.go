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

package cuda

import (
	"unsafe"
)

/*
typedef int (*cuDriverGetVersion_fn)(int *driverVersion);
typedef int (*cuGetError_fn)(int code, const char **out);

static int autocompat_cuDriverGetVersion(void *fn, int *driverVersion) {
    return ((cuDriverGetVersion_fn)fn)(driverVersion);
}

static int autocompat_cuGetError(void *fn, int code, char **out) {
    return ((cuGetError_fn)fn)(code, (const char **)out);
}
*/
import "C"

// cuDriverGetVersion calls the dlsym'd cuDriverGetVersion function pointer.
func cuDriverGetVersion(fn unsafe.Pointer, version *int32) Result {
	cVersion := (*C.int)(unsafe.Pointer(version))
	_ret := C.autocompat_cuDriverGetVersion(fn, cVersion)

	return Result(_ret)
}

// cuGetError calls a dlsym'd cuGetErrorName or cuGetErrorString function
// pointer; both share the (code, out-string) shape.
func cuGetError(fn unsafe.Pointer, code Result) (string, Result) {
	var out *C.char
	_ret := C.autocompat_cuGetError(fn, C.int(code), &out)
	if Result(_ret) != SUCCESS || out == nil {
		return "", Result(_ret)
	}

	return C.GoString(out), Result(_ret)
}
