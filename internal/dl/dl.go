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

// Package dl wraps the dynamic loader: scoped open/close of a shared object,
// typed symbol lookup, the loader's view of an open handle, and the process
// level queries the search engine and audit module need.
package dl

import (
	"fmt"
	"sync"
	"unsafe"
)

// #cgo CFLAGS: -D_GNU_SOURCE
// #cgo LDFLAGS: -ldl
// #include <dlfcn.h>
// #include <link.h>
// #include <stdlib.h>
//
// static const char *autocompat_handle_path(void *handle) {
//     struct link_map *map = NULL;
//     if (dlinfo(handle, RTLD_DI_LINKMAP, &map) != 0) {
//         return NULL;
//     }
//     return map->l_name;
// }
//
// static int autocompat_self_anchor;
//
// static const char *autocompat_self_path(void) {
//     Dl_info info;
//     if (dladdr((const void *)&autocompat_self_anchor, &info) == 0) {
//         return NULL;
//     }
//     return info.dli_fname;
// }
//
// static Dl_serinfo *autocompat_serinfo(void) {
//     void *handle = dlopen(NULL, RTLD_LAZY | RTLD_LOCAL);
//     if (handle == NULL) {
//         return NULL;
//     }
//
//     Dl_serinfo size;
//     if (dlinfo(handle, RTLD_DI_SERINFOSIZE, &size) != 0 || size.dls_cnt == 0) {
//         dlclose(handle);
//         return NULL;
//     }
//
//     Dl_serinfo *info = (Dl_serinfo *)malloc(size.dls_size);
//     if (info == NULL) {
//         dlclose(handle);
//         return NULL;
//     }
//     info->dls_size = size.dls_size;
//     info->dls_cnt = size.dls_cnt;
//
//     if (dlinfo(handle, RTLD_DI_SERINFO, info) != 0) {
//         free(info);
//         dlclose(handle);
//         return NULL;
//     }
//     dlclose(handle);
//     return info;
// }
//
// static unsigned int autocompat_serinfo_count(Dl_serinfo *info) {
//     return info->dls_cnt;
// }
//
// static const char *autocompat_serinfo_path(Dl_serinfo *info, unsigned int i) {
//     return info->dls_serpath[i].dls_name;
// }
import "C"

// Loader open modes.
const (
	RTLD_LAZY   = C.RTLD_LAZY
	RTLD_NOW    = C.RTLD_NOW
	RTLD_GLOBAL = C.RTLD_GLOBAL
	RTLD_LOCAL  = C.RTLD_LOCAL
)

// Library is a scoped handle to a shared object. The zero value is closed; a
// Library must not be copied while open since Close ownership would be
// duplicated.
type Library struct {
	name      string
	flags     int
	handle    unsafe.Pointer
	lastError string
}

// New creates an unopened Library for the given file and loader flags.
func New(name string, flags int) *Library {
	return &Library{
		name:  name,
		flags: flags,
	}
}

// Open attempts to open the library. The last loader error is retained on
// failure.
func (l *Library) Open() error {
	name := C.CString(l.name)
	defer C.free(unsafe.Pointer(name))

	handle := C.dlopen(name, C.int(l.flags))
	if handle == nil {
		l.lastError = C.GoString(C.dlerror())
		return fmt.Errorf("failed to open %s: %s", l.name, l.lastError)
	}
	l.handle = handle
	return nil
}

// Close closes the library exactly once; closing a closed Library is a no-op.
func (l *Library) Close() error {
	if l.handle == nil {
		return nil
	}
	handle := l.handle
	l.handle = nil
	if C.dlclose(handle) != 0 {
		l.lastError = C.GoString(C.dlerror())
		return fmt.Errorf("failed to close %s: %s", l.name, l.lastError)
	}
	return nil
}

// IsOpen reports whether the handle is live.
func (l *Library) IsOpen() bool {
	return l.handle != nil
}

// Symbol returns the address of a symbol, or nil when it is absent. Absence
// is not an error at this layer; the loader's message is retained for callers
// that care.
func (l *Library) Symbol(name string) unsafe.Pointer {
	if l.handle == nil {
		return nil
	}

	sym := C.CString(name)
	defer C.free(unsafe.Pointer(sym))

	C.dlerror() // clear any stale error
	ptr := C.dlsym(l.handle, sym)
	if err := C.dlerror(); err != nil {
		l.lastError = C.GoString(err)
		return nil
	}
	return ptr
}

// Lookup reports whether a symbol resolves in the library.
func (l *Library) Lookup(name string) error {
	if l.Symbol(name) == nil {
		return fmt.Errorf("symbol %s not found: %s", name, l.lastError)
	}
	return nil
}

// Path returns the file path the loader associates with the open handle, or
// "" when the handle is closed or the query fails.
func (l *Library) Path() string {
	if l.handle == nil {
		return ""
	}
	path := C.autocompat_handle_path(l.handle)
	if path == nil {
		l.lastError = C.GoString(C.dlerror())
		return ""
	}
	return C.GoString(path)
}

// LastError returns the most recent loader error message.
func (l *Library) LastError() string {
	return l.lastError
}

var (
	selfPathOnce sync.Once
	selfPath     string
)

// SelfPath returns the filesystem path the loader used to load the module
// containing this code, resolved by asking the loader about one of our own
// symbols. The result is cached on first use.
func SelfPath() (string, error) {
	selfPathOnce.Do(func() {
		if p := C.autocompat_self_path(); p != nil {
			selfPath = C.GoString(p)
		}
	})
	if selfPath == "" {
		return "", fmt.Errorf("loader query for own module failed")
	}
	return selfPath, nil
}

// DefaultSearchPaths returns the dynamic linker's configured default library
// search directories for this process.
func DefaultSearchPaths() ([]string, error) {
	info := C.autocompat_serinfo()
	if info == nil {
		return nil, fmt.Errorf("failed to query the loader search path: %s", C.GoString(C.dlerror()))
	}
	defer C.free(unsafe.Pointer(info))

	count := uint(C.autocompat_serinfo_count(info))
	dirs := make([]string, 0, count)
	for i := uint(0); i < count; i++ {
		dirs = append(dirs, C.GoString(C.autocompat_serinfo_path(info, C.uint(i))))
	}
	return dirs, nil
}
