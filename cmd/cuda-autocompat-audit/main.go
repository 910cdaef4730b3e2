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

// cuda-autocompat-audit is the dynamic-linker audit module. Built with
// -buildmode=c-shared and installed through LD_AUDIT, it resolves the best
// available driver directory once at process start and rewrites the loader's
// name lookups for the tracked driver libraries.
package main

/*
#cgo CFLAGS: -D_GNU_SOURCE
#include <link.h>
#include <stdint.h>
#include "audit_shim.h"
*/
import "C"

import (
	"github.com/chuckatkins/cuda-autocompat/internal/audit"
	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/dl"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
)

var (
	interposer *audit.Interposer

	// cPaths holds the precomputed answers as C strings whose lifetime is the
	// module's: la_objsearch hands these pointers back to the loader.
	cPaths map[string]*C.char
)

//export la_version
func la_version(version C.uint) C.uint {
	log := logger.NewFromEnv()
	interposer = audit.NewInterposer(log)

	selfPath, err := dl.SelfPath()
	if err != nil {
		log.Errorf("Cannot determine path to own module: %v", err)
	} else if err := interposer.Initialize(selfPath); err != nil {
		log.Errorf("Failed to locate a usable %s: %v", cuda.DriverLibName, err)
	}

	cPaths = make(map[string]*C.char)
	for _, soname := range cuda.DriverLibNames() {
		if path := interposer.ObjSearch(soname); path != soname {
			cPaths[soname] = C.CString(path)
		}
	}

	return C.uint(C.LAV_CURRENT)
}

//export goLaObjsearch
func goLaObjsearch(name *C.char, cookie *C.uintptr_t, flag C.uint) *C.char {
	if path, ok := cPaths[C.GoString(name)]; ok {
		return path
	}
	return name
}

//export la_objopen
func la_objopen(linkMap *C.struct_link_map, lmid C.Lmid_t, cookie *C.uintptr_t) C.uint {
	if interposer == nil || linkMap == nil || linkMap.l_name == nil {
		return 0
	}
	if interposer.ObjOpen(C.GoString(linkMap.l_name)) {
		return C.uint(C.LA_FLG_BINDTO | C.LA_FLG_BINDFROM)
	}
	return 0
}

func main() {}
