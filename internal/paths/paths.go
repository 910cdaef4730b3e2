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

// Package paths holds the path and list manipulation helpers shared by the
// search engine and the audit interposer.
package paths

import (
	"fmt"
	"strings"
)

// PathMax bounds every path handed to the dynamic linker.
const PathMax = 4096

// SplitList splits a colon-separated path list into its entries. Empty
// entries are preserved; the per-entry filters decide what to do with them.
func SplitList(list string) []string {
	if list == "" {
		return nil
	}
	return strings.Split(list, ":")
}

// Filename returns the path component past the last separator.
func Filename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ComponentPrefix walks path component by component and returns the byte
// length of the longest ancestor whose child component name starts with
// prefix. When isDir is false the final component names a file and is not
// considered. Returns -1 when no component matches.
//
//	ComponentPrefix("/foo/bar/lib64/libbaz.so.1", "lib", false) == 8 // "/foo/bar"
//	ComponentPrefix("/foo/bar/lib/x86_64-linux", "lib", true) == 8
func ComponentPrefix(path, prefix string, isDir bool) int {
	if path == "" || prefix == "" {
		return -1
	}

	match := -1
	offset := 0
	components := strings.Split(path, "/")
	for i, component := range components {
		if !isDir && i == len(components)-1 {
			break
		}
		if strings.HasPrefix(component, prefix) {
			match = offset - 1
		}
		offset += len(component) + 1
	}

	if match < 0 {
		return -1
	}
	return match
}

// Join concatenates parent and child with exactly one separator, treating an
// empty parent as "." and failing when the result would not fit in a
// PathMax-sized buffer.
func Join(parent, child string) (string, error) {
	if parent == "" {
		parent = "."
	}

	parentHasSep := strings.HasSuffix(parent, "/")
	childHasSep := strings.HasPrefix(child, "/")

	var joined string
	switch {
	case parentHasSep && childHasSep:
		joined = parent + child[1:]
	case parentHasSep || childHasSep:
		joined = parent + child
	default:
		joined = parent + "/" + child
	}

	if len(joined) >= PathMax {
		return "", fmt.Errorf("joined path exceeds %d bytes", PathMax)
	}
	return joined, nil
}

// TrimSuffixComponents removes a trailing component-wise suffix from path and
// returns the remaining ancestor. The match compares whole components, so
// "targets/x86_64-linux/lib" matches "/opt/cuda/targets/x86_64-linux/lib" but
// not "/opt/cuda/targets/x86_64-linux/lib64".
func TrimSuffixComponents(path, suffix string) (string, bool) {
	full := splitComponents(path)
	tail := splitComponents(suffix)

	if len(tail) == 0 {
		return path, true
	}
	if len(full) < len(tail) {
		return "", false
	}
	for i := 1; i <= len(tail); i++ {
		if full[len(full)-i] != tail[len(tail)-i] {
			return "", false
		}
	}

	remaining := full[:len(full)-len(tail)]
	if len(remaining) == 0 {
		if strings.HasPrefix(path, "/") {
			return "/", true
		}
		return "", true
	}
	prefix := strings.Join(remaining, "/")
	if strings.HasPrefix(path, "/") {
		prefix = "/" + prefix
	}
	return prefix, true
}

func splitComponents(path string) []string {
	var components []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}
