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

package paths

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	testCases := []struct {
		description string
		list        string
		expected    []string
	}{
		{
			description: "empty list",
			list:        "",
			expected:    nil,
		},
		{
			description: "single entry",
			list:        "/usr/lib",
			expected:    []string{"/usr/lib"},
		},
		{
			description: "multiple entries",
			list:        "/usr/lib:/usr/lib64",
			expected:    []string{"/usr/lib", "/usr/lib64"},
		},
		{
			description: "empty entries preserved",
			list:        "/usr/lib::/opt/lib:",
			expected:    []string{"/usr/lib", "", "/opt/lib", ""},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			require.Equal(t, tc.expected, SplitList(tc.list))
		})
	}
}

func TestFilename(t *testing.T) {
	testCases := []struct {
		description string
		path        string
		expected    string
	}{
		{"absolute file", "/a/b/libcuda.so.1", "libcuda.so.1"},
		{"bare name", "libcuda.so.1", "libcuda.so.1"},
		{"trailing separator", "/a/b/", ""},
		{"empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			require.Equal(t, tc.expected, Filename(tc.path))
		})
	}
}

func TestComponentPrefix(t *testing.T) {
	testCases := []struct {
		description string
		path        string
		prefix      string
		isDir       bool
		expected    int
	}{
		{
			description: "file below a lib directory",
			path:        "/foo/bar/lib64/libbaz.so.1",
			prefix:      "lib",
			isDir:       false,
			expected:    8,
		},
		{
			description: "directory path considers the final component",
			path:        "/foo/bar/lib/x86_64-linux",
			prefix:      "lib",
			isDir:       true,
			expected:    8,
		},
		{
			description: "last matching ancestor wins",
			path:        "/opt/lib/nvidia/lib64/libcuda.so.1",
			prefix:      "lib",
			isDir:       false,
			expected:    15,
		},
		{
			description: "file component itself is not a match",
			path:        "/foo/bar/libbaz.so.1",
			prefix:      "lib",
			isDir:       false,
			expected:    -1,
		},
		{
			description: "no match",
			path:        "/foo/bar/baz",
			prefix:      "lib",
			isDir:       true,
			expected:    -1,
		},
		{
			description: "empty path",
			path:        "",
			prefix:      "lib",
			isDir:       true,
			expected:    -1,
		},
		{
			description: "match directly under root",
			path:        "/lib/libfoo.so",
			prefix:      "lib",
			isDir:       false,
			expected:    0,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			require.Equal(t, tc.expected, ComponentPrefix(tc.path, tc.prefix, tc.isDir))
		})
	}
}

func TestJoin(t *testing.T) {
	testCases := []struct {
		description string
		parent      string
		child       string
		expected    string
		expectError bool
	}{
		{
			description: "plain join",
			parent:      "/a/b",
			child:       "c",
			expected:    "/a/b/c",
		},
		{
			description: "parent has trailing separator",
			parent:      "/a/b/",
			child:       "c",
			expected:    "/a/b/c",
		},
		{
			description: "child has leading separator",
			parent:      "/a/b",
			child:       "/c",
			expected:    "/a/b/c",
		},
		{
			description: "both have separators",
			parent:      "/a/b/",
			child:       "/c",
			expected:    "/a/b/c",
		},
		{
			description: "empty parent becomes dot",
			parent:      "",
			child:       "c",
			expected:    "./c",
		},
		{
			description: "overflow fails",
			parent:      "/" + strings.Repeat("a", PathMax),
			child:       "c",
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			joined, err := Join(tc.parent, tc.child)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, joined)
		})
	}
}

func TestJoinFilenameRoundTrip(t *testing.T) {
	joined, err := Join("/opt/cuda/compat", "libcuda.so.1")
	require.NoError(t, err)
	require.Equal(t, "libcuda.so.1", Filename(joined))
}

func TestTrimSuffixComponents(t *testing.T) {
	testCases := []struct {
		description string
		path        string
		suffix      string
		expected    string
		expectedOK  bool
	}{
		{
			description: "toolkit runtime directory",
			path:        "/opt/cuda-12.4/targets/x86_64-linux/lib",
			suffix:      "targets/x86_64-linux/lib",
			expected:    "/opt/cuda-12.4",
			expectedOK:  true,
		},
		{
			description: "component mismatch",
			path:        "/opt/cuda-12.4/targets/x86_64-linux/lib64",
			suffix:      "targets/x86_64-linux/lib",
			expectedOK:  false,
		},
		{
			description: "partial component does not match",
			path:        "/opt/xtargets/x86_64-linux/lib",
			suffix:      "targets/x86_64-linux/lib",
			expectedOK:  false,
		},
		{
			description: "path shorter than suffix",
			path:        "/lib",
			suffix:      "targets/x86_64-linux/lib",
			expectedOK:  false,
		},
		{
			description: "suffix consumes the whole absolute path",
			path:        "/targets/x86_64-linux/lib",
			suffix:      "targets/x86_64-linux/lib",
			expected:    "/",
			expectedOK:  true,
		},
		{
			description: "empty suffix",
			path:        "/a/b",
			suffix:      "",
			expected:    "/a/b",
			expectedOK:  true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			prefix, ok := TrimSuffixComponents(tc.path, tc.suffix)
			require.Equal(t, tc.expectedOK, ok)
			if tc.expectedOK {
				require.Equal(t, tc.expected, prefix)
			}
		})
	}
}
