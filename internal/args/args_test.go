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

package args

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chuckatkins/cuda-autocompat/internal/logger"
)

const argv0 = "cuda-autocompat-search"

func newTestParser(opts ...ParserOption) (*Parser, *int) {
	log := logger.New(logger.WithOutput(io.Discard), logger.WithLevel(logger.LevelOff))

	probeCalls := 0
	defaults := func() ([]string, error) {
		probeCalls++
		return nil, nil
	}

	opts = append([]ParserOption{
		WithErrWriter(io.Discard),
		WithDefaultPaths(defaults),
		WithStdin(strings.NewReader("")),
	}, opts...)

	return NewParser(log, opts...), &probeCalls
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestLibraryListParsing(t *testing.T) {
	root := t.TempDir()
	libA := touch(t, filepath.Join(root, "a.so"))
	libB := touch(t, filepath.Join(root, "b.so"))

	testCases := []struct {
		description string
		argv        []string
		expected    []string
	}{
		{
			description: "colon separated list",
			argv:        []string{argv0, "-l", libA + ":" + libB},
			expected:    []string{libA, libB},
		},
		{
			description: "long option",
			argv:        []string{argv0, "--libs=" + libA},
			expected:    []string{libA},
		},
		{
			description: "duplicates dropped",
			argv:        []string{argv0, "-l", libA + ":" + libA, "-l", libA},
			expected:    []string{libA},
		},
		{
			description: "empty entries dropped",
			argv:        []string{argv0, "-l", ":" + libA + ":"},
			expected:    []string{libA},
		},
		{
			description: "missing files dropped",
			argv:        []string{argv0, "-l", filepath.Join(root, "nope.so") + ":" + libB},
			expected:    []string{libB},
		},
		{
			description: "directories are not library files",
			argv:        []string{argv0, "-l", root + ":" + libA},
			expected:    []string{libA},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			parser, _ := newTestParser()
			opts, err := parser.Parse(tc.argv)
			require.NoError(t, err)
			require.Equal(t, tc.expected, opts.Libraries)
		})
	}
}

func TestSearchPathParsing(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	require.NoError(t, os.Mkdir(dirA, 0o755))
	fileInRoot := touch(t, filepath.Join(root, "f"))

	testCases := []struct {
		description string
		argv        []string
		expected    []string
	}{
		{
			description: "colon separated list",
			argv:        []string{argv0, "-p", dirA + ":" + root},
			expected:    []string{dirA, root},
		},
		{
			description: "empty entry becomes the current directory",
			argv:        []string{argv0, "-p", ":" + dirA},
			expected:    []string{".", dirA},
		},
		{
			description: "files are not directories",
			argv:        []string{argv0, "-p", fileInRoot + ":" + dirA},
			expected:    []string{dirA},
		},
		{
			description: "missing entries dropped",
			argv:        []string{argv0, "--search-path", filepath.Join(root, "nope") + ":" + dirA},
			expected:    []string{dirA},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			parser, probeCalls := newTestParser()
			opts, err := parser.Parse(tc.argv)
			require.NoError(t, err)
			require.Equal(t, tc.expected, opts.SearchPaths)
			require.Zero(t, *probeCalls, "default probe must not run when -p was seen")
		})
	}
}

func TestDefaultPathSeeding(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	require.NoError(t, os.Mkdir(dirA, 0o755))

	log := logger.New(logger.WithOutput(io.Discard), logger.WithLevel(logger.LevelOff))

	t.Run("no search path seeds from the probe", func(t *testing.T) {
		parser := NewParser(log,
			WithErrWriter(io.Discard),
			WithStdin(strings.NewReader("")),
			WithDefaultPaths(func() ([]string, error) {
				return []string{dirA, filepath.Join(root, "missing")}, nil
			}),
		)
		opts, err := parser.Parse([]string{argv0})
		require.NoError(t, err)
		require.Equal(t, []string{dirA}, opts.SearchPaths)
	})

	t.Run("probe failure fails the parse", func(t *testing.T) {
		parser := NewParser(log,
			WithErrWriter(io.Discard),
			WithStdin(strings.NewReader("")),
			WithDefaultPaths(func() ([]string, error) {
				return nil, fmt.Errorf("dlinfo failed")
			}),
		)
		_, err := parser.Parse([]string{argv0})
		require.Error(t, err)
	})

	t.Run("search path seen only on a continuation level still wins", func(t *testing.T) {
		parser := NewParser(log,
			WithErrWriter(io.Discard),
			WithStdin(strings.NewReader("-p "+dirA+"\n")),
			WithDefaultPaths(func() ([]string, error) {
				t.Fatal("default probe must not run")
				return nil, nil
			}),
		)
		opts, err := parser.Parse([]string{argv0, "-"})
		require.NoError(t, err)
		require.Equal(t, []string{dirA}, opts.SearchPaths)
	})
}

func TestStdinContinuation(t *testing.T) {
	root := t.TempDir()
	libA := touch(t, filepath.Join(root, "a.so"))
	libB := touch(t, filepath.Join(root, "b.so"))

	t.Run("one line of additional arguments", func(t *testing.T) {
		parser, _ := newTestParser(WithStdin(strings.NewReader("-l " + libA + ":" + libB + "\n")))
		opts, err := parser.Parse([]string{argv0, "-"})
		require.NoError(t, err)
		require.Equal(t, []string{libA, libB}, opts.Libraries)
	})

	t.Run("accumulates with command line arguments", func(t *testing.T) {
		parser, _ := newTestParser(WithStdin(strings.NewReader("-l " + libB + "\n")))
		opts, err := parser.Parse([]string{argv0, "-l", libA, "-"})
		require.NoError(t, err)
		require.Equal(t, []string{libA, libB}, opts.Libraries)
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		parser, _ := newTestParser(WithStdin(strings.NewReader("\n")))
		_, err := parser.Parse([]string{argv0, "-"})
		require.Error(t, err)
	})

	t.Run("unreadable stdin is rejected", func(t *testing.T) {
		parser, _ := newTestParser(WithStdin(strings.NewReader("")))
		_, err := parser.Parse([]string{argv0, "-"})
		require.Error(t, err)
	})
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		description string
		argv        []string
	}{
		{
			description: "unknown option",
			argv:        []string{argv0, "--bogus"},
		},
		{
			description: "missing required argument",
			argv:        []string{argv0, "--libs"},
		},
		{
			description: "unrecognized positional argument",
			argv:        []string{argv0, "extra"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			parser, _ := newTestParser()
			_, err := parser.Parse(tc.argv)
			require.Error(t, err)
		})
	}
}

func TestHelpSignalsAbort(t *testing.T) {
	for _, flag := range []string{"-h", "--help"} {
		t.Run(flag, func(t *testing.T) {
			parser, _ := newTestParser()
			_, err := parser.Parse([]string{argv0, flag})
			require.ErrorIs(t, err, ErrHelp)
		})
	}
}

func TestConfigFile(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	require.NoError(t, os.Mkdir(dirA, 0o755))
	libA := touch(t, filepath.Join(root, "a.so"))

	cfgFile := filepath.Join(root, "config.yaml")
	cfg := fmt.Sprintf("version: v1\nsearchPaths: [%q]\nlibraries: [%q]\nverbosity: 2\n", dirA, libA)
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o644))

	parser, probeCalls := newTestParser()
	opts, err := parser.Parse([]string{argv0, "--config-file", cfgFile})
	require.NoError(t, err)

	require.Equal(t, []string{dirA}, opts.SearchPaths)
	require.Equal(t, []string{libA}, opts.Libraries)
	require.NotNil(t, opts.Verbosity)
	require.Equal(t, logger.LevelVerbose, *opts.Verbosity)
	require.Zero(t, *probeCalls)
}
