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

// Package args normalizes the search helper's inputs: search directories and
// library lists from flags, an optional config file, a stdin continuation
// form, and the dynamic linker's defaults when nothing was specified.
package args

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v2"

	"github.com/chuckatkins/cuda-autocompat/internal/config"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

// ErrHelp is returned when usage was requested and printed; the helper exits
// non-zero without searching.
var ErrHelp = errors.New("help requested")

// Options is the normalized search input.
type Options struct {
	SearchPaths []string
	Libraries   []string

	// Verbosity carries a config-file verbosity override for the caller's
	// logger, when present.
	Verbosity *logger.Level
}

// Parser accumulates options across recursive invocation levels.
type Parser struct {
	log          logger.Interface
	stdin        *bufio.Scanner
	errWriter    io.Writer
	defaultPaths func() ([]string, error)

	opts      Options
	pathSeen  bool
	pathCache map[string]struct{}
	libCache  map[string]struct{}
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithStdin replaces the stream backing the "-" continuation form.
func WithStdin(r io.Reader) ParserOption {
	return func(p *Parser) {
		p.stdin = bufio.NewScanner(r)
	}
}

// WithErrWriter redirects usage and diagnostics away from stderr.
func WithErrWriter(w io.Writer) ParserOption {
	return func(p *Parser) {
		p.errWriter = w
	}
}

// WithDefaultPaths replaces the probe used to seed the directory list when no
// --search-path option was seen.
func WithDefaultPaths(probe func() ([]string, error)) ParserOption {
	return func(p *Parser) {
		p.defaultPaths = probe
	}
}

// NewParser creates a Parser. Without options it reads continuations from
// stdin and seeds defaults from the dynamic linker.
func NewParser(log logger.Interface, opts ...ParserOption) *Parser {
	p := &Parser{
		log:       log,
		errWriter: os.Stderr,
		pathCache: make(map[string]struct{}),
		libCache:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.stdin == nil {
		p.stdin = bufio.NewScanner(os.Stdin)
	}
	return p
}

// Parse consumes an argument vector, including any stdin continuations, and
// returns the normalized options. When no search path was specified at any
// level the directory list is seeded from the default-path probe; a probe
// failure fails the parse.
func (p *Parser) Parse(argv []string) (*Options, error) {
	if err := p.parseOne(argv); err != nil {
		return nil, err
	}

	if !p.pathSeen {
		p.log.Infof("Adding default search paths")
		if p.defaultPaths == nil {
			return nil, fmt.Errorf("no default search path probe available")
		}
		defaults, err := p.defaultPaths()
		if err != nil {
			p.log.Errorf("failed to get default search path.")
			return nil, err
		}
		for _, dir := range defaults {
			p.addPath(dir, true)
		}
	}

	return &p.opts, nil
}

func (p *Parser) parseOne(argv []string) error {
	actionRan := false
	app := &cli.App{
		Name:            "cuda-autocompat-search",
		Usage:           "locate the newest usable CUDA driver directory",
		HideHelpCommand: true,
		Writer:          p.errWriter,
		ErrWriter:       p.errWriter,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "search-path",
				Aliases: []string{"p"},
				Usage:   "colon-separated library search `PATH`",
			},
			&cli.StringSliceFlag{
				Name:    "libs",
				Aliases: []string{"l"},
				Usage:   "colon-separated library list (`LIBRARIES`) to search",
			},
			&cli.StringFlag{
				Name:  "config-file",
				Usage: "a path to a config file as an alternative to command line options",
			},
		},
		Action: func(c *cli.Context) error {
			actionRan = true
			return p.run(c)
		},
	}

	if err := app.Run(argv); err != nil {
		if !errors.Is(err, ErrHelp) {
			p.log.Errorf("%s: %v", argv[0], err)
		}
		return err
	}
	// cli prints usage and swallows the action when help is requested; the
	// helper must still treat that as an abort.
	if !actionRan {
		return ErrHelp
	}
	return nil
}

func (p *Parser) run(c *cli.Context) error {
	if cfgFile := c.String("config-file"); cfgFile != "" {
		if err := p.applyConfig(cfgFile); err != nil {
			return err
		}
	}

	for _, list := range c.StringSlice("search-path") {
		p.pathSeen = true
		p.log.Infof("Adding search paths")
		p.addPathList(list, true)
	}
	for _, list := range c.StringSlice("libs") {
		p.log.Infof("Adding search libs")
		p.addPathList(list, false)
	}

	for _, arg := range c.Args().Slice() {
		if arg != "-" {
			return fmt.Errorf("unrecognized argument '%s'", arg)
		}
		p.log.Infof("Reading additional arguments from stdin")
		extra, err := p.argvFromStdin()
		if err != nil {
			return err
		}
		if err := p.parseOne(append([]string{c.App.Name}, extra...)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) applyConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	p.log.Debugf("config file: %s", path)

	if cfg.Verbosity != nil {
		level := logger.LevelWarning + logger.Level(*cfg.Verbosity)
		if level > logger.LevelTrace {
			level = logger.LevelTrace
		}
		p.opts.Verbosity = &level
	}
	if len(cfg.SearchPaths) > 0 {
		p.pathSeen = true
		p.log.Infof("Adding search paths")
		for _, dir := range cfg.SearchPaths {
			p.addPath(dir, true)
		}
	}
	for _, lib := range cfg.Libraries {
		p.log.Infof("Adding search libs")
		p.addPath(lib, false)
	}
	return nil
}

func (p *Parser) argvFromStdin() ([]string, error) {
	if !p.stdin.Scan() {
		return nil, fmt.Errorf("failed to read arguments from stdin")
	}
	line := p.stdin.Text()
	p.log.Debugf("%s", line)

	argv := strings.Fields(line)
	for _, arg := range argv {
		p.log.Tracef("%s", arg)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argument line on stdin")
	}
	return argv, nil
}

func (p *Parser) addPathList(list string, dirMode bool) {
	for _, entry := range paths.SplitList(list) {
		p.addPath(entry, dirMode)
	}
}

// addPath filters a single entry: empty directories become ".", empty files
// are dropped, duplicates and entries of the wrong kind are skipped with a
// debug diagnostic.
func (p *Parser) addPath(entry string, dirMode bool) {
	if entry == "" {
		if !dirMode {
			p.log.Debugf("skip empty")
			return
		}
		entry = "."
	}

	cache := p.libCache
	if dirMode {
		cache = p.pathCache
	}
	if _, dup := cache[entry]; dup {
		p.log.Debugf("skip %s (already processed)", entry)
		return
	}
	cache[entry] = struct{}{}

	info, err := os.Stat(entry)
	if err != nil {
		p.log.Debugf("skip %s (does not exist)", entry)
		return
	}
	if dirMode && !info.IsDir() {
		p.log.Debugf("skip %s (not a directory)", entry)
		return
	}
	if !dirMode && !info.Mode().IsRegular() {
		p.log.Debugf("skip %s (not a regular file)", entry)
		return
	}

	p.log.Verbosef("%s", entry)
	if dirMode {
		p.opts.SearchPaths = append(p.opts.SearchPaths, entry)
	} else {
		p.opts.Libraries = append(p.opts.Libraries, entry)
	}
}
