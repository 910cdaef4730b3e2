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

package main

import (
	"errors"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/chuckatkins/cuda-autocompat/internal/args"
	"github.com/chuckatkins/cuda-autocompat/internal/cuda"
	"github.com/chuckatkins/cuda-autocompat/internal/dl"
	"github.com/chuckatkins/cuda-autocompat/internal/info"
	"github.com/chuckatkins/cuda-autocompat/internal/logger"
	"github.com/chuckatkins/cuda-autocompat/internal/search"
)

func main() {
	log := logger.NewFromEnv()

	if err := run(log); err != nil {
		if !errors.Is(err, args.ErrHelp) {
			klog.Error(err)
		}
		os.Exit(1)
	}
}

// run parses the inputs, walks the search pipeline, and prints the winning
// driver directory on stdout. Everything else goes to stderr.
func run(log *logger.Logger) error {
	log.Infof("%s", info.Banner(""))

	parser := args.NewParser(log, args.WithDefaultPaths(dl.DefaultSearchPaths))
	opts, err := parser.Parse(os.Args)
	if err != nil {
		return err
	}
	if opts.Verbosity != nil {
		log.SetLevel(*opts.Verbosity)
	}

	log.Infof("Searching for best available %s", cuda.DriverLibName)
	state := search.NewState(log)
	result, found := state.Run(opts.Libraries, opts.SearchPaths)
	log.Infof("Search complete")

	if !found {
		log.Infof("No usable library found")
		return fmt.Errorf("no usable %s found", cuda.DriverLibName)
	}

	major, minor, patch := result.MajorMinorPatch()
	log.Infof("Found library: %s/%s", result.Dir, cuda.DriverLibName)
	log.Infof("Found version: %d.%d.%d", major, minor, patch)

	fmt.Print(result.Dir)
	return nil
}
