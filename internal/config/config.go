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

// Package config loads the optional YAML configuration file accepted by the
// search helper as an alternative to command line options.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Version indicates the version of the 'Config' struct used to hold
// configuration information.
const Version = "v1"

// Config holds default search inputs merged beneath the command line.
type Config struct {
	Version     string   `json:"version"               yaml:"version"`
	SearchPaths []string `json:"searchPaths,omitempty" yaml:"searchPaths"`
	Libraries   []string `json:"libraries,omitempty"   yaml:"libraries"`
	Verbosity   *int     `json:"verbosity,omitempty"   yaml:"verbosity"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	if cfg.Version == "" {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, fmt.Errorf("unknown config version: %v", cfg.Version)
	}

	if cfg.Verbosity != nil && (*cfg.Verbosity < 0 || *cfg.Verbosity > 9) {
		return nil, fmt.Errorf("verbosity out of range: %d", *cfg.Verbosity)
	}

	return &cfg, nil
}
