// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud
// services. This file holds the hierarchical configuration loader: a base
// TOML file is decoded first, then an environment-specific file overlays
// it, with both paths derived from environment variables.
package cloud

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Configuration loading constants.
const (
	ConfigFileBaseName  = ".env"                // Base name of configuration files.
	ConfigFileExtension = ".toml"               // Extension of configuration files.
	ConfigSeparator     = "."                   // Separator in overlay file names (".env.local.toml").
	EnvConfigFilePrefix = "FORGE_CONFIG_PREFIX" // Environment variable naming the config directory.
	EnvConfigRuntime    = "FORGE_RUNTIME"       // Environment variable naming the runtime ("local", "test", "prod").
)

// fileExists reports whether a file or directory exists at the path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig hierarchically: the base file first
// (".env.toml"), then the runtime overlay (".env.<runtime>.toml") whose
// values win. The runtime defaults to "test" so test runs never pick up
// production settings by accident.
//
// Scalar fields merge individually, but entries in map-valued sections
// (providers, topic_subscriptions, script_models) are replaced wholesale:
// an overlay that redefines providers.video must carry the complete table,
// or the fields it omits decode to their zero values.
//
// Inputs:
//   - baseConfig: a pointer to the configuration struct to populate.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	slog.Info("loading configuration",
		"base", baseConfigFileName,
		"overlay", envConfigFileName,
		"runtime", runtimeEnvironment)

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}
