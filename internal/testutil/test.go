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

// Package testutil provides helpers and sample data for the test suite:
// loading the test configuration, environment setup, and canned trigger
// messages for the generation workflow.
package testutil

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-media-forge/internal/cloud"
)

// StateManager caches the loaded configuration so tests do not reload the
// TOML files on every call.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil. A convenience to trim
// boilerplate in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestTriggerMessageText returns the JSON payload of a generation
// trigger message, as published to the trigger topic.
func GetTestTriggerMessageText() string {
	return `{
  "request_id": "req-test-0001",
  "request": {
    "prompt": "a lighthouse on a cliff at sunset, waves crashing below",
    "topic": "coastal landscapes",
    "duration_seconds": 20,
    "audio_enabled": true,
    "voice_config": {
      "voice": "en-US-Standard-C",
      "speed": 1.0,
      "language": "en-US"
    },
    "subtitle_enabled": true
  }
}`
}

// SetupOS points the configuration loader at the test configuration files
// (configs/.env.toml overlaid by configs/.env.test.toml). Tests run with the
// package directory as their working directory, so the configs directory is
// found by walking up toward the repository root.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, findConfigDir())
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

func findConfigDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "configs"
	}
	for {
		candidate := filepath.Join(dir, "configs")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "configs"
		}
		dir = parent
	}
}

// GetConfig is the singleton accessor for the test configuration. The
// configuration is loaded once and cached for the rest of the run.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
