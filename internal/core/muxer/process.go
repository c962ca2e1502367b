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

// Package muxer fuses generated media tracks into the final artifact by
// shelling out to ffmpeg. It stages remote inputs in a scratch directory,
// runs exactly one mux attempt per request, and guarantees the scratch
// files are released no matter how the attempt ends.
package muxer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ProcessResult is the outcome of one subprocess run. A non-zero exit is a
// result, not a Go error; errors are reserved for failures to run the
// process at all.
type ProcessResult struct {
	ExitCode   int      // The subprocess exit code, 0 on success.
	StderrTail []string // The last lines of stderr, for diagnostics.
}

// ProcessRunner executes an external command. Tests substitute stub
// executables; production uses the exec-based runner below.
type ProcessRunner interface {
	Run(ctx context.Context, command string, args []string) (ProcessResult, error)
}

// execRunner runs commands through os/exec, capturing a bounded tail of
// stderr so a failed mux can be diagnosed without storing the full log.
type execRunner struct {
	tailLines int
}

// NewExecRunner creates the production process runner. tailLines bounds how
// many trailing stderr lines are kept from a failed run.
func NewExecRunner(tailLines int) ProcessRunner {
	if tailLines <= 0 {
		tailLines = 20
	}
	return &execRunner{tailLines: tailLines}
}

// Run executes the command and waits for it to finish. The context kills
// the subprocess on cancellation.
func (r *execRunner) Run(ctx context.Context, command string, args []string) (ProcessResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ProcessResult{StderrTail: tail(stderr.String(), r.tailLines)}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("failed to run %s: %w", command, err)
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
