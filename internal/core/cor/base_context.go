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

// Package cor (Chain of Responsibility) provides the building blocks for the
// message-driven workflows. This file holds BaseContext, the default Context
// implementation: a property bag carrying data, errors, warnings, temp-file
// bookkeeping, and the Go context through one workflow execution.
package cor

import (
	"context"
	"log/slog"
	"os"
)

// BaseContext is the default implementation of the Context interface.
type BaseContext struct {
	data      map[string]interface{} // Arbitrary key-value data shared between commands.
	errors    map[string]error       // Errors keyed by the command that produced them.
	warnings  []string               // Non-fatal degradations, in recording order.
	tempFiles []string               // Paths of temporary files to remove at Close.
	context   context.Context        // The Go context for cancellation and trace propagation.
}

// NewBaseContext creates an empty, ready-to-use context.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		warnings:  make([]string, 0),
		tempFiles: make([]string, 0),
	}
}

// SetContext sets the underlying Go context. The chain uses this to scope
// each command under its own trace span.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext retrieves the underlying Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every tracked temporary file. Removal failures are logged
// and swallowed so cleanup never masks the workflow outcome.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", "path", file, "error", err)
		}
	}
}

// Add stores a key-value pair and returns the context for chaining.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile tracks a temporary file for removal at Close.
func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

// GetTempFiles returns every tracked temporary file path.
func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records an error, keyed by the command name.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns the collected errors.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// AddWarning records a non-fatal degradation.
func (c *BaseContext) AddWarning(message string) {
	c.warnings = append(c.warnings, message)
}

// GetWarnings returns the warnings in recording order.
func (c *BaseContext) GetWarnings() []string {
	return c.warnings
}

// Get retrieves a value by key, or nil when absent.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove deletes a key-value pair.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// HasErrors reports whether any command has recorded an error.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
