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
// message-driven workflows: commands, chains of commands, and the shared
// context a single workflow execution flows through. This file defines the
// interfaces; chains and commands are interchangeable behind them.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys that pipe data between commands in a chain.
const (
	// CtxIn is the default key a command reads its primary input from. The
	// chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key a command writes its primary output to. The
	// chain moves it to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It carries data,
// errors, warnings, and temp-file bookkeeping between commands.
type Context interface {
	// SetContext sets the standard Go context used for cancellation and
	// trace propagation.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records an error, keyed by the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every error collected during the workflow.
	GetErrors() map[string]error

	// AddWarning records a non-fatal degradation. Warnings never stop the
	// chain; they travel to the published result.
	AddWarning(message string)

	// GetWarnings returns the warnings in the order they were recorded.
	GetWarnings() []string

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile tracks a temporary file for cleanup at Close.
	AddTempFile(file string)

	// GetTempFiles returns every tracked temporary file path.
	GetTempFiles() []string

	// Close removes the tracked temporary files. Defer it at the start of a
	// workflow.
	Close()
}

// Executable is anything with a core execution step.
type Executable interface {
	// Execute runs the business logic, reading inputs from and writing
	// outputs to the shared Context.
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work in a workflow.
type Command interface {
	Executable

	// GetName returns the command name used in logs and telemetry.
	GetName() string

	// GetInputParam returns the context key of the command's primary input.
	GetInputParam() string

	// GetOutputParam returns the context key of the command's primary output.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for this command.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
