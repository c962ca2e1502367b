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

// Package commands provides the concrete Command implementations that make
// up the generation workflow. This file defines the entry command: it
// parses the raw Pub/Sub trigger message into a typed envelope so the rest
// of the chain never touches JSON.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// GetTriggerEnvelopeName returns the context key under which the parsed
// trigger envelope is stored for the whole chain.
func GetTriggerEnvelopeName() string {
	return "__TRIGGER__"
}

// GenerationTriggerReader parses a generation trigger message into a
// model.TriggerEnvelope.
type GenerationTriggerReader struct {
	cor.BaseCommand
}

// NewGenerationTriggerReader creates the trigger parsing command.
func NewGenerationTriggerReader(name string) *GenerationTriggerReader {
	return &GenerationTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the raw message JSON from the input parameter and places
// the typed envelope both under the well-known key and on the output
// parameter for the next command.
func (c *GenerationTriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var envelope model.TriggerEnvelope
	if err := json.Unmarshal([]byte(in), &envelope); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal generation trigger: %w", err))
		return
	}
	if envelope.RequestID == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("generation trigger is missing request_id"))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetTriggerEnvelopeName(), &envelope)
	context.Add(c.GetOutputParam(), &envelope)
}
