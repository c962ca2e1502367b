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

package synthesis

import (
	"context"
	"fmt"
	"strings"
	"text/template"
)

// TextGenerator produces narration text from a prompt. The concrete
// implementation is the quota-aware generative model wrapper in the cloud
// package.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// scriptInput is the data bound into the script prompt template.
type scriptInput struct {
	Prompt          string
	Topic           string
	DurationSeconds int
}

// ScriptComposer turns a generation request into the narration script read
// aloud by the narration service. The prompt template is supplied through
// configuration so the wording can be tuned without a rebuild.
type ScriptComposer struct {
	model    TextGenerator
	template *template.Template
}

// NewScriptComposer parses the configured prompt template and binds it to a
// text generator.
func NewScriptComposer(model TextGenerator, promptTemplate string) (*ScriptComposer, error) {
	tmpl, err := template.New("script").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script prompt template: %w", err)
	}
	return &ScriptComposer{model: model, template: tmpl}, nil
}

// Compose renders the prompt template for the request and asks the model
// for a script. The model's output is trimmed of the leading and trailing
// whitespace generative models tend to emit; an empty script is an error so
// the caller can fall back to a silent video rather than narrate nothing.
func (c *ScriptComposer) Compose(ctx context.Context, prompt, topic string, durationSeconds int) (string, error) {
	var rendered strings.Builder
	err := c.template.Execute(&rendered, scriptInput{
		Prompt:          prompt,
		Topic:           topic,
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render script prompt: %w", err)
	}

	script, err := c.model.GenerateText(ctx, rendered.String())
	if err != nil {
		return "", fmt.Errorf("script generation failed: %w", err)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return "", fmt.Errorf("script generation returned no text")
	}
	return script, nil
}
