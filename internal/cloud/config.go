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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the Google Cloud services the
// pipeline depends on.
//
// This file centralizes the configuration structs: cloud project settings,
// storage buckets, synthesis provider endpoints, resilience budgets, pricing
// rates, muxing options, Pub/Sub wiring, and the generative models used for
// narration script composition.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings holds the content safety thresholds applied to the
// script composition models. The thresholds are non-restrictive because the
// prompts come from the service's own templates, not end-user free text.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// SynthesisProvider is the endpoint and polling budget for one external
// generation service (video or narration).
type SynthesisProvider struct {
	BaseURL             string `toml:"base_url"`              // The service endpoint, without a trailing slash.
	APIKey              string `toml:"api_key"`               // Bearer token for the service.
	OutputBucket        string `toml:"output_bucket"`         // Bucket the service writes finished tracks to.
	FileExtension       string `toml:"file_extension"`        // Track extension, e.g. "mp4" or "wav".
	PollIntervalSeconds int    `toml:"poll_interval_seconds"` // Delay between job status checks.
	MaxWaitSeconds      int    `toml:"max_wait_seconds"`      // Total polling budget before a job times out.
}

// Resilience holds the shared retry and circuit breaker budgets applied to
// every provider call.
type Resilience struct {
	RetryMaxAttempts              int `toml:"retry_max_attempts"`               // Attempts per provider call.
	RetryBaseDelayMs              int `toml:"retry_base_delay_ms"`              // First retry backoff in milliseconds.
	BreakerFailureThreshold       int `toml:"breaker_failure_threshold"`        // Consecutive failures that open a circuit.
	BreakerRecoveryTimeoutSeconds int `toml:"breaker_recovery_timeout_seconds"` // Seconds a circuit stays open before a trial.
}

// CostRates holds the unit prices fed to the cost estimator.
type CostRates struct {
	VideoPerSecond        float64 `toml:"video_per_second"`
	NarrationPerCharacter float64 `toml:"narration_per_character"`
	EstimatedScriptChars  int     `toml:"estimated_script_characters"` // Narration length assumed when pricing before composition.
}

// RequestLimits bounds the duration accepted by the pipeline.
type RequestLimits struct {
	MinDurationSeconds int `toml:"min_duration_seconds"`
	MaxDurationSeconds int `toml:"max_duration_seconds"`
}

// Muxing configures the external muxing tool.
type Muxing struct {
	CommandPath     string `toml:"command_path"`      // Path to the ffmpeg binary.
	OutputFormat    string `toml:"output_format"`     // Container format of the fused artifact.
	Quality         string `toml:"quality"`           // Quality tier: "low", "standard", or "high".
	StderrTailLines int    `toml:"stderr_tail_lines"` // Lines of stderr kept from a failed run.
	ScratchDir      string `toml:"scratch_dir"`       // Directory for staged inputs; os.TempDir when empty.
}

// PromptTemplates holds the text templates rendered into model prompts.
type PromptTemplates struct {
	ScriptPrompt string `toml:"script"` // The narration script composition template.
}

// VertexAiLLMModel configures one generative model used for script
// composition.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The model name.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`         // Sampling temperature.
	TopP               float32 `toml:"top_p"`               // Nucleus sampling parameter.
	TopK               float32 `toml:"top_k"`               // Top-k sampling parameter.
	MaxTokens          int32   `toml:"max_tokens"`          // Output token cap.
	OutputFormat       string  `toml:"output_format"`       // Response MIME type.
	RateLimit          int     `toml:"rate_limit"`          // Requests per second allowed against the model.
}

// TopicSubscription configures one Pub/Sub subscription the service pulls
// generation triggers from.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The subscription id.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The processing timeout in seconds.
}

// Storage configures the Cloud Storage buckets the pipeline writes to.
type Storage struct {
	ArtifactBucket string `toml:"artifact_bucket"` // Bucket for fused artifacts.
	SubtitleBucket string `toml:"subtitle_bucket"` // Bucket for generated SRT files.
}

// Config is the root configuration object, loaded hierarchically from TOML
// files.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The application name.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project id.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // Worker pool size for concurrent trigger processing.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Service account used for signing artifact URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`             // Bucket configuration.
	Providers          map[string]SynthesisProvider `toml:"providers"`           // Synthesis services keyed by logical name ("video", "narration").
	Resilience         Resilience                   `toml:"resilience"`          // Retry and breaker budgets.
	CostRates          CostRates                    `toml:"cost_rates"`          // Unit prices for the cost estimator.
	RequestLimits      RequestLimits                `toml:"request_limits"`      // Request duration bounds.
	Muxing             Muxing                       `toml:"muxing"`              // External muxing tool settings.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`    // Prompt template configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Trigger subscriptions keyed by logical name.
	TriggerTopics      map[string]string            `toml:"trigger_topics"`      // Trigger topics keyed by logical name ("generation").
	ResultTopics       map[string]string            `toml:"result_topics"`       // Result topics keyed by logical name ("results").
	ScriptModels       map[string]VertexAiLLMModel  `toml:"script_models"`       // Generative models keyed by logical name ("narrator").
}

// NewConfig creates a Config with its map fields initialized so the TOML
// loader can populate them without nil checks.
func NewConfig() *Config {
	return &Config{
		Providers:          make(map[string]SynthesisProvider),
		TopicSubscriptions: make(map[string]TopicSubscription),
		TriggerTopics:      make(map[string]string),
		ResultTopics:       make(map[string]string),
		ScriptModels:       make(map[string]VertexAiLLMModel),
	}
}
