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

package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-media-forge/internal/cloud"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/muxer"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/orchestrator"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/resilience"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/services"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/synthesis"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/workflow"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	orchestrator *orchestrator.GenerationOrchestrator
	artifacts    *services.ArtifactService
	triggerTopic *pubsub.Topic
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		// Create a default cloud config
		config := cloud.NewConfig()
		// Load it from the TOML files
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// newSynthesisStack builds the resilient synthesis client for one provider
// entry from the configuration.
func newSynthesisStack(config *cloud.Config, providerKey string, breaker *resilience.CircuitBreaker) *synthesis.SynthesisClient {
	pc, ok := config.Providers[providerKey]
	if !ok {
		log.Fatalf("missing provider configuration: %s\n", providerKey)
	}

	service := providerKey + "-synthesis"
	provider := synthesis.NewRESTProvider(service, pc.BaseURL, pc.APIKey, pc.OutputBucket, pc.FileExtension, nil)

	settings := synthesis.ClientSettings{
		MaxAttempts:  config.Resilience.RetryMaxAttempts,
		BaseDelay:    time.Duration(config.Resilience.RetryBaseDelayMs) * time.Millisecond,
		PollInterval: time.Duration(pc.PollIntervalSeconds) * time.Second,
		MaxWait:      time.Duration(pc.MaxWaitSeconds) * time.Second,
	}

	if providerKey == "video" {
		return synthesis.NewVideoSynthesisClient(provider, breaker, settings)
	}
	return synthesis.NewNarrationSynthesisClient(provider, breaker, settings)
}

// InitState initializes the application state: cloud clients, the
// generation pipeline, the artifact service, and the trigger listeners.
func InitState(ctx context.Context) {
	// Get the config file
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	store := cloud.NewGCSObjectStore(cloudClients.StorageClient)

	// A single breaker registry tracks the two synthesis services by name.
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: config.Resilience.BreakerFailureThreshold,
		RecoveryTimeout:  time.Duration(config.Resilience.BreakerRecoveryTimeoutSeconds) * time.Second,
	})

	videoClient := newSynthesisStack(config, "video", breaker)
	narrationClient := newSynthesisStack(config, "narration", breaker)

	composer, err := synthesis.NewScriptComposer(
		cloudClients.ScriptModels["narrator"],
		config.PromptTemplates.ScriptPrompt,
	)
	if err != nil {
		panic(err)
	}

	mux := muxer.NewMediaMuxer(
		store,
		muxer.NewExecRunner(config.Muxing.StderrTailLines),
		config.Muxing.CommandPath,
		config.Muxing.ScratchDir,
		config.Storage.ArtifactBucket,
	)

	state.orchestrator = orchestrator.NewGenerationOrchestrator(
		videoClient,
		narrationClient,
		composer,
		mux,
		store,
		config.Storage.SubtitleBucket,
		orchestrator.Limits{
			MinDurationSeconds: config.RequestLimits.MinDurationSeconds,
			MaxDurationSeconds: config.RequestLimits.MaxDurationSeconds,
		},
		orchestrator.OutputSettings{
			Format:  config.Muxing.OutputFormat,
			Quality: config.Muxing.Quality,
		},
		orchestrator.RateTable{
			VideoPerSecond:        config.CostRates.VideoPerSecond,
			NarrationPerCharacter: config.CostRates.NarrationPerCharacter,
		},
	)

	state.artifacts = &services.ArtifactService{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}

	state.triggerTopic = cloudClients.PubsubClient.Topic(config.TriggerTopics["generation"])

	SetupListeners(config, cloudClients, ctx)
}

// SetupListeners attaches the generation workflow to the trigger
// subscription and starts listening.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	resultTopic := cloudClients.PubsubClient.Topic(config.ResultTopics["results"])

	generationWorkflow := workflow.NewGenerationWorkflow("generation-workflow", state.orchestrator, resultTopic)
	cloudClients.PubSubListeners["GenerationTriggers"].SetCommand(generationWorkflow)
	cloudClients.PubSubListeners["GenerationTriggers"].Listen(ctx)
}
