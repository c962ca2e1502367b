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
// services. This file initializes and holds every external client the
// service needs: Storage, Pub/Sub, IAM credentials, the Generative AI
// client, the configured script models, the trigger listeners, and the
// worker pool that bounds concurrent trigger processing. The resulting
// ServiceClients struct is the dependency injection container passed
// through the rest of the application.
package cloud

import (
	"context"
	"fmt"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/panjf2000/ants/v2"
	"google.golang.org/genai"
)

// ServiceClients is the container for every external service connection,
// shared across the application.
type ServiceClients struct {
	StorageClient   *storage.Client                         // Cloud Storage client.
	PubsubClient    *pubsub.Client                          // Pub/Sub client.
	GenAIClient     *genai.Client                           // Generative AI client (Vertex AI backend).
	IAMClient       *credentials.IamCredentialsClient       // IAM credentials client for signing artifact URLs.
	PubSubListeners map[string]*PubSubListener              // Trigger listeners keyed by logical name from the config.
	ScriptModels    map[string]*QuotaAwareGenerativeAIModel // Rate-limited script models keyed by logical name.
	WorkerPool      *ants.Pool                              // Bounded pool for concurrent trigger processing.
}

// Close releases every client connection and the worker pool. Useful in
// tests and for controlled shutdowns.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
	if c.WorkerPool != nil {
		c.WorkerPool.Release()
	}
}

// NewCloudServiceClients initializes every Google Cloud client the
// application needs from the loaded configuration.
//
// Inputs:
//   - ctx: the root context governing the clients' lifecycle.
//   - config: the loaded application configuration.
//
// Outputs:
//   - *ServiceClients: the fully initialized container.
//   - error: the first client initialization failure.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create iam credentials client: %w", err)
	}

	poolSize := config.Application.ThreadPoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	// The listeners are created without commands; the workflows attach
	// themselves during server setup.
	subscriptions := make(map[string]*PubSubListener)
	for subKey, values := range config.TopicSubscriptions {
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		actual.SetWorkerPool(pool)
		subscriptions[subKey] = actual
	}

	// Each configured script model gets its generation settings applied and
	// is wrapped with the quota-aware rate limiter.
	scriptModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.ScriptModels {
		cfg := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		scriptModels[amKey] = NewQuotaAwareModel(cfg, values.Model, gc.Models, values.RateLimit)
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		IAMClient:       ic,
		PubSubListeners: subscriptions,
		ScriptModels:    scriptModels,
		WorkerPool:      pool,
	}, nil
}
