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

// Package api contains the HTTP route handlers. Generation is asynchronous:
// the POST handler validates the request, assigns it an id, and publishes a
// trigger for the workflow listeners; results flow back through the result
// topic. The API also prices requests up front and signs artifact download
// URLs.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/orchestrator"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/services"
)

// Validator checks a generation request against the configured limits.
type Validator interface {
	Validate(req *model.GenerationRequest) error
}

// Handlers bundles the dependencies of the HTTP routes.
type Handlers struct {
	Validator    Validator
	Artifacts    *services.ArtifactService
	TriggerTopic *pubsub.Topic
	Rates        orchestrator.RateTable
	ScriptChars  int // Characters of narration assumed per request when pricing up front.
}

// RegisterRoutes mounts the generation routes on the router group.
func RegisterRoutes(r *gin.RouterGroup, h *Handlers) {
	generate := r.Group("/generate")
	{
		generate.POST("", h.SubmitGeneration)
		generate.POST("/estimate", h.EstimateGeneration)
	}
	artifacts := r.Group("/artifacts")
	{
		artifacts.GET("/url", h.ArtifactURL)
	}
}

// SubmitGeneration validates a generation request, assigns it a request id,
// and publishes the trigger for asynchronous processing. It answers 202
// with the request id the caller uses to correlate the published result.
func (h *Handlers) SubmitGeneration(c *gin.Context) {
	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	envelope := model.TriggerEnvelope{
		RequestID: uuid.NewString(),
		Request:   req,
	}
	payload, err := json.Marshal(&envelope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode trigger"})
		return
	}

	result := h.TriggerTopic.Publish(c.Request.Context(), &pubsub.Message{Data: payload})
	if _, err := result.Get(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue generation request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"request_id":     envelope.RequestID,
		"estimated_cost": orchestrator.EstimateCost(req.DurationSeconds, h.scriptChars(&req), h.Rates),
		"status":         "accepted",
	})
}

// EstimateGeneration prices a request without running it. Validation
// failures price at zero and answer 400.
func (h *Handlers) EstimateGeneration(c *gin.Context) {
	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "estimated_cost": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"estimated_cost": orchestrator.EstimateCost(req.DurationSeconds, h.scriptChars(&req), h.Rates),
	})
}

// ArtifactURL signs a 15 minute download URL for a generated artifact.
func (h *Handlers) ArtifactURL(c *gin.Context) {
	locator := c.Query("locator")
	if locator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locator query parameter is required"})
		return
	}
	url, err := h.Artifacts.SignedArtifactURL(c.Request.Context(), locator, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate download URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// scriptChars returns the narration length assumed when pricing before the
// script exists. Silent requests price the video track only.
func (h *Handlers) scriptChars(req *model.GenerationRequest) int {
	if !req.AudioEnabled {
		return 0
	}
	return h.ScriptChars
}
