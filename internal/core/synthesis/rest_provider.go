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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// RESTProvider talks to a synthesis service over its job REST API:
// POST {base}/v1/jobs to submit, GET {base}/v1/jobs/{id} to poll. HTTP
// status codes map onto the failure taxonomy (429 rate limited, 400/422
// invalid input, 5xx service unavailable) so the retry layer can make the
// right call without knowing anything about HTTP.
type RESTProvider struct {
	service       string       // Breaker key and log label, e.g. "video-synthesis".
	baseURL       string       // Service endpoint without a trailing slash.
	apiKey        string       // Bearer token for the Authorization header.
	outputBucket  string       // Bucket the service writes finished artifacts to.
	fileExtension string       // Artifact extension, e.g. "mp4" or "wav".
	client        *http.Client // Shared HTTP client, injected for testability.
}

// NewRESTProvider creates a provider adapter for one synthesis service.
func NewRESTProvider(service, baseURL, apiKey, outputBucket, fileExtension string, client *http.Client) *RESTProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTProvider{
		service:       service,
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		outputBucket:  outputBucket,
		fileExtension: strings.TrimPrefix(fileExtension, "."),
		client:        client,
	}
}

// submitRequest is the wire shape of a job submission.
type submitRequest struct {
	Prompt          string  `json:"prompt,omitempty"`
	Topic           string  `json:"topic,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	Script          string  `json:"script,omitempty"`
	Voice           string  `json:"voice,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
	Language        string  `json:"language,omitempty"`
	OutputURI       string  `json:"output_uri"`
}

// submitResponse is the wire shape of a successful submission.
type submitResponse struct {
	JobId string `json:"job_id"`
}

// statusResponse is the wire shape of a job status lookup.
type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Submit starts a generation job. The output object name is chosen here so
// the locator is known before the job finishes.
func (p *RESTProvider) Submit(ctx context.Context, params SubmitParams) (JobHandle, error) {
	locator := fmt.Sprintf("gs://%s/%s.%s", p.outputBucket, uuid.NewString(), p.fileExtension)
	payload := submitRequest{
		Prompt:          params.Prompt,
		Topic:           params.Topic,
		DurationSeconds: params.DurationSeconds,
		Script:          params.Script,
		OutputURI:       locator,
	}
	if params.Voice != nil {
		payload.Voice = params.Voice.Voice
		payload.Speed = params.Voice.Speed
		payload.Language = params.Voice.Language
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return JobHandle{}, fmt.Errorf("failed to encode submit request: %w", err)
	}

	var out submitResponse
	if err := p.do(ctx, http.MethodPost, p.baseURL+"/v1/jobs", bytes.NewReader(body), &out); err != nil {
		return JobHandle{}, err
	}
	if out.JobId == "" {
		return JobHandle{}, &ProviderError{Service: p.service, Kind: FailureUnknown, Message: "submit response missing job id"}
	}
	return JobHandle{ExternalJobId: out.JobId, OutputLocator: locator}, nil
}

// Status reports the lifecycle state of a submitted job. An unrecognized
// status string classifies as an Unknown provider failure rather than
// guessing at a state.
func (p *RESTProvider) Status(ctx context.Context, handle JobHandle) (model.JobStatus, error) {
	var out statusResponse
	url := fmt.Sprintf("%s/v1/jobs/%s", p.baseURL, handle.ExternalJobId)
	if err := p.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return model.JobStatusFailed, err
	}

	switch strings.ToLower(out.Status) {
	case "pending", "queued":
		return model.JobStatusPending, nil
	case "running", "processing", "in_progress":
		return model.JobStatusRunning, nil
	case "completed", "succeeded":
		return model.JobStatusCompleted, nil
	case "failed", "error":
		return model.JobStatusFailed, nil
	default:
		return model.JobStatusFailed, &ProviderError{
			Service: p.service,
			Kind:    FailureUnknown,
			Message: fmt.Sprintf("unrecognized job status %q", out.Status),
		}
	}
}

// do executes one HTTP exchange and decodes the response body into out,
// translating non-2xx statuses into classified provider errors.
func (p *RESTProvider) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Service: p.service, Kind: FailureServiceUnavailable, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{
			Service: p.service,
			Kind:    classifyStatus(resp.StatusCode),
			Message: fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Service: p.service, Kind: FailureUnknown, Message: "undecodable response: " + err.Error()}
	}
	return nil
}

// classifyStatus maps an HTTP status code onto the failure taxonomy.
func classifyStatus(code int) FailureKind {
	switch {
	case code == http.StatusTooManyRequests:
		return FailureRateLimited
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return FailureInvalidInput
	case code >= 500:
		return FailureServiceUnavailable
	default:
		return FailureUnknown
	}
}
