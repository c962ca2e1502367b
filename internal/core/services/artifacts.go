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

// Package services contains the business logic behind the HTTP API. This
// file defines the ArtifactService, which turns private artifact locators
// into secure, time-limited download URLs so requesters can fetch their
// fused media without holding Google credentials.
package services

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-media-forge/internal/cloud"
)

// ArtifactService signs download URLs for generated artifacts.
type ArtifactService struct {
	StorageClient *storage.Client                   // Client for Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client used to sign URL payloads.
	SignerEmail   string                            // The service account that performs the signing.
}

// SignedArtifactURL creates a time-limited V4 signed URL for the artifact
// at a gs:// locator. Signing goes through the IAM Credentials API so no
// service account key ever touches the local disk.
//
// Inputs:
//   - ctx: the request context.
//   - locator: the artifact locator, "gs://bucket/object".
//   - expires: how long the URL stays valid.
//
// Outputs:
//   - string: the signed GET URL.
//   - error: a locator parse failure or a signing failure.
func (s *ArtifactService) SignedArtifactURL(ctx context.Context, locator string, expires time.Duration) (string, error) {
	bucketName, objectName, err := cloud.ParseLocator(locator)
	if err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", bucketName, objectName, err)
	}
	return u, nil
}
