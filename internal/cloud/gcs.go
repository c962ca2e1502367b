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
// services. This file holds the object store abstraction over Cloud
// Storage. Every generated track and artifact is addressed by a locator of
// the form "gs://bucket/object"; this file owns parsing those locators and
// moving bytes through them.
package cloud

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// ObjectStore reads and writes objects addressed by gs:// locators.
type ObjectStore interface {
	// Get opens the object at the locator for reading.
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	// Put writes the object at the locator and returns its size in bytes.
	Put(ctx context.Context, locator string, r io.Reader) (int64, error)
}

// ParseLocator splits a "gs://bucket/object" locator into its bucket and
// object name.
func ParseLocator(locator string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(locator, "gs://")
	if !ok {
		return "", "", fmt.Errorf("locator %q is not a gs:// uri", locator)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("locator %q is missing a bucket or object name", locator)
	}
	return bucket, object, nil
}

// GCSObjectStore is the Cloud Storage implementation of ObjectStore.
type GCSObjectStore struct {
	client *storage.Client
}

// NewGCSObjectStore wraps a storage client.
func NewGCSObjectStore(client *storage.Client) *GCSObjectStore {
	return &GCSObjectStore{client: client}
}

// Get opens the object at the locator for reading.
func (s *GCSObjectStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	bucket, object, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", locator, err)
	}
	return r, nil
}

// Put writes the object at the locator and returns the number of bytes
// written.
func (s *GCSObjectStore) Put(ctx context.Context, locator string, r io.Reader) (int64, error) {
	bucket, object, err := ParseLocator(locator)
	if err != nil {
		return 0, err
	}
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("failed to write %s: %w", locator, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize %s: %w", locator, err)
	}
	return n, nil
}
