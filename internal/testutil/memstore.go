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

package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryObjectStore is an in-memory object store keyed by locator. It
// stands in for Cloud Storage in tests of anything that reads or writes
// objects.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// GetErr and PutErr, when set, fail the corresponding operation.
	GetErr error
	PutErr error
}

// NewMemoryObjectStore creates an empty store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

// Seed stores an object directly, bypassing error injection.
func (s *MemoryObjectStore) Seed(locator string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[locator] = append([]byte(nil), data...)
}

// Get opens the object at the locator for reading.
func (s *MemoryObjectStore) Get(_ context.Context, locator string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	data, ok := s.objects[locator]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put writes the object at the locator and returns its size in bytes.
func (s *MemoryObjectStore) Put(_ context.Context, locator string, r io.Reader) (int64, error) {
	if s.PutErr != nil {
		return 0, s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[locator] = data
	return int64(len(data)), nil
}

// Size returns the stored size of an object, or -1 when absent.
func (s *MemoryObjectStore) Size(locator string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[locator]
	if !ok {
		return -1
	}
	return int64(len(data))
}

// Locators returns every stored locator.
func (s *MemoryObjectStore) Locators() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
