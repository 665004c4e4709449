// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"sort"
	"sync"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// MemorySink keeps all datasets in process memory. It needs no external
// infrastructure, which makes it the default for local development and the
// workhorse of the pipeline tests.
type MemorySink struct {
	mu   sync.RWMutex
	data map[string]map[string]*unstructured.Unstructured
}

func NewMemorySink() *MemorySink {
	return &MemorySink{data: map[string]map[string]*unstructured.Unstructured{}}
}

func (s *MemorySink) Initialize() {
	// Nothing to implement here!
}

func (s *MemorySink) InitializeDataset(resourceConfig *config.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dataset = resourceConfig.GetCacheName()
	if _, ok := s.data[dataset]; !ok {
		s.data[dataset] = map[string]*unstructured.Unstructured{}
	}
}

func (s *MemorySink) Apply(dataset string, obj *unstructured.Unstructured) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[dataset]; !ok {
		s.data[dataset] = map[string]*unstructured.Unstructured{}
	}
	s.data[dataset][informer.KeyOf(obj)] = obj.DeepCopy()

	return nil
}

func (s *MemorySink) Drop(dataset string, obj *unstructured.Unstructured) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[dataset], informer.KeyOf(obj))

	return nil
}

func (s *MemorySink) Read(dataset string, key string) (*unstructured.Unstructured, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.data[dataset][key]
	if !ok {
		return nil, ErrResourceNotFound
	}

	return obj.DeepCopy(), nil
}

func (s *MemorySink) List(dataset string, fieldSelector string, limit int64) ([]unstructured.Unstructured, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects = make([]unstructured.Unstructured, 0)
	for _, obj := range s.data[dataset] {
		if !utils.MatchFieldSelector(obj, fieldSelector) {
			continue
		}

		objects = append(objects, *obj.DeepCopy())
		if limit > 0 && int64(len(objects)) >= limit {
			break
		}
	}

	return objects, nil
}

func (s *MemorySink) Keys(dataset string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys = make([]string, 0, len(s.data[dataset]))
	for key := range s.data[dataset] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

func (s *MemorySink) Count(dataset string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[dataset]), nil
}

func (s *MemorySink) Connected() bool {
	return true
}

func (s *MemorySink) Shutdown() {
	// Nothing to implement here!
}
