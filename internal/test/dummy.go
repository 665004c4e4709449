// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package test

import (
	"sync"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/sink"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// RecordingSink is a functional in-memory sink that additionally counts
// calls and can be told to fail, which lets tests drive the retry path.
type RecordingSink struct {
	*sink.MemorySink

	mu                    sync.Mutex
	ApplyCalls            int
	DropCalls             int
	FailNextApplies       int
	IsInitialized         bool
	HasInitializedDataset bool
	IsShutdown            bool
}

var errApplyFailed = &sinkError{"apply failed"}

type sinkError struct{ message string }

func (e *sinkError) Error() string { return e.message }

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{MemorySink: sink.NewMemorySink()}
}

func (s *RecordingSink) Initialize() {
	s.IsInitialized = true
}

func (s *RecordingSink) InitializeDataset(resourceConfig *config.Resource) {
	s.HasInitializedDataset = true
	s.MemorySink.InitializeDataset(resourceConfig)
}

func (s *RecordingSink) Apply(dataset string, obj *unstructured.Unstructured) error {
	s.mu.Lock()
	s.ApplyCalls++
	if s.FailNextApplies > 0 {
		s.FailNextApplies--
		s.mu.Unlock()
		return errApplyFailed
	}
	s.mu.Unlock()

	return s.MemorySink.Apply(dataset, obj)
}

func (s *RecordingSink) Drop(dataset string, obj *unstructured.Unstructured) error {
	s.mu.Lock()
	s.DropCalls++
	s.mu.Unlock()

	return s.MemorySink.Drop(dataset, obj)
}

func (s *RecordingSink) Shutdown() {
	s.IsShutdown = true
}

// Applies returns the number of Apply calls seen so far.
func (s *RecordingSink) Applies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ApplyCalls
}

// Drops returns the number of Drop calls seen so far.
func (s *RecordingSink) Drops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DropCalls
}
