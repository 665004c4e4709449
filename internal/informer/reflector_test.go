// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer_test

import (
	"testing"
	"time"

	"github.com/magnetar-sync/magnetar/internal/source"
	"github.com/stretchr/testify/assert"
)

func TestReflector_ResumesAfterDisconnect(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))

	sharedInformer, _ := startInformer(t, memorySource, 0)
	assertions.Equal(1, sharedInformer.GetIndexer().Len())

	memorySource.DropConnections()
	memorySource.Create(createSubscription("b"))

	assertions.True(waitFor(5*time.Second, func() bool {
		return sharedInformer.GetIndexer().Len() == 2
	}))

	_, ok := sharedInformer.GetIndexer().GetByKey("playground/b")
	assertions.True(ok)
}

func TestReflector_ConvergesAfterCompaction(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))
	memorySource.Create(createSubscription("b"))

	sharedInformer, _ := startInformer(t, memorySource, 0)

	memorySource.DropConnections()
	memorySource.Create(createSubscription("c"))
	memorySource.Compact()
	memorySource.Create(createSubscription("d"))
	memorySource.Delete(createSubscription("a"))

	assertions.True(waitFor(10*time.Second, func() bool {
		var indexer = sharedInformer.GetIndexer()
		if indexer.Len() != 3 {
			return false
		}
		_, hasA := indexer.GetByKey("playground/a")
		return !hasA
	}))
}

func TestReflector_TracksLastSyncVersion(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))

	sharedInformer, _ := startInformer(t, memorySource, 0)
	assertions.Equal(memorySource.Version(), sharedInformer.LastSyncVersion())

	memorySource.Create(createSubscription("b"))

	assertions.True(waitFor(5*time.Second, func() bool {
		return sharedInformer.LastSyncVersion() == memorySource.Version()
	}))
}
