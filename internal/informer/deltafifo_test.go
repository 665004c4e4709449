// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func newTestObject(name string, version string) *unstructured.Unstructured {
	var obj = new(unstructured.Unstructured)
	obj.SetAPIVersion("subscriber.horizon.telekom.de/v1")
	obj.SetKind("Subscription")
	obj.SetNamespace("playground")
	obj.SetName(name)
	obj.SetResourceVersion(version)
	return obj
}

func TestDeltaFIFO_AddThenUpdateCoalesces(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Add(newTestObject("a", "1"))
	queue.Update(newTestObject("a", "2"))

	assertions.Equal(1, queue.Len())

	key, delta, err := queue.Pop()
	assertions.NoError(err)
	assertions.Equal("playground/a", key)
	assertions.Equal(DeltaAdded, delta.Kind)
	assertions.Equal("2", delta.Object.GetResourceVersion())
	assertions.Equal(0, queue.Len())
}

func TestDeltaFIFO_AddThenDeleteIsSuppressed(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Add(newTestObject("a", "1"))
	queue.Delete(newTestObject("a", "1"))

	assertions.Equal(0, queue.Len())
}

func TestDeltaFIFO_AddThenDeleteOfObservedObject(t *testing.T) {
	var assertions = assert.New(t)
	var indexer = NewIndexer(nil)
	var queue = NewDeltaFIFO(indexer)

	indexer.Update("playground/a", newTestObject("a", "1"))

	queue.Update(newTestObject("a", "2"))
	queue.Delete(newTestObject("a", "2"))

	_, delta, err := queue.Pop()
	assertions.NoError(err)
	assertions.Equal(DeltaDeleted, delta.Kind)
}

func TestDeltaFIFO_DeleteThenAddBecomesUpdate(t *testing.T) {
	var assertions = assert.New(t)
	var indexer = NewIndexer(nil)
	var queue = NewDeltaFIFO(indexer)

	indexer.Update("playground/a", newTestObject("a", "1"))

	queue.Delete(newTestObject("a", "1"))
	queue.Add(newTestObject("a", "3"))

	_, delta, err := queue.Pop()
	assertions.NoError(err)
	assertions.Equal(DeltaUpdated, delta.Kind)
	assertions.Equal("3", delta.Object.GetResourceVersion())
}

func TestDeltaFIFO_DeleteOfUnknownObjectIsNoOp(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Delete(newTestObject("ghost", "1"))

	assertions.Equal(0, queue.Len())
}

func TestDeltaFIFO_PopsInFirstArrivalOrder(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Add(newTestObject("a", "1"))
	queue.Add(newTestObject("b", "2"))
	queue.Update(newTestObject("a", "3"))

	key, _, _ := queue.Pop()
	assertions.Equal("playground/a", key)
	key, _, _ = queue.Pop()
	assertions.Equal("playground/b", key)
}

func TestDeltaFIFO_RepushedKeyGoesToTheBack(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Add(newTestObject("a", "1"))
	queue.Add(newTestObject("b", "1"))

	key, _, _ := queue.Pop()
	assertions.Equal("playground/a", key)

	queue.Update(newTestObject("a", "2"))

	key, _, _ = queue.Pop()
	assertions.Equal("playground/b", key)
	key, _, _ = queue.Pop()
	assertions.Equal("playground/a", key)
}

func TestDeltaFIFO_ReplaceSynthesizesDeletes(t *testing.T) {
	var assertions = assert.New(t)
	var indexer = NewIndexer(nil)
	var queue = NewDeltaFIFO(indexer)

	indexer.Update("playground/a", newTestObject("a", "1"))
	indexer.Update("playground/b", newTestObject("b", "1"))

	queue.Replace([]*unstructured.Unstructured{
		newTestObject("b", "2"),
		newTestObject("c", "2"),
	})

	assertions.Equal(3, queue.Len())

	var kinds = map[string]DeltaKind{}
	for i := 0; i < 3; i++ {
		key, delta, err := queue.Pop()
		assertions.NoError(err)
		kinds[key] = delta.Kind
	}

	assertions.Equal(DeltaReplaced, kinds["playground/b"])
	assertions.Equal(DeltaReplaced, kinds["playground/c"])
	assertions.Equal(DeltaDeleted, kinds["playground/a"])
}

func TestDeltaFIFO_ReplacedPendingKeyStaysReplaced(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Replace([]*unstructured.Unstructured{newTestObject("a", "1")})
	queue.Update(newTestObject("a", "2"))

	_, delta, err := queue.Pop()
	assertions.NoError(err)
	assertions.Equal(DeltaReplaced, delta.Kind)
	assertions.Equal("2", delta.Object.GetResourceVersion())
}

func TestDeltaFIFO_ResyncSkipsKeysWithPendingDeltas(t *testing.T) {
	var assertions = assert.New(t)
	var indexer = NewIndexer(nil)
	var queue = NewDeltaFIFO(indexer)

	indexer.Update("playground/a", newTestObject("a", "1"))
	indexer.Update("playground/b", newTestObject("b", "1"))

	queue.Update(newTestObject("a", "2"))
	queue.Resync()

	assertions.Equal(2, queue.Len())

	_, delta, _ := queue.Pop()
	assertions.Equal("2", delta.Object.GetResourceVersion())

	key, delta, _ := queue.Pop()
	assertions.Equal("playground/b", key)
	assertions.Equal(DeltaUpdated, delta.Kind)
	assertions.Equal("1", delta.Object.GetResourceVersion())
}

func TestDeltaFIFO_HasSyncedAfterInitialDrain(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	assertions.False(queue.HasSynced())

	queue.Replace([]*unstructured.Unstructured{
		newTestObject("a", "1"),
		newTestObject("b", "1"),
	})
	assertions.False(queue.HasSynced())

	_, _, _ = queue.Pop()
	assertions.False(queue.HasSynced())
	_, _, _ = queue.Pop()
	assertions.True(queue.HasSynced())
}

func TestDeltaFIFO_PopBlocksUntilDeltaArrives(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	var popped = make(chan string, 1)
	go func() {
		key, _, _ := queue.Pop()
		popped <- key
	}()

	select {
	case key := <-popped:
		t.Fatalf("pop returned %q before anything was queued", key)
	case <-time.After(50 * time.Millisecond):
	}

	queue.Add(newTestObject("a", "1"))

	select {
	case key := <-popped:
		assertions.Equal("playground/a", key)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after add")
	}
}

func TestDeltaFIFO_CloseUnblocksPop(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	var done = make(chan error, 1)
	go func() {
		_, _, err := queue.Pop()
		done <- err
	}()

	queue.Close()

	select {
	case err := <-done:
		assertions.ErrorIs(err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after close")
	}
}

func TestDeltaFIFO_DrainsBeforeReportingClosed(t *testing.T) {
	var assertions = assert.New(t)
	var queue = NewDeltaFIFO(NewIndexer(nil))

	queue.Add(newTestObject("a", "1"))
	queue.Close()

	key, _, err := queue.Pop()
	assertions.NoError(err)
	assertions.Equal("playground/a", key)

	_, _, err = queue.Pop()
	assertions.ErrorIs(err, ErrQueueClosed)
}
