// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/source"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func createSubscription(name string) *unstructured.Unstructured {
	var obj = new(unstructured.Unstructured)
	obj.SetAPIVersion("subscriber.horizon.telekom.de/v1")
	obj.SetKind("Subscription")
	obj.SetNamespace("playground")
	obj.SetName(name)
	return obj
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	var deadline = time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// countingHandler records every notification it receives, per key.
type countingHandler struct {
	mu      sync.Mutex
	adds    map[string]int
	updates map[string]int
	deletes map[string]int
}

func newCountingHandler() *countingHandler {
	return &countingHandler{
		adds:    make(map[string]int),
		updates: make(map[string]int),
		deletes: make(map[string]int),
	}
}

func (h *countingHandler) OnAdd(obj *unstructured.Unstructured) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adds[informer.KeyOf(obj)]++
}

func (h *countingHandler) OnUpdate(_ *unstructured.Unstructured, newObj *unstructured.Unstructured) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates[informer.KeyOf(newObj)]++
}

func (h *countingHandler) OnDelete(obj *unstructured.Unstructured) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes[informer.KeyOf(obj)]++
}

func (h *countingHandler) addCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.adds[key]
}

func (h *countingHandler) updateCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates[key]
}

func (h *countingHandler) deleteCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deletes[key]
}

func (h *countingHandler) totalAdds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var total = 0
	for _, count := range h.adds {
		total += count
	}
	return total
}

func startInformer(t *testing.T, watchSource informer.Source, resyncPeriod time.Duration) (*informer.SharedInformer, chan struct{}) {
	t.Helper()

	var sharedInformer = informer.NewSharedInformer(t.Name(), watchSource, resyncPeriod, nil)
	var stopChan = make(chan struct{})
	t.Cleanup(func() { close(stopChan) })

	go sharedInformer.Run(stopChan)
	if !sharedInformer.WaitForSync(stopChan) {
		t.Fatal("informer did not sync")
	}

	return sharedInformer, stopChan
}

func TestSharedInformer_SyncsInitialListing(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))
	memorySource.Create(createSubscription("b"))

	sharedInformer, _ := startInformer(t, memorySource, 0)

	assertions.Equal(2, sharedInformer.GetIndexer().Len())

	var handler = newCountingHandler()
	sharedInformer.AddEventHandler(handler)

	assertions.True(waitFor(time.Second, func() bool { return handler.totalAdds() == 2 }))
	assertions.Equal(1, handler.addCount("playground/a"))
	assertions.Equal(1, handler.addCount("playground/b"))
}

func TestSharedInformer_FansOutToEveryHandlerExactlyOnce(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()

	sharedInformer, _ := startInformer(t, memorySource, 0)

	var first = newCountingHandler()
	var second = newCountingHandler()
	sharedInformer.AddEventHandler(first)
	sharedInformer.AddEventHandler(second)

	memorySource.Create(createSubscription("a"))

	assertions.True(waitFor(time.Second, func() bool {
		return first.addCount("playground/a") == 1 && second.addCount("playground/a") == 1
	}))

	// Give duplicates a chance to show up before asserting exactly-once.
	time.Sleep(100 * time.Millisecond)
	assertions.Equal(1, first.addCount("playground/a"))
	assertions.Equal(1, second.addCount("playground/a"))
}

func TestSharedInformer_LateHandlerGetsSnapshotWithoutGapsOrDuplicates(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))
	memorySource.Create(createSubscription("b"))
	memorySource.Create(createSubscription("c"))

	sharedInformer, _ := startInformer(t, memorySource, 0)

	var late = newCountingHandler()
	sharedInformer.AddEventHandler(late)

	assertions.True(waitFor(time.Second, func() bool { return late.totalAdds() == 3 }))

	var updated = createSubscription("a")
	_ = unstructured.SetNestedField(updated.Object, "value", "spec", "field")
	memorySource.Update(updated)

	assertions.True(waitFor(time.Second, func() bool { return late.updateCount("playground/a") == 1 }))

	time.Sleep(100 * time.Millisecond)
	assertions.Equal(3, late.totalAdds())
	assertions.Equal(1, late.updateCount("playground/a"))
}

func TestSharedInformer_RemovedHandlerStopsReceiving(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()

	sharedInformer, _ := startInformer(t, memorySource, 0)

	var handler = newCountingHandler()
	var registration = sharedInformer.AddEventHandler(handler)

	memorySource.Create(createSubscription("a"))
	assertions.True(waitFor(time.Second, func() bool { return handler.addCount("playground/a") == 1 }))

	assertions.NoError(sharedInformer.RemoveEventHandler(registration))

	memorySource.Create(createSubscription("b"))
	time.Sleep(100 * time.Millisecond)
	assertions.Equal(0, handler.addCount("playground/b"))

	assertions.Error(sharedInformer.RemoveEventHandler(registration))
}

func TestSharedInformer_PanickingHandlerDoesNotStarveOthers(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()

	sharedInformer, _ := startInformer(t, memorySource, 0)

	sharedInformer.AddEventHandler(informer.ResourceEventHandlerFuncs{
		AddFunc: func(obj *unstructured.Unstructured) {
			panic("handler failure")
		},
	})
	var healthy = newCountingHandler()
	sharedInformer.AddEventHandler(healthy)

	memorySource.Create(createSubscription("a"))
	memorySource.Create(createSubscription("b"))

	assertions.True(waitFor(time.Second, func() bool { return healthy.totalAdds() == 2 }))
}

func TestSharedInformer_DeleteDeliversLastKnownState(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))

	sharedInformer, _ := startInformer(t, memorySource, 0)

	var handler = newCountingHandler()
	sharedInformer.AddEventHandler(handler)
	assertions.True(waitFor(time.Second, func() bool { return handler.addCount("playground/a") == 1 }))

	memorySource.Delete(createSubscription("a"))

	assertions.True(waitFor(time.Second, func() bool { return handler.deleteCount("playground/a") == 1 }))
	assertions.Equal(0, sharedInformer.GetIndexer().Len())
}

func TestSharedInformer_ResyncRedeliversStoredState(t *testing.T) {
	var assertions = assert.New(t)
	var memorySource = source.NewMemorySource()
	memorySource.Create(createSubscription("a"))

	sharedInformer, _ := startInformer(t, memorySource, 50*time.Millisecond)

	var handler = newCountingHandler()
	sharedInformer.AddEventHandler(handler)

	assertions.True(waitFor(2*time.Second, func() bool { return handler.updateCount("playground/a") >= 2 }))
}
