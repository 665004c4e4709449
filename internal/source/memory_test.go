// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func newMemoryObject(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "subscriber.horizon.telekom.de/v1",
			"kind":       "Subscription",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": "playground",
			},
		},
	}
}

func collectEvents(stream informer.Stream, count int, timeout time.Duration) []informer.Event {
	var events []informer.Event
	var deadline = time.After(timeout)
	for len(events) < count {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, event)

		case <-deadline:
			return events
		}
	}
	return events
}

func TestMemorySource_ListReturnsCurrentVersion(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	source.Create(newMemoryObject("a"))
	source.Create(newMemoryObject("b"))

	objects, version, err := source.List(context.Background())

	assertions.NoError(err)
	assertions.Len(objects, 2)
	assertions.Equal(source.Version(), version)
}

func TestMemorySource_ListReturnsCopies(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	source.Create(newMemoryObject("a"))

	objects, _, err := source.List(context.Background())
	assertions.NoError(err)

	objects[0].SetName("tampered")

	objects, _, err = source.List(context.Background())
	assertions.NoError(err)
	assertions.Equal("a", objects[0].GetName())
}

func TestMemorySource_WatchReplaysFromToken(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	source.Create(newMemoryObject("a"))
	_, version, err := source.List(context.Background())
	assertions.NoError(err)

	source.Create(newMemoryObject("b"))
	source.Delete(newMemoryObject("a"))

	stream, err := source.Watch(context.Background(), version)
	assertions.NoError(err)
	defer stream.Stop()

	var events = collectEvents(stream, 2, time.Second)
	assertions.Len(events, 2)
	assertions.Equal(informer.Added, events[0].Type)
	assertions.Equal("b", events[0].Object.GetName())
	assertions.Equal(informer.Deleted, events[1].Type)
	assertions.Equal("a", events[1].Object.GetName())
}

func TestMemorySource_WatchDeliversLiveEvents(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	stream, err := source.Watch(context.Background(), "")
	assertions.NoError(err)
	defer stream.Stop()

	source.Create(newMemoryObject("a"))
	source.Update(newMemoryObject("a"))

	var events = collectEvents(stream, 2, time.Second)
	assertions.Len(events, 2)
	assertions.Equal(informer.Added, events[0].Type)
	assertions.Equal(informer.Modified, events[1].Type)
}

func TestMemorySource_WatchReplaysBacklogLargerThanStreamBuffer(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	var count = memoryStreamBuffer + 500
	for i := 0; i < count; i++ {
		source.Create(newMemoryObject(fmt.Sprintf("obj-%04d", i)))
	}

	var streams = make(chan informer.Stream, 1)
	go func() {
		stream, err := source.Watch(context.Background(), "0")
		assertions.NoError(err)
		streams <- stream
	}()

	var stream informer.Stream
	select {
	case stream = <-streams:

	case <-time.After(3 * time.Second):
		t.Fatal("watch did not return while replaying a large backlog")
	}
	defer stream.Stop()

	// The source must stay usable while the backlog is still in flight.
	_, _, err := source.List(context.Background())
	assertions.NoError(err)

	var events = collectEvents(stream, count, 10*time.Second)
	assertions.Len(events, count)
	assertions.Equal("1", events[0].Version)
	assertions.Equal(formatVersion(int64(count)), events[len(events)-1].Version)
}

func TestMemorySource_HistoryIsBounded(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	for i := 0; i < 2*memoryHistoryLimit; i++ {
		source.Update(newMemoryObject("a"))
	}

	_, err := source.Watch(context.Background(), "0")
	assertions.ErrorIs(err, informer.ErrVersionGone)

	// Tokens within the retained window still replay.
	stream, err := source.Watch(context.Background(), formatVersion(memoryHistoryLimit))
	assertions.NoError(err)
	stream.Stop()

	stream, err = source.Watch(context.Background(), source.Version())
	assertions.NoError(err)
	stream.Stop()
}

func TestMemorySource_WatchRejectsMalformedToken(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	_, err := source.Watch(context.Background(), "not-a-version")
	assertions.Error(err)
}

func TestMemorySource_CompactInvalidatesOldTokens(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	source.Create(newMemoryObject("a"))
	var oldVersion = source.Version()

	source.Create(newMemoryObject("b"))
	source.Compact()

	_, err := source.Watch(context.Background(), oldVersion)
	assertions.ErrorIs(err, informer.ErrVersionGone)

	// The current token survives compaction.
	stream, err := source.Watch(context.Background(), source.Version())
	assertions.NoError(err)
	stream.Stop()
}

func TestMemorySource_DropConnectionsClosesStreams(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	stream, err := source.Watch(context.Background(), "")
	assertions.NoError(err)

	source.DropConnections()

	select {
	case _, ok := <-stream.Events():
		assertions.False(ok)

	case <-time.After(time.Second):
		assertions.Fail("stream was not closed")
	}
}

func TestMemorySource_StopIsIdempotent(t *testing.T) {
	var assertions = assert.New(t)
	var source = NewMemorySource()

	stream, err := source.Watch(context.Background(), "")
	assertions.NoError(err)

	stream.Stop()
	stream.Stop()

	source.Create(newMemoryObject("a"))
	assertions.Equal("1", source.Version())
}
