// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"testing"
	"time"

	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/watch"
)

func TestKubernetesStream_DeliversTranslatedEvents(t *testing.T) {
	var assertions = assert.New(t)
	var watcher = watch.NewFakeWithChanSize(2, false)
	var stream = newKubernetesStream(watcher)
	go stream.translate()
	defer stream.Stop()

	watcher.Add(newMemoryObject("a"))
	watcher.Delete(newMemoryObject("a"))

	var events = collectEvents(stream, 2, time.Second)
	assertions.Len(events, 2)
	assertions.Equal(informer.Added, events[0].Type)
	assertions.Equal("a", events[0].Object.GetName())
	assertions.Equal(informer.Deleted, events[1].Type)
}

func TestKubernetesStream_StopReleasesUndrainedStream(t *testing.T) {
	var assertions = assert.New(t)
	var watcher = watch.NewFakeWithChanSize(2, false)
	var stream = newKubernetesStream(watcher)
	go stream.translate()

	// Nobody is receiving, so translate blocks handing over the first event.
	watcher.Add(newMemoryObject("a"))
	watcher.Add(newMemoryObject("b"))
	time.Sleep(50 * time.Millisecond)

	stream.Stop()

	var deadline = time.After(time.Second)
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				return
			}

		case <-deadline:
			assertions.Fail("stream was not closed after stop")
			return
		}
	}
}

func TestKubernetesStream_StopIsIdempotent(t *testing.T) {
	var watcher = watch.NewFakeWithChanSize(1, false)
	var stream = newKubernetesStream(watcher)
	go stream.translate()

	stream.Stop()
	stream.Stop()
}
