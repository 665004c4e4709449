// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/magnetar-sync/magnetar/internal/informer"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	memoryStreamBuffer = 1024
	memoryHistoryLimit = 4096
)

// MemorySource is an in-process source backed by a plain map. Every mutation
// bumps a monotonic version counter and is recorded in a bounded history so
// watches can resume from an older token. Once the history outgrows its
// limit the oldest entries are discarded, and Compact drops it entirely;
// either way, resuming from a discarded token fails with ErrVersionGone.
// DropConnections force-closes all open streams. Compact and DropConnections
// exist to exercise the recovery paths of consumers.
type MemorySource struct {
	mu            sync.Mutex
	objects       map[string]*unstructured.Unstructured
	version       int64
	oldestVersion int64
	history       []informer.Event
	watchers      map[*memoryStream]struct{}
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		objects:  map[string]*unstructured.Unstructured{},
		watchers: map[*memoryStream]struct{}{},
	}
}

func (s *MemorySource) List(ctx context.Context) ([]*unstructured.Unstructured, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var objects = make([]*unstructured.Unstructured, 0, len(s.objects))
	for _, obj := range s.objects {
		objects = append(objects, obj.DeepCopy())
	}

	return objects, formatVersion(s.version), nil
}

func (s *MemorySource) Watch(ctx context.Context, fromVersion string) (informer.Stream, error) {
	from, err := parseVersion(fromVersion)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if from < s.oldestVersion {
		return nil, informer.ErrVersionGone
	}

	var stream = newMemoryStream(s)
	var backlog = s.historySince(from)
	s.watchers[stream] = struct{}{}

	go stream.pump(backlog)
	return stream, nil
}

// historySince returns a copy of all recorded events newer than the given
// version. Callers must hold s.mu.
func (s *MemorySource) historySince(from int64) []informer.Event {
	var events []informer.Event
	for _, event := range s.history {
		version, _ := parseVersion(event.Version)
		if version > from {
			events = append(events, event)
		}
	}
	return events
}

func (s *MemorySource) Create(obj *unstructured.Unstructured) {
	s.record(informer.Added, obj)
}

func (s *MemorySource) Update(obj *unstructured.Unstructured) {
	s.record(informer.Modified, obj)
}

func (s *MemorySource) Delete(obj *unstructured.Unstructured) {
	s.record(informer.Deleted, obj)
}

// Compact discards the event history. Watches resuming from a token older
// than the current version will be refused with ErrVersionGone.
func (s *MemorySource) Compact() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.oldestVersion = s.version
}

// DropConnections closes every open stream, simulating a network failure.
func (s *MemorySource) DropConnections() {
	s.mu.Lock()
	var watchers = make([]*memoryStream, 0, len(s.watchers))
	for stream := range s.watchers {
		watchers = append(watchers, stream)
	}
	s.mu.Unlock()

	for _, stream := range watchers {
		stream.Stop()
	}
}

// Version returns the current version token.
func (s *MemorySource) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return formatVersion(s.version)
}

func (s *MemorySource) record(eventType informer.EventType, obj *unstructured.Unstructured) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++

	obj = obj.DeepCopy()
	obj.SetResourceVersion(formatVersion(s.version))

	var key = informer.KeyOf(obj)
	if eventType == informer.Deleted {
		delete(s.objects, key)
	} else {
		s.objects[key] = obj
	}

	var event = informer.Event{
		Type:    eventType,
		Object:  obj,
		Version: formatVersion(s.version),
	}
	s.history = append(s.history, event)

	// Trim in blocks once the history doubles the limit.
	if len(s.history) >= 2*memoryHistoryLimit {
		var retained = s.history[len(s.history)-memoryHistoryLimit:]
		s.history = append([]informer.Event(nil), retained...)

		firstRetained, _ := parseVersion(s.history[0].Version)
		s.oldestVersion = firstRetained - 1
	}

	for stream := range s.watchers {
		if !stream.enqueue(event) {
			// The consumer stopped draining; drop the connection so it
			// reconnects instead of silently missing events.
			delete(s.watchers, stream)
			stream.close()
		}
	}
}

func (s *MemorySource) removeWatcher(stream *memoryStream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.watchers, stream)
}

// memoryStream hands events to its consumer through a dedicated pump
// goroutine, so neither replaying a backlog nor a slow consumer can ever
// stall the source itself.
type memoryStream struct {
	source *MemorySource
	events chan informer.Event
	inbox  []informer.Event
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newMemoryStream(source *MemorySource) *memoryStream {
	return &memoryStream{
		source: source,
		events: make(chan informer.Event),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *memoryStream) Events() <-chan informer.Event {
	return s.events
}

func (s *memoryStream) Stop() {
	s.source.removeWatcher(s)
	s.close()
}

// close releases the pump, which closes the events channel on its way out.
func (s *memoryStream) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// enqueue hands a live event to the pump. It reports false once the inbox
// exceeds the stream buffer, meaning the consumer stopped draining. Callers
// must hold the source lock.
func (s *memoryStream) enqueue(event informer.Event) bool {
	if len(s.inbox) >= memoryStreamBuffer {
		return false
	}

	s.inbox = append(s.inbox, event)
	select {
	case s.notify <- struct{}{}:

	default:
	}
	return true
}

// pump is the only goroutine sending on and closing the events channel. It
// delivers the replayed backlog first, then live events as they arrive.
func (s *memoryStream) pump(backlog []informer.Event) {
	defer close(s.events)

	for {
		for _, event := range backlog {
			select {
			case s.events <- event:

			case <-s.done:
				return
			}
		}

		select {
		case <-s.notify:
			backlog = s.takeInbox()

		case <-s.done:
			return
		}
	}
}

func (s *memoryStream) takeInbox() []informer.Event {
	s.source.mu.Lock()
	defer s.source.mu.Unlock()

	var events = s.inbox
	s.inbox = nil
	return events
}

func formatVersion(version int64) string {
	return strconv.FormatInt(version, 10)
}

func parseVersion(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}

	version, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed version token %q: %w", token, err)
	}
	return version, nil
}
