// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SharedInformer ties a Reflector, a DeltaFIFO and an Indexer together and
// fans every popped delta out to any number of registered event handlers.
// The single pop loop applies each delta to the Indexer before notifying
// handlers, so handlers always observe a store state at least as new as the
// notification they are processing.
type SharedInformer struct {
	name string

	indexer   *Indexer
	queue     *DeltaFIFO
	reflector *Reflector
	processor *processor

	// blockDeltas serializes handler registration with delta processing so
	// that snapshot replay for late handlers neither misses nor duplicates a
	// live delta.
	blockDeltas sync.Mutex

	started     bool
	startedLock sync.Mutex

	logger zerolog.Logger
}

func NewSharedInformer(name string, source Source, resyncPeriod time.Duration, indexers Indexers) *SharedInformer {
	var indexer = NewIndexer(indexers)
	var queue = NewDeltaFIFO(indexer)

	return &SharedInformer{
		name:      name,
		indexer:   indexer,
		queue:     queue,
		reflector: NewReflector(name, source, queue, resyncPeriod),
		processor: newProcessor(),
		logger:    log.With().Str("informer", name).Logger(),
	}
}

// Run starts the reflector and processes deltas until stopCh is closed.
// Run blocks; call via go.
func (s *SharedInformer) Run(stopCh <-chan struct{}) {
	s.startedLock.Lock()
	if s.started {
		s.startedLock.Unlock()
		s.logger.Error().Msg("Informer was started twice!")
		return
	}
	s.started = true
	s.startedLock.Unlock()

	go func() {
		<-stopCh
		s.queue.Close()
	}()
	go s.reflector.Run(stopCh)

	defer s.processor.stop()

	for {
		key, delta, err := s.queue.Pop()
		if err != nil {
			if !errors.Is(err, ErrQueueClosed) {
				s.logger.Error().Err(err).Msg("Delta queue failed!")
			}
			return
		}
		s.processDelta(key, delta)
	}
}

func (s *SharedInformer) processDelta(key string, delta Delta) {
	s.blockDeltas.Lock()
	defer s.blockDeltas.Unlock()

	switch delta.Kind {
	case DeltaDeleted:
		old, known := s.indexer.GetByKey(key)
		if !known {
			old = delta.Object
		}
		s.indexer.Delete(key)
		s.processor.distribute(notification{kind: DeltaDeleted, oldObj: old})

	default:
		old, known := s.indexer.GetByKey(key)
		s.indexer.Update(key, delta.Object)
		if known {
			s.processor.distribute(notification{kind: DeltaUpdated, oldObj: old, newObj: delta.Object})
		} else {
			s.processor.distribute(notification{kind: DeltaAdded, newObj: delta.Object})
		}
	}
}

// AddEventHandler registers a handler at any time. Handlers registered after
// startup are first replayed the current store content as synthetic adds,
// atomically with respect to live delta processing.
func (s *SharedInformer) AddEventHandler(handler ResourceEventHandler) Registration {
	s.blockDeltas.Lock()
	defer s.blockDeltas.Unlock()

	var l = s.processor.addListener(handler)
	for _, obj := range s.indexer.List() {
		l.add(notification{kind: DeltaAdded, newObj: obj})
	}
	return Registration{id: l.id}
}

// RemoveEventHandler unregisters a handler; buffered notifications for it
// are still delivered.
func (s *SharedInformer) RemoveEventHandler(registration Registration) error {
	s.blockDeltas.Lock()
	defer s.blockDeltas.Unlock()
	return s.processor.removeListener(registration.id)
}

// HasSynced reports whether the initial listing has been fully processed.
func (s *SharedInformer) HasSynced() bool {
	return s.queue.HasSynced()
}

// WaitForSync blocks until the initial listing is processed or stopCh closes.
func (s *SharedInformer) WaitForSync(stopCh <-chan struct{}) bool {
	for {
		if s.HasSynced() {
			return true
		}
		select {
		case <-stopCh:
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *SharedInformer) GetIndexer() *Indexer {
	return s.indexer
}

// QueueLen exposes the number of pending deltas for observability.
func (s *SharedInformer) QueueLen() int {
	return s.queue.Len()
}

// LastSyncVersion returns the last version token processed by the reflector.
func (s *SharedInformer) LastSyncVersion() string {
	return s.reflector.LastSyncVersion()
}
