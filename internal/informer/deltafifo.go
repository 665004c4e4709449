// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"errors"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type DeltaKind string

const (
	DeltaAdded    DeltaKind = "added"
	DeltaUpdated  DeltaKind = "updated"
	DeltaDeleted  DeltaKind = "deleted"
	DeltaReplaced DeltaKind = "replaced"
)

// Delta is one pending change for a key. Multiple changes arriving for a key
// that has not been popped yet compact into a single Delta carrying the most
// recent payload.
type Delta struct {
	Kind       DeltaKind
	Object     *unstructured.Unstructured
	EnqueuedAt time.Time
}

// KeyLister is the view of already-delivered state the queue consults while
// compacting and resyncing. It is satisfied by the Indexer.
type KeyLister interface {
	ListKeys() []string
	GetByKey(key string) (*unstructured.Unstructured, bool)
}

var ErrQueueClosed = errors.New("delta queue is closed")

// DeltaFIFO is an ordered, per-key compacting queue of deltas. Keys pop in
// first-arrival order; a key pushed again after being popped goes to the back.
type DeltaFIFO struct {
	lock sync.Mutex
	cond sync.Cond

	items map[string]Delta
	queue []string

	knownObjects KeyLister

	populated              bool
	initialPopulationCount int
	closed                 bool
}

func NewDeltaFIFO(knownObjects KeyLister) *DeltaFIFO {
	f := &DeltaFIFO{
		items:        make(map[string]Delta),
		queue:        make([]string, 0),
		knownObjects: knownObjects,
	}
	f.cond.L = &f.lock
	return f
}

func (f *DeltaFIFO) Add(obj *unstructured.Unstructured) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.populated = true
	f.queueDelta(KeyOf(obj), Delta{Kind: DeltaAdded, Object: obj, EnqueuedAt: time.Now()})
}

func (f *DeltaFIFO) Update(obj *unstructured.Unstructured) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.populated = true
	f.queueDelta(KeyOf(obj), Delta{Kind: DeltaUpdated, Object: obj, EnqueuedAt: time.Now()})
}

func (f *DeltaFIFO) Delete(obj *unstructured.Unstructured) {
	var key = KeyOf(obj)

	f.lock.Lock()
	defer f.lock.Unlock()
	f.populated = true

	if _, pending := f.items[key]; !pending {
		if _, known := f.knownObjects.GetByKey(key); !known {
			// Deletion of something nobody has ever seen is a no-op.
			return
		}
	}

	f.queueDelta(key, Delta{Kind: DeltaDeleted, Object: obj, EnqueuedAt: time.Now()})
}

// Replace reconciles the queue against a complete listing: every listed
// object is queued as Replaced and a Deleted delta is synthesized for every
// known or pending key absent from the listing. The first Replace defines
// the initial population used by HasSynced.
func (f *DeltaFIFO) Replace(objects []*unstructured.Unstructured) {
	f.lock.Lock()
	defer f.lock.Unlock()

	var listed = make(map[string]bool, len(objects))
	var now = time.Now()

	for _, obj := range objects {
		var key = KeyOf(obj)
		listed[key] = true
		f.queueDelta(key, Delta{Kind: DeltaReplaced, Object: obj, EnqueuedAt: now})
	}

	for _, key := range f.knownObjects.ListKeys() {
		if listed[key] {
			continue
		}
		obj, _ := f.knownObjects.GetByKey(key)
		f.queueDelta(key, Delta{Kind: DeltaDeleted, Object: obj, EnqueuedAt: now})
	}

	for key, item := range f.items {
		if listed[key] || item.Kind == DeltaDeleted {
			continue
		}
		if _, known := f.knownObjects.GetByKey(key); known {
			continue
		}
		// Pending but never delivered and not listed anymore.
		f.queueDelta(key, Delta{Kind: DeltaDeleted, Object: item.Object, EnqueuedAt: now})
	}

	if !f.populated {
		f.populated = true
		f.initialPopulationCount = len(f.queue)
	}
}

// Resync queues an Updated delta for every known key that has no pending
// delta, re-delivering the stored state to all consumers.
func (f *DeltaFIFO) Resync() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, key := range f.knownObjects.ListKeys() {
		if _, pending := f.items[key]; pending {
			continue
		}
		obj, ok := f.knownObjects.GetByKey(key)
		if !ok {
			continue
		}
		f.queueDelta(key, Delta{Kind: DeltaUpdated, Object: obj, EnqueuedAt: time.Now()})
	}
}

// Pop blocks until a delta is available and returns the oldest pending key
// together with its compacted delta. It returns ErrQueueClosed after Close
// once the queue has drained.
func (f *DeltaFIFO) Pop() (string, Delta, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for len(f.queue) == 0 {
		if f.closed {
			return "", Delta{}, ErrQueueClosed
		}
		f.cond.Wait()
	}

	var key = f.queue[0]
	f.queue = f.queue[1:]

	var item = f.items[key]
	delete(f.items, key)

	if f.initialPopulationCount > 0 {
		f.initialPopulationCount--
	}

	return key, item, nil
}

// HasSynced reports whether the first Replace has happened and all of its
// deltas have been popped.
func (f *DeltaFIFO) HasSynced() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.populated && f.initialPopulationCount == 0
}

func (f *DeltaFIFO) Len() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.queue)
}

func (f *DeltaFIFO) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// queueDelta must be called with the lock held.
func (f *DeltaFIFO) queueDelta(key string, delta Delta) {
	existing, pending := f.items[key]
	if !pending {
		f.queue = append(f.queue, key)
		f.items[key] = delta
		f.cond.Broadcast()
		return
	}

	_, observed := f.knownObjects.GetByKey(key)
	merged, keep := coalesce(existing, delta, observed)
	if !keep {
		delete(f.items, key)
		for i, queued := range f.queue {
			if queued == key {
				f.queue = append(f.queue[:i], f.queue[i+1:]...)
				break
			}
		}
		return
	}

	f.items[key] = merged
	f.cond.Broadcast()
}

// coalesce merges a newly arriving delta into the pending one for the same
// key. Kind merge rules:
//
//	Added    + Updated/Replaced -> Added (final payload, consumers still see one add)
//	Added    + Deleted          -> dropped if never observed, Deleted otherwise
//	Updated  + Deleted          -> Deleted
//	Updated  + Replaced         -> Replaced
//	Deleted  + Added            -> Updated (delete and recreate collapse)
//	Replaced + any state        -> Replaced
//
// The payload is always the most recent one; EnqueuedAt keeps first arrival.
func coalesce(existing Delta, incoming Delta, observed bool) (Delta, bool) {
	var merged = Delta{Object: incoming.Object, EnqueuedAt: existing.EnqueuedAt}

	if incoming.Kind == DeltaDeleted {
		if existing.Kind == DeltaAdded && !observed {
			return Delta{}, false
		}
		merged.Kind = DeltaDeleted
		merged.Object = incoming.Object
		return merged, true
	}

	switch existing.Kind {
	case DeltaAdded:
		merged.Kind = DeltaAdded
	case DeltaDeleted:
		merged.Kind = DeltaUpdated
	case DeltaReplaced:
		merged.Kind = DeltaReplaced
	default:
		if incoming.Kind == DeltaReplaced {
			merged.Kind = DeltaReplaced
		} else {
			merged.Kind = DeltaUpdated
		}
	}

	return merged, true
}
