// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package workqueue provides deduplicating, delayable, rate-limited queues
// of object keys. A key present in the queue or currently being processed is
// never queued twice; re-adds during processing are remembered and replayed
// exactly once after Done.
package workqueue

import (
	"sync"
	"time"
)

type Interface interface {
	Add(item string)
	Len() int
	Get() (item string, shutdown bool)
	Done(item string)
	ShutDown()
	ShuttingDown() bool
}

// New returns a named deduplicating queue.
func New(name string) *Type {
	var p = metricsProvider()
	t := &Type{
		dirty:          set{},
		processing:     set{},
		addTimes:       map[string]time.Time{},
		startTimes:     map[string]time.Time{},
		depthMetric:    p.NewDepthMetric(name),
		addsMetric:     p.NewAddsMetric(name),
		latencyMetric:  p.NewLatencyMetric(name),
		durationMetric: p.NewWorkDurationMetric(name),
	}
	t.cond.L = &t.lock
	return t
}

type set map[string]struct{}

func (s set) has(item string) bool {
	_, exists := s[item]
	return exists
}

func (s set) insert(item string) {
	s[item] = struct{}{}
}

func (s set) delete(item string) {
	delete(s, item)
}

// Type is the reference Interface implementation. The invariant maintained
// under its single lock: queue ∩ processing = ∅ and queue ⊆ dirty.
type Type struct {
	lock sync.Mutex
	cond sync.Cond

	queue []string

	// dirty holds keys that need processing; processing holds keys being
	// worked on. A key in both is re-queued by Done.
	dirty      set
	processing set

	shuttingDown bool

	addTimes   map[string]time.Time
	startTimes map[string]time.Time

	depthMetric    GaugeMetric
	addsMetric     CounterMetric
	latencyMetric  HistogramMetric
	durationMetric HistogramMetric
}

// Add marks item as needing processing. It is a no-op when the item is
// already queued; during processing it only marks the item dirty again.
func (q *Type) Add(item string) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.shuttingDown {
		return
	}
	if q.dirty.has(item) {
		return
	}

	q.addsMetric.Inc()
	q.dirty.insert(item)
	if q.processing.has(item) {
		return
	}

	if _, exists := q.addTimes[item]; !exists {
		q.addTimes[item] = time.Now()
	}
	q.queue = append(q.queue, item)
	q.depthMetric.Inc()
	q.cond.Signal()
}

func (q *Type) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.queue)
}

// Get blocks until an item is available or the queue shuts down. The caller
// must call Done when processing finishes.
func (q *Type) Get() (item string, shutdown bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		q.cond.Wait()
	}
	if len(q.queue) == 0 {
		return "", true
	}

	item = q.queue[0]
	q.queue = q.queue[1:]
	q.depthMetric.Dec()

	if addTime, ok := q.addTimes[item]; ok {
		q.latencyMetric.Observe(time.Since(addTime).Seconds())
		delete(q.addTimes, item)
	}
	q.startTimes[item] = time.Now()

	q.processing.insert(item)
	q.dirty.delete(item)

	return item, false
}

// Done marks item as processed. If it was marked dirty again while being
// processed, it is re-queued immediately.
func (q *Type) Done(item string) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if startTime, ok := q.startTimes[item]; ok {
		q.durationMetric.Observe(time.Since(startTime).Seconds())
		delete(q.startTimes, item)
	}

	q.processing.delete(item)
	if q.dirty.has(item) {
		q.addTimes[item] = time.Now()
		q.queue = append(q.queue, item)
		q.depthMetric.Inc()
		q.cond.Signal()
	}
}

// ShutDown causes pending Get calls to return shutdown=true. Items already
// handed out may still be completed with Done.
func (q *Type) ShutDown() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

func (q *Type) ShuttingDown() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.shuttingDown
}
