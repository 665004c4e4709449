// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package workqueue

import (
	"container/heap"
	"sync"
	"time"
)

type DelayingInterface interface {
	Interface
	// AddAfter adds an item to the queue after the given duration.
	AddAfter(item string, duration time.Duration)
}

// NewDelaying returns a named queue supporting delayed adds.
func NewDelaying(name string) DelayingInterface {
	q := &delayingType{
		Type:            New(name),
		stopCh:          make(chan struct{}),
		waitingForAddCh: make(chan *waitFor, 1000),
	}
	go q.waitingLoop()
	return q
}

type delayingType struct {
	*Type

	stopCh   chan struct{}
	stopOnce sync.Once

	waitingForAddCh chan *waitFor
}

type waitFor struct {
	item    string
	readyAt time.Time
	index   int
}

func (q *delayingType) AddAfter(item string, duration time.Duration) {
	if q.ShuttingDown() {
		return
	}

	if duration <= 0 {
		q.Add(item)
		return
	}

	select {
	case <-q.stopCh:
	case q.waitingForAddCh <- &waitFor{item: item, readyAt: time.Now().Add(duration)}:
	}
}

func (q *delayingType) ShutDown() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.Type.ShutDown()
}

// maxWait bounds how long the loop sleeps when nothing is pending, keeping
// it responsive to clock anomalies.
const maxWait = 10 * time.Second

func (q *delayingType) waitingLoop() {
	var never <-chan time.Time

	waiting := &waitForPriorityQueue{}
	heap.Init(waiting)
	waitingEntryByItem := map[string]*waitFor{}

	for {
		if q.ShuttingDown() {
			return
		}

		now := time.Now()

		for waiting.Len() > 0 {
			entry := waiting.Peek()
			if entry.readyAt.After(now) {
				break
			}
			entry = heap.Pop(waiting).(*waitFor)
			q.Add(entry.item)
			delete(waitingEntryByItem, entry.item)
		}

		nextReady := never
		var timer *time.Timer
		if waiting.Len() > 0 {
			timer = time.NewTimer(time.Until(waiting.Peek().readyAt))
			nextReady = timer.C
		} else {
			timer = time.NewTimer(maxWait)
			nextReady = timer.C
		}

		select {
		case <-q.stopCh:
			timer.Stop()
			return

		case <-nextReady:

		case entry := <-q.waitingForAddCh:
			timer.Stop()
			if entry.readyAt.After(time.Now()) {
				insert(waiting, waitingEntryByItem, entry)
			} else {
				q.Add(entry.item)
			}

			// Drain whatever else queued up meanwhile.
			drained := false
			for !drained {
				select {
				case entry := <-q.waitingForAddCh:
					if entry.readyAt.After(time.Now()) {
						insert(waiting, waitingEntryByItem, entry)
					} else {
						q.Add(entry.item)
					}
				default:
					drained = true
				}
			}
		}
	}
}

// insert adds the entry, keeping only the earliest deadline per item.
func insert(waiting *waitForPriorityQueue, known map[string]*waitFor, entry *waitFor) {
	existing, exists := known[entry.item]
	if exists {
		if existing.readyAt.After(entry.readyAt) {
			existing.readyAt = entry.readyAt
			heap.Fix(waiting, existing.index)
		}
		return
	}

	heap.Push(waiting, entry)
	known[entry.item] = entry
}

type waitForPriorityQueue []*waitFor

func (pq waitForPriorityQueue) Len() int {
	return len(pq)
}

func (pq waitForPriorityQueue) Less(i, j int) bool {
	return pq[i].readyAt.Before(pq[j].readyAt)
}

func (pq waitForPriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *waitForPriorityQueue) Push(x any) {
	entry := x.(*waitFor)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *waitForPriorityQueue) Pop() any {
	n := len(*pq)
	entry := (*pq)[n-1]
	entry.index = -1
	*pq = (*pq)[:n-1]
	return entry
}

func (pq waitForPriorityQueue) Peek() *waitFor {
	return pq[0]
}
