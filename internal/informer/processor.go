// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ResourceEventHandler receives change notifications from an informer.
// Handlers must return quickly; their job is to enqueue a key, not to do
// the work. Handlers must not modify the objects they receive.
type ResourceEventHandler interface {
	OnAdd(obj *unstructured.Unstructured)
	OnUpdate(oldObj *unstructured.Unstructured, newObj *unstructured.Unstructured)
	OnDelete(obj *unstructured.Unstructured)
}

// ResourceEventHandlerFuncs adapts plain functions to ResourceEventHandler;
// nil members are skipped.
type ResourceEventHandlerFuncs struct {
	AddFunc    func(obj *unstructured.Unstructured)
	UpdateFunc func(oldObj *unstructured.Unstructured, newObj *unstructured.Unstructured)
	DeleteFunc func(obj *unstructured.Unstructured)
}

func (r ResourceEventHandlerFuncs) OnAdd(obj *unstructured.Unstructured) {
	if r.AddFunc != nil {
		r.AddFunc(obj)
	}
}

func (r ResourceEventHandlerFuncs) OnUpdate(oldObj *unstructured.Unstructured, newObj *unstructured.Unstructured) {
	if r.UpdateFunc != nil {
		r.UpdateFunc(oldObj, newObj)
	}
}

func (r ResourceEventHandlerFuncs) OnDelete(obj *unstructured.Unstructured) {
	if r.DeleteFunc != nil {
		r.DeleteFunc(obj)
	}
}

// Registration identifies one registered handler and is used to remove it.
type Registration struct {
	id string
}

type notification struct {
	oldObj *unstructured.Unstructured
	newObj *unstructured.Unstructured
	kind   DeltaKind
}

// processor fans notifications out to all registered listeners in
// registration order. Distribution never blocks: every listener owns an
// unbounded buffer drained by its own goroutine.
type processor struct {
	lock      sync.RWMutex
	listeners map[string]*listener
	order     []string
}

func newProcessor() *processor {
	return &processor{listeners: make(map[string]*listener)}
}

func (p *processor) addListener(handler ResourceEventHandler) *listener {
	p.lock.Lock()
	defer p.lock.Unlock()

	var l = newListener(uuid.NewString(), handler)
	p.listeners[l.id] = l
	p.order = append(p.order, l.id)
	go l.run()
	return l
}

func (p *processor) removeListener(id string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	l, ok := p.listeners[id]
	if !ok {
		return fmt.Errorf("no handler registered with id %s", id)
	}

	delete(p.listeners, id)
	for i, candidate := range p.order {
		if candidate == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	l.stop()
	return nil
}

func (p *processor) distribute(n notification) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	for _, id := range p.order {
		p.listeners[id].add(n)
	}
}

func (p *processor) stop() {
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, l := range p.listeners {
		l.stop()
	}
	p.listeners = make(map[string]*listener)
	p.order = nil
}

// listener buffers notifications for one handler and delivers them in order
// from a dedicated goroutine, isolating slow and panicking handlers from the
// distribution path.
type listener struct {
	id      string
	handler ResourceEventHandler

	lock    sync.Mutex
	cond    sync.Cond
	pending []notification
	stopped bool

	logger zerolog.Logger
}

func newListener(id string, handler ResourceEventHandler) *listener {
	l := &listener{
		id:      id,
		handler: handler,
		logger:  log.With().Str("handler", id).Logger(),
	}
	l.cond.L = &l.lock
	return l
}

func (l *listener) add(n notification) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.stopped {
		return
	}
	l.pending = append(l.pending, n)
	l.cond.Signal()
}

func (l *listener) stop() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stopped = true
	l.cond.Broadcast()
}

func (l *listener) run() {
	for {
		l.lock.Lock()
		for len(l.pending) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if len(l.pending) == 0 && l.stopped {
			l.lock.Unlock()
			return
		}
		var n = l.pending[0]
		l.pending = l.pending[1:]
		l.lock.Unlock()

		l.deliver(n)
	}
}

func (l *listener) deliver(n notification) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Fields(map[string]any{
				"panic": fmt.Sprintf("%+v", r),
			}).Msg("Event handler panicked!")
		}
	}()

	switch n.kind {
	case DeltaAdded:
		l.handler.OnAdd(n.newObj)
	case DeltaDeleted:
		l.handler.OnDelete(n.oldObj)
	default:
		l.handler.OnUpdate(n.oldObj, n.newObj)
	}
}
