// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/magnetar-sync/magnetar/internal/workqueue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Reconciler is the controller-supplied reconciliation function. It must be
// idempotent, safe to call concurrently for different keys and repeatedly
// for the same key, and must treat an absent object as a valid terminal
// state rather than an error.
type Reconciler interface {
	Reconcile(ctx context.Context, key string) error
}

// Func adapts a plain function to Reconciler.
type Func func(ctx context.Context, key string) error

func (f Func) Reconcile(ctx context.Context, key string) error {
	return f(ctx, key)
}

// Pool drains a rate limited queue with a fixed number of workers. Failed
// keys are re-queued with exponential backoff, successful keys have their
// backoff history cleared. Per-key serialization comes from the queue's
// in-flight tracking; the pool holds no locks around Reconcile.
type Pool struct {
	name       string
	queue      workqueue.RateLimitingInterface
	reconciler Reconciler
	workers    int
	logger     zerolog.Logger
}

func NewPool(name string, queue workqueue.RateLimitingInterface, reconciler Reconciler, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		name:       name,
		queue:      queue,
		reconciler: reconciler,
		workers:    workers,
		logger:     log.With().Str("pool", name).Logger(),
	}
}

// Run blocks until the context is cancelled and all workers have drained.
func (p *Pool) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.queue.ShutDown()
	}()

	p.logger.Debug().Int("workers", p.workers).Msg("Starting workers")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait.Until(func() { p.runWorker(ctx) }, time.Second, ctx.Done())
		}()
	}
	wg.Wait()

	p.logger.Debug().Msg("All workers stopped")
}

func (p *Pool) runWorker(ctx context.Context) {
	for p.processNextItem(ctx) {
	}
}

func (p *Pool) processNextItem(ctx context.Context) bool {
	key, shutdown := p.queue.Get()
	if shutdown {
		return false
	}
	defer p.queue.Done(key)

	if err := p.reconciler.Reconcile(ctx, key); err != nil {
		p.logger.Warn().Err(err).Fields(map[string]any{
			"key":      key,
			"requeues": p.queue.NumRequeues(key),
		}).Msg("Reconcile failed, requeueing with backoff")
		p.queue.AddRateLimited(key)
		return true
	}

	p.queue.Forget(key)
	return true
}
