// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

var errStopRequested = errors.New("stop requested")

// Reflector keeps a logically continuous event stream flowing from a Source
// into a DeltaFIFO despite real disconnects. Each ListAndWatch cycle performs
// a full listing (reconciling the queue against it) and then watches from the
// listing's version token; transient watch failures resume from the last
// processed token, a compacted token forces the next full listing.
type Reflector struct {
	name         string
	source       Source
	queue        *DeltaFIFO
	resyncPeriod time.Duration

	backoffManager         wait.BackoffManager
	initConnBackoffManager wait.BackoffManager

	lastSyncVersion      string
	lastSyncVersionMutex sync.RWMutex

	logger zerolog.Logger
}

func NewReflector(name string, source Source, queue *DeltaFIFO, resyncPeriod time.Duration) *Reflector {
	var realClock = &clock.RealClock{}
	return &Reflector{
		name:                   name,
		source:                 source,
		queue:                  queue,
		resyncPeriod:           resyncPeriod,
		backoffManager:         wait.NewExponentialBackoffManager(800*time.Millisecond, 30*time.Second, 2*time.Minute, 2.0, 1.0, realClock),
		initConnBackoffManager: wait.NewExponentialBackoffManager(800*time.Millisecond, 30*time.Second, 2*time.Minute, 2.0, 1.0, realClock),
		logger:                 log.With().Str("reflector", name).Logger(),
	}
}

// Run repeats ListAndWatch with capped exponential backoff until stopCh is
// closed. Transient errors never terminate the reflector.
func (r *Reflector) Run(stopCh <-chan struct{}) {
	r.logger.Debug().Msg("Starting reflector")
	wait.BackoffUntil(func() {
		if err := r.ListAndWatch(stopCh); err != nil && !errors.Is(err, errStopRequested) {
			r.logger.Warn().Err(err).Msg("ListAndWatch failed, backing off before relisting")
		}
	}, r.backoffManager, true, stopCh)
	r.logger.Debug().Msg("Reflector stopped")
}

// ListAndWatch lists all objects, reconciles the delta queue against the
// listing and then consumes the watch stream until stop or an error that
// requires a fresh listing.
func (r *Reflector) ListAndWatch(stopCh <-chan struct{}) error {
	ctx, cancel := contextForChannel(stopCh)
	defer cancel()

	objects, version, err := r.source.List(ctx)
	if err != nil {
		return err
	}

	r.queue.Replace(objects)
	r.setLastSyncVersion(version)
	r.logger.Debug().Int("objects", len(objects)).Str("version", version).Msg("Initial listing complete")

	cancelCh := make(chan struct{})
	defer close(cancelCh)
	if r.resyncPeriod > 0 {
		go r.resyncLoop(stopCh, cancelCh)
	}

	for {
		select {
		case <-stopCh:
			return errStopRequested
		default:
		}

		stream, err := r.source.Watch(ctx, r.LastSyncVersion())
		if err != nil {
			if errors.Is(err, ErrVersionGone) {
				r.logger.Info().Str("version", r.LastSyncVersion()).Msg("Version token expired, relisting")
				return err
			}
			// Connection-level failure: back off, then resume from the
			// cursor without discarding local state.
			r.logger.Warn().Err(err).Msg("Could not open watch, retrying")
			select {
			case <-stopCh:
				return errStopRequested
			case <-r.initConnBackoffManager.Backoff().C():
			}
			continue
		}

		if err := r.watchHandler(stream, stopCh); err != nil {
			return err
		}
		// Clean end of stream: reopen from the last processed token.
	}
}

// watchHandler drains one watch session. A nil return means the stream ended
// cleanly and should be reopened from the cursor.
func (r *Reflector) watchHandler(stream Stream, stopCh <-chan struct{}) error {
	defer stream.Stop()

	for {
		select {
		case <-stopCh:
			return errStopRequested

		case event, ok := <-stream.Events():
			if !ok {
				return nil
			}

			switch event.Type {
			case Added:
				r.queue.Add(event.Object)
			case Modified:
				r.queue.Update(event.Object)
			case Deleted:
				r.queue.Delete(event.Object)
			case Error:
				if errors.Is(event.Err, ErrVersionGone) {
					r.logger.Info().Msg("Watch reported expired version token, relisting")
					return event.Err
				}
				r.logger.Warn().Err(event.Err).Msg("Watch reported an error, reopening")
				return nil
			default:
				r.logger.Warn().Str("type", string(event.Type)).Msg("Dropping event of unknown type")
				continue
			}

			if event.Version != "" {
				r.setLastSyncVersion(event.Version)
			}
		}
	}
}

// resyncLoop re-delivers the stored state as Updated deltas on a fixed
// interval, implementing level-triggered reconciliation. It lives for one
// ListAndWatch cycle.
func (r *Reflector) resyncLoop(stopCh <-chan struct{}, cancelCh <-chan struct{}) {
	ticker := time.NewTicker(r.resyncPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-cancelCh:
			return
		case <-ticker.C:
			r.logger.Debug().Msg("Resyncing stored objects")
			r.queue.Resync()
		}
	}
}

func (r *Reflector) LastSyncVersion() string {
	r.lastSyncVersionMutex.RLock()
	defer r.lastSyncVersionMutex.RUnlock()
	return r.lastSyncVersion
}

func (r *Reflector) setLastSyncVersion(version string) {
	r.lastSyncVersionMutex.Lock()
	defer r.lastSyncVersionMutex.Unlock()
	r.lastSyncVersion = version
}

func contextForChannel(stopCh <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
