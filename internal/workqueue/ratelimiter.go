// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package workqueue

import (
	"math"
	"sync"
	"time"
)

// RateLimiter decides how long an item has to wait before it may be
// processed again.
type RateLimiter interface {
	// When returns the delay for the item and counts the failure.
	When(item string) time.Duration
	// Forget clears the failure history of the item.
	Forget(item string)
	// NumRequeues returns how often the item failed since the last Forget.
	NumRequeues(item string) int
}

// NewItemExponentialFailureRateLimiter doubles the delay per failure,
// starting at baseDelay and capping at maxDelay.
func NewItemExponentialFailureRateLimiter(baseDelay time.Duration, maxDelay time.Duration) RateLimiter {
	return &itemExponentialFailureRateLimiter{
		failures:  map[string]int{},
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// DefaultItemRateLimiter uses the well-proven 5ms..1000s window.
func DefaultItemRateLimiter() RateLimiter {
	return NewItemExponentialFailureRateLimiter(5*time.Millisecond, 1000*time.Second)
}

type itemExponentialFailureRateLimiter struct {
	failuresLock sync.Mutex
	failures     map[string]int

	baseDelay time.Duration
	maxDelay  time.Duration
}

func (r *itemExponentialFailureRateLimiter) When(item string) time.Duration {
	r.failuresLock.Lock()
	defer r.failuresLock.Unlock()

	exp := r.failures[item]
	r.failures[item] = exp + 1

	backoff := float64(r.baseDelay.Nanoseconds()) * math.Pow(2, float64(exp))
	if backoff > math.MaxInt64 || time.Duration(backoff) > r.maxDelay {
		return r.maxDelay
	}
	return time.Duration(backoff)
}

func (r *itemExponentialFailureRateLimiter) Forget(item string) {
	r.failuresLock.Lock()
	defer r.failuresLock.Unlock()
	delete(r.failures, item)
}

func (r *itemExponentialFailureRateLimiter) NumRequeues(item string) int {
	r.failuresLock.Lock()
	defer r.failuresLock.Unlock()
	return r.failures[item]
}
