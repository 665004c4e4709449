// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package workqueue

type RateLimitingInterface interface {
	DelayingInterface
	// AddRateLimited re-adds the item after the rate limiter's backoff.
	AddRateLimited(item string)
	// Forget ends the item's retry tracking; the next failure starts over
	// at the base delay.
	Forget(item string)
	NumRequeues(item string) int
}

// NewRateLimiting returns a named queue with per-item retry backoff.
func NewRateLimiting(name string, rateLimiter RateLimiter) RateLimitingInterface {
	return &rateLimitingType{
		DelayingInterface: NewDelaying(name),
		rateLimiter:       rateLimiter,
		retriesMetric:     metricsProvider().NewRetriesMetric(name),
	}
}

type rateLimitingType struct {
	DelayingInterface

	rateLimiter   RateLimiter
	retriesMetric CounterMetric
}

func (q *rateLimitingType) AddRateLimited(item string) {
	q.retriesMetric.Inc()
	q.AddAfter(item, q.rateLimiter.When(item))
}

func (q *rateLimitingType) Forget(item string) {
	q.rateLimiter.Forget(item)
}

func (q *rateLimitingType) NumRequeues(item string) int {
	return q.rateLimiter.NumRequeues(item)
}
