// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package workqueue

import "sync"

type GaugeMetric interface {
	Inc()
	Dec()
}

type CounterMetric interface {
	Inc()
}

type HistogramMetric interface {
	Observe(value float64)
}

// MetricsProvider creates the instruments for one named queue.
type MetricsProvider interface {
	NewDepthMetric(name string) GaugeMetric
	NewAddsMetric(name string) CounterMetric
	NewLatencyMetric(name string) HistogramMetric
	NewWorkDurationMetric(name string) HistogramMetric
	NewRetriesMetric(name string) CounterMetric
}

var (
	providerLock sync.Mutex
	provider     MetricsProvider = noopMetricsProvider{}
)

// SetMetricsProvider installs the provider used by queues created afterwards.
func SetMetricsProvider(p MetricsProvider) {
	providerLock.Lock()
	defer providerLock.Unlock()
	provider = p
}

func metricsProvider() MetricsProvider {
	providerLock.Lock()
	defer providerLock.Unlock()
	return provider
}

type noopMetric struct{}

func (noopMetric) Inc()            {}
func (noopMetric) Dec()            {}
func (noopMetric) Observe(float64) {}

type noopMetricsProvider struct{}

func (noopMetricsProvider) NewDepthMetric(string) GaugeMetric            { return noopMetric{} }
func (noopMetricsProvider) NewAddsMetric(string) CounterMetric           { return noopMetric{} }
func (noopMetricsProvider) NewLatencyMetric(string) HistogramMetric      { return noopMetric{} }
func (noopMetricsProvider) NewWorkDurationMetric(string) HistogramMetric { return noopMetric{} }
func (noopMetricsProvider) NewRetriesMetric(string) CounterMetric        { return noopMetric{} }
