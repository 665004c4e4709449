// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/magnetar-sync/magnetar/internal/workqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// WorkqueueMetricsProvider backs the work queue instruments with prometheus
// metrics, one time series per queue name.
type WorkqueueMetricsProvider struct {
	depth        *prometheus.GaugeVec
	adds         *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	workDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
}

func NewWorkqueueMetricsProvider() *WorkqueueMetricsProvider {
	var provider = &WorkqueueMetricsProvider{
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workqueue_depth",
			Help:      "Current number of items waiting in the queue",
		}, []string{"queue"}),
		adds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workqueue_adds_total",
			Help:      "Total number of items added to the queue",
		}, []string{"queue"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workqueue_queue_duration_seconds",
			Help:      "Time items spend waiting in the queue",
			Buckets:   prometheus.ExponentialBuckets(0.001, 10, 6),
		}, []string{"queue"}),
		workDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workqueue_work_duration_seconds",
			Help:      "Time items take to be processed",
			Buckets:   prometheus.ExponentialBuckets(0.001, 10, 6),
		}, []string{"queue"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workqueue_retries_total",
			Help:      "Total number of rate limited retries",
		}, []string{"queue"}),
	}

	for _, collector := range []prometheus.Collector{
		provider.depth, provider.adds, provider.latency, provider.workDuration, provider.retries,
	} {
		if err := registry.Register(collector); err != nil {
			log.Error().Err(err).Msg("Could not create workqueue metric")
		}
	}

	return provider
}

func (p *WorkqueueMetricsProvider) NewDepthMetric(name string) workqueue.GaugeMetric {
	return p.depth.WithLabelValues(name)
}

func (p *WorkqueueMetricsProvider) NewAddsMetric(name string) workqueue.CounterMetric {
	return p.adds.WithLabelValues(name)
}

func (p *WorkqueueMetricsProvider) NewLatencyMetric(name string) workqueue.HistogramMetric {
	return p.latency.WithLabelValues(name)
}

func (p *WorkqueueMetricsProvider) NewWorkDurationMetric(name string) workqueue.HistogramMetric {
	return p.workDuration.WithLabelValues(name)
}

func (p *WorkqueueMetricsProvider) NewRetriesMetric(name string) workqueue.CounterMetric {
	return p.retries.WithLabelValues(name)
}
