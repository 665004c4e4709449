// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"time"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DriftCheck periodically compares the sink dataset against the local
// snapshot and re-queues every key that differs. It catches entries lost in
// the sink (flushes, evictions, manual deletes) that no watch event will
// ever repair, which is what keeps the mirror level-triggered rather than
// purely edge-triggered.
type DriftCheck struct {
	pipeline *Pipeline
	interval time.Duration
}

func NewDriftCheck(pipeline *Pipeline, interval time.Duration) *DriftCheck {
	return &DriftCheck{pipeline: pipeline, interval: interval}
}

func (d *DriftCheck) Run(stopChan <-chan struct{}) {
	if d.interval <= 0 {
		return
	}

	var ticker = time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Check()

		case <-stopChan:
			return
		}
	}
}

// Check re-queues all keys missing from or stale in the sink. Keys present
// in the sink but gone from the snapshot are re-queued as well so the
// worker drops them.
func (d *DriftCheck) Check() {
	if !d.pipeline.HasSynced() {
		return
	}

	var indexer = d.pipeline.Indexer()
	var dataset = d.pipeline.Dataset()

	if config.Current.Metrics.Enabled {
		metrics.SyncGauges(indexer.List())
	}

	sinkCount, err := d.pipeline.sink.Count(dataset)
	if err != nil {
		log.Error().Err(err).Fields(map[string]any{
			"cache": dataset,
		}).Msg("Could not get size of sink dataset")
		return
	}

	log.Debug().Fields(map[string]any{
		"cache":        dataset,
		"sinkSize":     sinkCount,
		"snapshotSize": indexer.Len(),
	}).Msg("Checking for dataset size mismatch...")

	sinkKeys, err := d.pipeline.sink.Keys(dataset)
	if err != nil {
		log.Error().Err(err).Fields(map[string]any{
			"cache": dataset,
		}).Msg("Could not retrieve sink keys")
		return
	}

	var drifted = d.generateDiff(indexer.ListKeys(), sinkKeys)
	if len(drifted) == 0 {
		return
	}

	log.Warn().Msgf("Identified %d drifted cache entries. Reprocessing...", len(drifted))
	for _, key := range drifted {
		d.pipeline.queue.Add(key)
		log.Warn().Fields(map[string]any{
			"cache": dataset,
			"key":   key,
		}).Msg("Restoring")
	}
}

// generateDiff returns the symmetric difference of the snapshot keys and
// the sink keys.
func (d *DriftCheck) generateDiff(snapshotKeys []string, sinkKeys []string) []string {
	var inSink = make(map[string]struct{}, len(sinkKeys))
	for _, key := range sinkKeys {
		inSink[key] = struct{}{}
	}

	var diff = make([]string, 0)
	for _, key := range snapshotKeys {
		if _, ok := inSink[key]; !ok {
			diff = append(diff, key)
		}
	}

	var inSnapshot = make(map[string]struct{}, len(snapshotKeys))
	for _, key := range snapshotKeys {
		inSnapshot[key] = struct{}{}
	}

	for _, key := range sinkKeys {
		if _, ok := inSnapshot[key]; !ok {
			diff = append(diff, key)
		}
	}

	return diff
}
