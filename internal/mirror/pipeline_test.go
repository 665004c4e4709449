// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package mirror

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/metrics"
	"github.com/magnetar-sync/magnetar/internal/sink"
	"github.com/magnetar-sync/magnetar/internal/source"
	"github.com/magnetar-sync/magnetar/internal/test"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	test.InstallLogRecorder()
	config.Current = test.CreateTestResourceConfig()

	code := m.Run()
	os.Exit(code)
}

func startPipeline(t *testing.T, memorySource *source.MemorySource, recordingSink *test.RecordingSink) *Pipeline {
	var pipeline = NewPipeline(memorySource, &config.Current.Resources[0], recordingSink)

	go pipeline.Start()
	t.Cleanup(pipeline.Stop)

	if !pipeline.WaitForSync() {
		t.Fatal("pipeline did not sync")
	}
	return pipeline
}

func TestPipeline_MirrorsInitialListing(t *testing.T) {
	var assertions = assert.New(t)

	var memorySource = source.NewMemorySource()
	memorySource.Create(test.CreateTestResource("a", "playground", nil))
	memorySource.Create(test.CreateTestResource("b", "playground", nil))

	var recordingSink = test.NewRecordingSink()
	var pipeline = startPipeline(t, memorySource, recordingSink)

	assertions.True(recordingSink.HasInitializedDataset)
	assertions.True(test.WaitFor(time.Second, func() bool {
		count, _ := recordingSink.Count(pipeline.Dataset())
		return count == 2
	}))

	obj, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
	assertions.NoError(err)
	assertions.Equal("a", obj.GetName())
}

func TestPipeline_MirrorsLiveChanges(t *testing.T) {
	var assertions = assert.New(t)

	var memorySource = source.NewMemorySource()
	var recordingSink = test.NewRecordingSink()
	var pipeline = startPipeline(t, memorySource, recordingSink)

	memorySource.Create(test.CreateTestResource("a", "playground", nil))

	assertions.True(test.WaitFor(time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err == nil
	}))

	memorySource.Update(test.CreateTestResource("a", "playground", map[string]string{"environment": "prod"}))

	assertions.True(test.WaitFor(time.Second, func() bool {
		obj, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err == nil && obj.GetLabels()["environment"] == "prod"
	}))

	memorySource.Delete(test.CreateTestResource("a", "playground", nil))

	assertions.True(test.WaitFor(time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err != nil
	}))
	assertions.GreaterOrEqual(recordingSink.Drops(), 1)
}

func TestPipeline_RetriesFailedApplies(t *testing.T) {
	var assertions = assert.New(t)

	var memorySource = source.NewMemorySource()
	var recordingSink = test.NewRecordingSink()
	recordingSink.FailNextApplies = 2

	var pipeline = startPipeline(t, memorySource, recordingSink)

	memorySource.Create(test.CreateTestResource("a", "playground", nil))

	assertions.True(test.WaitFor(2*time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err == nil
	}))
	assertions.GreaterOrEqual(recordingSink.Applies(), 3)
}

func TestDriftCheck_RestoresLostSinkEntries(t *testing.T) {
	var assertions = assert.New(t)

	var memorySource = source.NewMemorySource()
	memorySource.Create(test.CreateTestResource("a", "playground", nil))

	var recordingSink = test.NewRecordingSink()
	var pipeline = startPipeline(t, memorySource, recordingSink)

	assertions.True(test.WaitFor(time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err == nil
	}))

	// Somebody flushed the entry behind the pipeline's back.
	assertions.NoError(recordingSink.MemorySink.Drop(pipeline.Dataset(), test.CreateTestResource("a", "playground", nil)))

	pipeline.drift.Check()

	assertions.True(test.WaitFor(time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/a")
		return err == nil
	}))
}

func TestDriftCheck_ResyncsGauges(t *testing.T) {
	var assertions = assert.New(t)

	config.Current.Metrics.Enabled = true
	config.Current.Resources[0].Prometheus.Enabled = true
	t.Cleanup(func() {
		config.Current.Metrics.Enabled = false
		config.Current.Resources[0].Prometheus.Enabled = false
	})

	var memorySource = source.NewMemorySource()
	memorySource.Create(test.CreateTestResource("a", "playground", nil))
	memorySource.Create(test.CreateTestResource("b", "playground", nil))

	var recordingSink = test.NewRecordingSink()
	var pipeline = startPipeline(t, memorySource, recordingSink)

	assertions.True(test.WaitFor(time.Second, func() bool {
		count, _ := recordingSink.Count(pipeline.Dataset())
		return count == 2
	}))

	// A stale count, as left behind by a relist replaying add events.
	var gauge = metrics.GetOrCreate(pipeline.resourceConfig)
	gauge.With(prometheus.Labels{}).Add(40)

	pipeline.drift.Check()

	assertions.Equal(2.0, testutil.ToFloat64(gauge))
}

func TestDriftCheck_DropsExtraneousSinkEntries(t *testing.T) {
	var assertions = assert.New(t)

	var memorySource = source.NewMemorySource()
	var recordingSink = test.NewRecordingSink()
	var pipeline = startPipeline(t, memorySource, recordingSink)

	assertions.NoError(recordingSink.MemorySink.Apply(pipeline.Dataset(), test.CreateTestResource("orphan", "playground", nil)))

	pipeline.drift.Check()

	assertions.True(test.WaitFor(time.Second, func() bool {
		_, err := recordingSink.Read(pipeline.Dataset(), "playground/orphan")
		return errors.Is(err, sink.ErrResourceNotFound)
	}))
}
