// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/metrics"
	"github.com/magnetar-sync/magnetar/internal/sink"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/magnetar-sync/magnetar/internal/worker"
	"github.com/magnetar-sync/magnetar/internal/workqueue"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Pipeline mirrors one resource into the sink. It runs a shared informer
// over the source, folds every change into a key queue and lets a worker
// pool reconcile the sink against the local snapshot. A key whose object is
// present in the snapshot is applied, a key whose object is gone is dropped;
// the snapshot is always the single source of truth, so replaying a key is
// harmless.
type Pipeline struct {
	resourceConfig *config.Resource
	dataset        string
	sink           sink.Sink
	informer       *informer.SharedInformer
	queue          workqueue.RateLimitingInterface
	pool           *worker.Pool
	drift          *DriftCheck
	stopChan       chan struct{}
}

func NewPipeline(source informer.Source, resourceConfig *config.Resource, dataSink sink.Sink) *Pipeline {
	var dataset = resourceConfig.GetCacheName()

	var indexers = informer.Indexers{}
	for _, index := range resourceConfig.Indexes {
		indexers[index.Name] = informer.NestedFieldIndexFunc(index.Field)
	}

	var rateLimiter = workqueue.NewItemExponentialFailureRateLimiter(
		config.Current.Pipeline.RetryBaseDelay,
		config.Current.Pipeline.RetryMaxDelay,
	)

	var pipeline = &Pipeline{
		resourceConfig: resourceConfig,
		dataset:        dataset,
		sink:           dataSink,
		informer:       informer.NewSharedInformer(dataset, source, config.Current.ReSyncPeriod, indexers),
		queue:          workqueue.NewRateLimiting(dataset, rateLimiter),
		stopChan:       make(chan struct{}),
	}
	pipeline.pool = worker.NewPool(dataset, pipeline.queue, worker.Func(pipeline.reconcile), config.Current.Pipeline.Workers)
	pipeline.drift = NewDriftCheck(pipeline, config.Current.Pipeline.DriftCheckInterval)

	pipeline.informer.AddEventHandler(informer.ResourceEventHandlerFuncs{
		AddFunc:    pipeline.add,
		UpdateFunc: pipeline.update,
		DeleteFunc: pipeline.delete,
	})

	return pipeline
}

func (p *Pipeline) add(obj *unstructured.Unstructured) {
	p.queue.Add(informer.KeyOf(obj))

	if config.Current.Metrics.Enabled && p.resourceConfig.Prometheus.Enabled {
		var labels = utils.GetLabelsForResource(obj, p.resourceConfig)
		metrics.GetOrCreate(p.resourceConfig).With(labels).Inc()
	}

	log.Debug().Fields(utils.CreateFieldsForOp("add", obj)).Msg("Added dataset entry")
}

func (p *Pipeline) update(oldObj *unstructured.Unstructured, newObj *unstructured.Unstructured) {
	if newObj.GetResourceVersion() == oldObj.GetResourceVersion() {
		return
	}

	p.queue.Add(informer.KeyOf(newObj))
	log.Debug().Fields(utils.CreateFieldsForOp("update", newObj)).Msg("Updated dataset entry")
}

func (p *Pipeline) delete(obj *unstructured.Unstructured) {
	p.queue.Add(informer.KeyOf(obj))

	if config.Current.Metrics.Enabled && p.resourceConfig.Prometheus.Enabled {
		var labels = utils.GetLabelsForResource(obj, p.resourceConfig)
		metrics.GetOrCreate(p.resourceConfig).With(labels).Dec()
	}

	log.Debug().Fields(utils.CreateFieldsForOp("delete", obj)).Msg("Deleted dataset entry")
}

// reconcile converges the sink entry of one key towards the local snapshot.
func (p *Pipeline) reconcile(ctx context.Context, key string) error {
	obj, exists := p.informer.GetIndexer().GetByKey(key)
	if !exists {
		return p.sink.Drop(p.dataset, p.stubObject(key))
	}

	return p.sink.Apply(p.dataset, obj)
}

// stubObject builds a minimal object carrying just enough identity for the
// sink to address the entry of a deleted key.
func (p *Pipeline) stubObject(key string) *unstructured.Unstructured {
	namespace, name, err := informer.SplitKey(key)
	if err != nil {
		name = key
	}

	var obj = new(unstructured.Unstructured)
	obj.SetGroupVersionKind(p.resourceConfig.GetGroupVersionKind())
	obj.SetNamespace(namespace)
	obj.SetName(name)

	return obj
}

// Start blocks until Stop is called. The sink dataset is prepared first so
// indexes exist before the initial listing floods in.
func (p *Pipeline) Start() {
	p.sink.InitializeDataset(p.resourceConfig)

	defer func() {
		if err := recover(); err != nil {
			log.Panic().Fields(map[string]any{
				"error": fmt.Sprintf("%+v", err),
			}).Msg("Pipeline failed!")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-p.stopChan
		cancel()
	}()

	go p.informer.Run(p.stopChan)
	go p.drift.Run(p.stopChan)
	p.pool.Run(ctx)

	var resource = p.resourceConfig.GetGroupVersionResource()
	log.Info().Fields(utils.CreateFieldForResource(&resource)).Msg("Pipeline stopped!")
}

func (p *Pipeline) Stop() {
	close(p.stopChan)
}

// WaitForSync blocks until the initial listing has been folded into the
// local snapshot, or Stop is called.
func (p *Pipeline) WaitForSync() bool {
	return p.informer.WaitForSync(p.stopChan)
}

func (p *Pipeline) HasSynced() bool {
	return p.informer.HasSynced()
}

func (p *Pipeline) Dataset() string {
	return p.dataset
}

func (p *Pipeline) Indexer() *informer.Indexer {
	return p.informer.GetIndexer()
}

func (p *Pipeline) QueueLen() int {
	return p.queue.Len()
}

func (p *Pipeline) LastSyncVersion() string {
	return p.informer.LastSyncVersion()
}
