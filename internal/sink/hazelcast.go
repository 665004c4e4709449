// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// HazelcastSink keeps one distributed map per dataset, with objects stored
// as json strings. Secondary indexes are created per dataset from the
// resource configuration.
type HazelcastSink struct {
	client *hazelcast.Client
	ctx    context.Context
}

func (s *HazelcastSink) Initialize() {
	var hazelcastConfig = hazelcast.NewConfig()
	var err error

	hazelcastConfig.Cluster.Name = config.Current.Sink.Hazelcast.ClusterName
	hazelcastConfig.Cluster.Network.SetAddresses(config.Current.Sink.Hazelcast.Addresses...)
	hazelcastConfig.Logger.CustomLogger = new(utils.HazelcastZerologLogger)

	s.ctx = context.Background()
	s.client, err = hazelcast.StartNewClientWithConfig(s.ctx, hazelcastConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create hazelcast client!")
	}
}

func (s *HazelcastSink) InitializeDataset(resourceConfig *config.Resource) {
	cacheMap, err := s.getMap(resourceConfig.GetCacheName())
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create map!")
	}

	for _, index := range resourceConfig.HazelcastIndexes {
		if err := cacheMap.AddIndex(s.ctx, index.ToIndexConfig()); err != nil {
			var resource = resourceConfig.GetGroupVersionResource()
			log.Warn().Fields(utils.CreateFieldForResource(&resource)).Err(err).Msg("Could not create index in hazelcast")
		}
	}
}

func (s *HazelcastSink) Apply(dataset string, obj *unstructured.Unstructured) error {
	cacheMap, err := s.getMap(dataset)
	if err != nil {
		return err
	}

	jsonBytes, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not marshal resource: %w", err)
	}

	if err := cacheMap.Set(s.ctx, informer.KeyOf(obj), string(jsonBytes)); err != nil {
		return fmt.Errorf("could not write resource: %w", err)
	}
	return nil
}

func (s *HazelcastSink) Drop(dataset string, obj *unstructured.Unstructured) error {
	cacheMap, err := s.getMap(dataset)
	if err != nil {
		return err
	}

	if err := cacheMap.Delete(s.ctx, informer.KeyOf(obj)); err != nil {
		return fmt.Errorf("could not delete resource: %w", err)
	}
	return nil
}

func (s *HazelcastSink) Read(dataset string, key string) (*unstructured.Unstructured, error) {
	cacheMap, err := s.getMap(dataset)
	if err != nil {
		return nil, err
	}

	value, err := cacheMap.Get(s.ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not read resource: %w", err)
	}
	if value == nil {
		return nil, ErrResourceNotFound
	}

	jsonString, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected map entry of type %T", value)
	}

	var obj = new(unstructured.Unstructured)
	if err := json.Unmarshal([]byte(jsonString), &obj.Object); err != nil {
		return nil, fmt.Errorf("could not unmarshal resource: %w", err)
	}

	return obj, nil
}

func (s *HazelcastSink) List(dataset string, fieldSelector string, limit int64) ([]unstructured.Unstructured, error) {
	keys, err := s.Keys(dataset)
	if err != nil {
		return nil, err
	}

	var objects = make([]unstructured.Unstructured, 0, len(keys))
	for _, key := range keys {
		obj, err := s.Read(dataset, key)
		if err == ErrResourceNotFound {
			continue
		} else if err != nil {
			return nil, err
		}

		if !utils.MatchFieldSelector(obj, fieldSelector) {
			continue
		}

		objects = append(objects, *obj)
		if limit > 0 && int64(len(objects)) >= limit {
			break
		}
	}

	return objects, nil
}

func (s *HazelcastSink) Keys(dataset string) ([]string, error) {
	cacheMap, err := s.getMap(dataset)
	if err != nil {
		return nil, err
	}

	keySet, err := cacheMap.GetKeySet(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch key set: %w", err)
	}

	var keys = make([]string, 0, len(keySet))
	for _, key := range keySet {
		keys = append(keys, fmt.Sprint(key))
	}

	return keys, nil
}

func (s *HazelcastSink) Count(dataset string) (int, error) {
	cacheMap, err := s.getMap(dataset)
	if err != nil {
		return 0, err
	}

	size, err := cacheMap.Size(s.ctx)
	if err != nil {
		return 0, fmt.Errorf("could not fetch map size: %w", err)
	}

	return size, nil
}

func (s *HazelcastSink) Connected() bool {
	return s.client != nil && s.client.Running()
}

func (s *HazelcastSink) Shutdown() {
	_ = s.client.Shutdown(s.ctx)
}

func (s *HazelcastSink) getMap(dataset string) (*hazelcast.Map, error) {
	cacheMap, err := s.client.GetMap(s.ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("could not find map %q: %w", dataset, err)
	}

	return cacheMap, nil
}
