// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// RedisSink stores every object as a RedisJSON document. Entries are keyed
// "<dataset>:<namespace/name>" so a single database can hold all datasets.
type RedisSink struct {
	client *redis.Client
	ctx    context.Context
}

func (s *RedisSink) Initialize() {
	s.ctx = context.Background()
	s.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Current.Sink.Redis.Host, config.Current.Sink.Redis.Port),
		Username: config.Current.Sink.Redis.Username,
		Password: config.Current.Sink.Redis.Password,
		DB:       config.Current.Sink.Redis.Database,
	})

	log.Debug().Msg("Trying to reach redis...")
	status := s.client.Ping(s.ctx)
	if err := status.Err(); err != nil {
		log.Fatal().Err(err).Msg("Could not reach redis!")
	}

	log.Info().Msg("Redis connection established...")
}

func (s *RedisSink) InitializeDataset(resourceConfig *config.Resource) {
	for _, cmd := range config.Current.Sink.Redis.InitCommands {
		log.Debug().Fields(map[string]any{
			"command": cmd,
		}).Msg("Executing init command")

		args := utils.AsAnySlice(strings.Split(cmd, " "))
		if err := s.client.Do(s.ctx, args...).Err(); err != nil {
			if err.Error() != "Index already exists" {
				log.Warn().Err(err).Msg("Could not execute init command!")
			}
		}
	}
}

func (s *RedisSink) Apply(dataset string, obj *unstructured.Unstructured) error {
	var status = s.client.JSONSet(s.ctx, s.entryKey(dataset, informer.KeyOf(obj)), ".", obj.Object)
	if err := status.Err(); err != nil {
		return fmt.Errorf("could not write resource: %w", err)
	}
	return nil
}

func (s *RedisSink) Drop(dataset string, obj *unstructured.Unstructured) error {
	var status = s.client.JSONDel(s.ctx, s.entryKey(dataset, informer.KeyOf(obj)), ".")
	if err := status.Err(); err != nil {
		return fmt.Errorf("could not delete resource: %w", err)
	}
	return nil
}

func (s *RedisSink) Read(dataset string, key string) (*unstructured.Unstructured, error) {
	result, err := s.client.JSONGet(s.ctx, s.entryKey(dataset, key), ".").Result()
	if errors.Is(err, redis.Nil) || result == "" {
		return nil, ErrResourceNotFound
	} else if err != nil {
		return nil, fmt.Errorf("could not read resource: %w", err)
	}

	var obj = new(unstructured.Unstructured)
	if err := json.Unmarshal([]byte(result), &obj.Object); err != nil {
		return nil, fmt.Errorf("could not unmarshal resource: %w", err)
	}

	return obj, nil
}

func (s *RedisSink) List(dataset string, fieldSelector string, limit int64) ([]unstructured.Unstructured, error) {
	keys, err := s.Keys(dataset)
	if err != nil {
		return nil, err
	}

	var objects = make([]unstructured.Unstructured, 0, len(keys))
	for _, key := range keys {
		obj, err := s.Read(dataset, key)
		if errors.Is(err, ErrResourceNotFound) {
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

func (s *RedisSink) Keys(dataset string) ([]string, error) {
	var keys = make([]string, 0)
	var iter = s.client.Scan(s.ctx, 0, dataset+":*", 0).Iterator()
	for iter.Next(s.ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), dataset+":"))
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("could not scan keys: %w", err)
	}

	return keys, nil
}

func (s *RedisSink) Count(dataset string) (int, error) {
	keys, err := s.Keys(dataset)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisSink) Connected() bool {
	return s.client.Ping(s.ctx).Err() == nil
}

func (s *RedisSink) Shutdown() {
	_ = s.client.Close()
}

func (*RedisSink) entryKey(dataset string, key string) string {
	return dataset + ":" + key
}
