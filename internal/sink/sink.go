// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"strings"

	"github.com/magnetar-sync/magnetar/internal/config"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Sink is a downstream cache that mirrors the local snapshot of one or more
// datasets. Apply and Drop are idempotent so reconciles can be repeated
// safely. Read, List, Keys and Count back the query API and drift checks.
type Sink interface {
	Initialize()
	InitializeDataset(resourceConfig *config.Resource)
	Apply(dataset string, obj *unstructured.Unstructured) error
	Drop(dataset string, obj *unstructured.Unstructured) error
	Read(dataset string, key string) (*unstructured.Unstructured, error)
	List(dataset string, fieldSelector string, limit int64) ([]unstructured.Unstructured, error)
	Keys(dataset string) ([]string, error)
	Count(dataset string) (int, error)
	Connected() bool
	Shutdown()
}

func CreateSink(sinkType string) (Sink, error) {
	switch strings.ToLower(sinkType) {

	case "redis":
		return new(RedisSink), nil

	case "hazelcast":
		return new(HazelcastSink), nil

	case "mongo":
		return new(MongoSink), nil

	case "memory":
		return NewMemorySink(), nil

	default:
		return nil, ErrUnknownSinkType

	}
}
