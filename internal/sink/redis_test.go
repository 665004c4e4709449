// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package sink

import (
	"testing"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/test"
	"github.com/stretchr/testify/assert"
)

func TestRedisSink_Roundtrip(t *testing.T) {
	runSinkRoundtrip(t, redisSink)
}

func TestRedisSink_KeysAreScopedToDataset(t *testing.T) {
	var assertions = assert.New(t)
	var dataset = config.Current.Resources[0].GetCacheName()

	var obj = test.CreateTestResource("scoped", "playground", nil)
	assertions.NoError(redisSink.Apply(dataset, obj))
	assertions.NoError(redisSink.Apply("other.dataset.v1", obj))

	defer func() {
		assertions.NoError(redisSink.Drop(dataset, obj))
		assertions.NoError(redisSink.Drop("other.dataset.v1", obj))
	}()

	keys, err := redisSink.Keys(dataset)
	assertions.NoError(err)
	assertions.Equal([]string{"playground/scoped"}, keys)
}
