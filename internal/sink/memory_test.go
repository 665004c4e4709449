// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemorySink_Roundtrip(t *testing.T) {
	runSinkRoundtrip(t, NewMemorySink())
}

func TestCreateSink(t *testing.T) {
	var assertions = assert.New(t)

	tests := []struct {
		sinkType string
		expected Sink
	}{
		{sinkType: "redis", expected: new(RedisSink)},
		{sinkType: "Hazelcast", expected: new(HazelcastSink)},
		{sinkType: "mongo", expected: new(MongoSink)},
		{sinkType: "memory", expected: NewMemorySink()},
	}

	for _, tt := range tests {
		dataSink, err := CreateSink(tt.sinkType)
		assertions.NoError(err)
		assertions.IsType(tt.expected, dataSink)
	}

	_, err := CreateSink("carrier-pigeon")
	assertions.ErrorIs(err, ErrUnknownSinkType)
}
