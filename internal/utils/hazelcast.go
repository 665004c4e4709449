// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"github.com/hazelcast/hazelcast-go-client/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HazelcastZerologLogger routes the hazelcast client's log output through the
// global zerolog logger so sink logs share one format.
type HazelcastZerologLogger struct{}

func (l *HazelcastZerologLogger) Log(weight logger.Weight, f func() string) {
	var level = translateHazelcastWeight(weight)
	if log.Logger.GetLevel() > level {
		return
	}
	log.WithLevel(level).Str("logger", "hazelcast").Msg(f())
}

func translateHazelcastWeight(weight logger.Weight) zerolog.Level {
	switch {

	case weight >= logger.WeightDebug:
		return zerolog.DebugLevel

	case weight >= logger.WeightInfo:
		return zerolog.InfoLevel

	case weight >= logger.WeightWarn:
		return zerolog.WarnLevel

	case weight >= logger.WeightError:
		return zerolog.ErrorLevel

	default:
		return zerolog.FatalLevel
	}
}
