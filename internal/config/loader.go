// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var Current = LoadConfiguration()

func LoadConfiguration() *Configuration {
	setDefaults()
	var config = readConfig()
	applyLogLevel(config.LogLevel)
	return config
}

func setDefaults() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetEnvPrefix("magnetar")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("reSyncPeriod", "30s")

	viper.SetDefault("source.type", "kubernetes")

	viper.SetDefault("pipeline.workers", 2)
	viper.SetDefault("pipeline.retryBaseDelay", "5ms")
	viper.SetDefault("pipeline.retryMaxDelay", "1000s")
	viper.SetDefault("pipeline.driftCheckInterval", "5m")

	viper.SetDefault("sink.type", "redis")
	viper.SetDefault("sink.redis.host", "localhost")
	viper.SetDefault("sink.redis.port", 6379)
	viper.SetDefault("sink.redis.username", "")
	viper.SetDefault("sink.redis.password", "")
	viper.SetDefault("sink.redis.database", 0)
	viper.SetDefault("sink.redis.initCommands", []string{})
	viper.SetDefault("sink.hazelcast.clusterName", "magnetar")
	viper.SetDefault("sink.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("sink.mongo.database", "magnetar")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 8080)
	viper.SetDefault("metrics.timeout", "30s")

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.port", 8088)
	viper.SetDefault("api.logLevel", "info")
	viper.SetDefault("api.security.enabled", false)
}

func readConfig() *Configuration {
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			log.Fatal().Err(err).Msg("Could not read configuration!")
		}
	}

	viper.AutomaticEnv()

	var config Configuration
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatal().Err(err).Msg("Could not unmarshal configuration!")
	}

	return &config
}

func applyLogLevel(level string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
		log.Info().Msgf("Invalid log level %s. Info log level is used", level)
	}

	log.Logger = zerolog.New(os.Stdout).Level(logLevel).With().Timestamp().Logger()
	if logLevel == zerolog.DebugLevel {
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}
