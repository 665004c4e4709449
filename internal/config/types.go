// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import "time"

type Configuration struct {
	LogLevel     string        `mapstructure:"logLevel"`
	ReSyncPeriod time.Duration `mapstructure:"reSyncPeriod"`
	Source       Source        `mapstructure:"source"`
	Pipeline     Pipeline      `mapstructure:"pipeline"`
	Sink         Sink          `mapstructure:"sink"`
	Metrics      Metrics       `mapstructure:"metrics"`
	Api          Api           `mapstructure:"api"`
	Resources    []Resource    `mapstructure:"resources"`
}

type Source struct {
	Type string `mapstructure:"type"`
}

type Pipeline struct {
	Workers            int           `mapstructure:"workers"`
	RetryBaseDelay     time.Duration `mapstructure:"retryBaseDelay"`
	RetryMaxDelay      time.Duration `mapstructure:"retryMaxDelay"`
	DriftCheckInterval time.Duration `mapstructure:"driftCheckInterval"`
}

type Sink struct {
	Type      string                 `mapstructure:"type"`
	Redis     RedisConfiguration     `mapstructure:"redis"`
	Hazelcast HazelcastConfiguration `mapstructure:"hazelcast"`
	Mongo     MongoConfiguration     `mapstructure:"mongo"`
}

type RedisConfiguration struct {
	Host         string   `mapstructure:"host"`
	Port         uint     `mapstructure:"port"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	Database     int      `mapstructure:"database"`
	InitCommands []string `mapstructure:"initCommands"`
}

type HazelcastConfiguration struct {
	ClusterName string   `mapstructure:"clusterName"`
	Addresses   []string `mapstructure:"addresses"`
}

type MongoConfiguration struct {
	Uri      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type Metrics struct {
	Enabled bool          `mapstructure:"enabled"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Api struct {
	Enabled  bool        `mapstructure:"enabled"`
	Port     int         `mapstructure:"port"`
	LogLevel string      `mapstructure:"logLevel"`
	Security ApiSecurity `mapstructure:"security"`
}

type ApiSecurity struct {
	Enabled        bool     `mapstructure:"enabled"`
	TrustedIssuers []string `mapstructure:"trustedIssuers"`
	TrustedClients []string `mapstructure:"trustedClients"`
}
