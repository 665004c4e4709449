// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	pool      *dockertest.Pool
	resources []*dockertest.Resource = make([]*dockertest.Resource, 0)

	hazelcastHost string = envOrDefault("HAZELCAST_HOST", "localhost")
	hazelcastPort string = envOrDefault("HAZELCAST_PORT", "5701")

	mongoHost string = envOrDefault("MONGO_HOST", "localhost")
	mongoPort string = envOrDefault("MONGO_PORT", "27017")

	redisHost string = envOrDefault("REDIS_HOST", "localhost")
	redisPort string = envOrDefault("REDIS_PORT", "6379")

	alreadySetUp bool = false
)

type Options struct {
	MongoDb   bool
	Hazelcast bool
	Redis     bool
}

func SetupDocker(opts *Options) {
	if alreadySetUp {
		return
	}

	log.Println("Setting up docker (missing images will be pulled, which might take some time)...")

	var err error
	if pool == nil {
		pool, err = dockertest.NewPool("")
		if err != nil {
			log.Fatalf("Could not create pool: %s", err)
		}
	}

	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not ping docker: %s", err)
	}

	if opts.MongoDb {
		if err := setupMongoDb(); err != nil {
			log.Fatalf("Could not setup mongodb: %s", err)
		}
	}

	if opts.Hazelcast {
		if err := setupHazelcast(); err != nil {
			log.Fatalf("Could not setup hazelcast: %s", err)
		}
	}

	if opts.Redis {
		if err := setupRedis(); err != nil {
			log.Fatalf("Could not setup redis: %s", err)
		}
	}

	err = pool.Retry(func() error {
		if opts.MongoDb {
			if err := pingMongoDb(); err != nil {
				return err
			}
		}

		if opts.Hazelcast {
			if err := pingHazelcast(); err != nil {
				return err
			}
		}

		if opts.Redis {
			if err := pingRedis(); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Fatalf("Readiness probe failed: %s", err)
	}

	alreadySetUp = true
}

func TeardownDocker() {
	for _, resource := range resources {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge container: %s", err)
		}
	}
}

func pingMongoDb() error {
	var ctx = context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort)))
	if err != nil {
		return err
	}

	return client.Ping(ctx, nil)
}

func setupMongoDb() error {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:         "magnetar-mongodb",
		Repository:   envOrDefault("MONGO_IMAGE", "mongo"),
		Tag:          envOrDefault("MONGO_TAG", "7.0.5-rc0"),
		ExposedPorts: []string{"27017/tcp"},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"27017/tcp": {{HostIP: "localhost", HostPort: "27017"}},
		},
	}, configureTeardown)
	resources = append(resources, resource)
	return err
}

func pingHazelcast() error {
	var ctx = context.Background()
	var hazelcastConfig = hazelcast.NewConfig()
	hazelcastConfig.Cluster.Name = "magnetar"
	hazelcastConfig.Cluster.Network.SetAddresses(fmt.Sprintf("%s:%s", hazelcastHost, hazelcastPort))

	client, err := hazelcast.StartNewClientWithConfig(ctx, hazelcastConfig)
	if err != nil {
		return err
	}

	return client.Shutdown(ctx)
}

func setupHazelcast() error {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:         "magnetar-hazelcast",
		Repository:   envOrDefault("HAZELCAST_IMAGE", "hazelcast/hazelcast"),
		Tag:          envOrDefault("HAZELCAST_TAG", "5.3.6"),
		ExposedPorts: []string{"5701/tcp"},
		Env:          []string{"HZ_CLUSTERNAME=magnetar"},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"5701/tcp": {{HostIP: "localhost", HostPort: "5701"}},
		},
	}, configureTeardown)
	resources = append(resources, resource)
	return err
}

func pingRedis() error {
	var client = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort),
	})
	defer func() { _ = client.Close() }()

	return client.Ping(context.Background()).Err()
}

func setupRedis() error {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:         "magnetar-redis",
		Repository:   envOrDefault("REDIS_IMAGE", "redis/redis-stack-server"),
		Tag:          envOrDefault("REDIS_TAG", "7.2.0-v8"),
		ExposedPorts: []string{"6379/tcp"},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"6379/tcp": {{HostIP: "localhost", HostPort: "6379"}},
		},
	}, configureTeardown)
	resources = append(resources, resource)
	return err
}

func configureTeardown(config *docker.HostConfig) {
	config.AutoRemove = true
	config.RestartPolicy = docker.RestartPolicy{Name: "no"}
}

func envOrDefault(name string, fallback string) string {
	value, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	return value
}
