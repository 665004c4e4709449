// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package test

import (
	"os"
	"time"

	"github.com/magnetar-sync/magnetar/internal/config"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
)

// CreateTestResource is a test helper function that creates a test resource
func CreateTestResource(name, namespace string, labels map[string]string) *unstructured.Unstructured {
	resource := &unstructured.Unstructured{}
	resource.SetAPIVersion("subscriber.horizon.telekom.de/v1")
	resource.SetKind("Subscription")
	resource.SetName(name)
	if namespace != "" {
		resource.SetNamespace(namespace)
		resource.SetUID(types.UID(namespace + "/" + name))
	} else {
		resource.SetUID(types.UID(name))
	}
	if labels != nil {
		resource.SetLabels(labels)
	}
	return resource
}

// CreateTestResourceConfig creates a configuration with a single standard
// test resource.
func CreateTestResourceConfig() *config.Configuration {
	testConfig := new(config.Configuration)
	testConfig.Pipeline.Workers = 2
	testConfig.Pipeline.RetryBaseDelay = 1 * time.Millisecond
	testConfig.Pipeline.RetryMaxDelay = 50 * time.Millisecond

	testResourceConfig := config.Resource{}
	testResourceConfig.Kubernetes.Group = "subscriber.horizon.telekom.de"
	testResourceConfig.Kubernetes.Version = "v1"
	testResourceConfig.Kubernetes.Resource = "subscriptions"
	testResourceConfig.Kubernetes.Namespace = "playground"
	testResourceConfig.Kubernetes.Kind = "Subscription"
	testConfig.Resources = []config.Resource{testResourceConfig}
	return testConfig
}

// WaitFor polls the condition until it holds or the timeout expires.
func WaitFor(timeout time.Duration, condition func() bool) bool {
	var deadline = time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

func EnvOrDefault(name string, fallback string) string {
	value, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	return value
}
