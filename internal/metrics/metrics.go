// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"strings"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

var (
	registry *prometheus.Registry
	gauges   map[string]*prometheus.GaugeVec
)

const namespace = "magnetar"

func init() {
	registry = prometheus.NewRegistry()
	gauges = make(map[string]*prometheus.GaugeVec)
}

// GetOrCreate returns the object count gauge of a resource, labeled as
// configured for that resource.
func GetOrCreate(resourceConfig *config.Resource) *prometheus.GaugeVec {
	var gaugeName = resourceConfig.GetCacheName()

	gauge, ok := gauges[gaugeName]
	if !ok {
		gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      fmt.Sprintf("%s_count", strings.ReplaceAll(gaugeName, ".", "_")),
		}, maps.Keys(resourceConfig.Prometheus.Labels))

		gauges[gaugeName] = gauge
		if err := registry.Register(gauge); err != nil {
			var gvr = resourceConfig.GetGroupVersionResource()
			log.Error().Err(err).
				Fields(utils.CreateFieldForResource(&gvr)).
				Msg("Could not create metric")
		}
	}

	return gauge
}

// SyncGauges rebuilds the object count gauges from a snapshot listing,
// correcting any drift the incremental updates accumulated across relists.
func SyncGauges(objects []*unstructured.Unstructured) {
	var resynced = make(map[string]struct{})

	for _, obj := range objects {
		resourceConfig, ok := config.Current.GetResourceConfiguration(obj)
		if !ok {
			log.Warn().
				Str("resource", utils.GetGroupVersionId(obj)).
				Msg("No resource configuration for object, skipping gauge sync")
			continue
		}
		if !resourceConfig.Prometheus.Enabled {
			continue
		}

		var gauge = GetOrCreate(resourceConfig)
		if _, done := resynced[resourceConfig.GetCacheName()]; !done {
			gauge.Reset()
			resynced[resourceConfig.GetCacheName()] = struct{}{}
		}
		gauge.With(utils.GetLabelsForResource(obj, resourceConfig)).Inc()
	}
}
