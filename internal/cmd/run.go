// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"strings"

	"github.com/magnetar-sync/magnetar/internal/api"
	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/metrics"
	"github.com/magnetar-sync/magnetar/internal/mirror"
	"github.com/magnetar-sync/magnetar/internal/sink"
	"github.com/magnetar-sync/magnetar/internal/source"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/magnetar-sync/magnetar/internal/workqueue"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Starts mirroring resources into the configured sink",
	Run: func(cmd *cobra.Command, args []string) {
		var kubeConfigPath, _ = cmd.Flags().GetString("kubeconfig")

		if config.Current.Metrics.Enabled {
			workqueue.SetMetricsProvider(metrics.NewWorkqueueMetricsProvider())
		}

		dataSink, err := sink.CreateSink(config.Current.Sink.Type)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create sink!")
		}
		dataSink.Initialize()
		utils.RegisterShutdownHook(dataSink.Shutdown, 2)

		var kubernetesClient dynamic.Interface
		if strings.EqualFold(config.Current.Source.Type, "kubernetes") {
			kubernetesClient, err = createKubernetesClient(kubeConfigPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Could not create kubernetes client!")
			}
		}

		var pipelines = make([]*mirror.Pipeline, 0, len(config.Current.Resources))
		for i := range config.Current.Resources {
			var resourceConfig = &config.Current.Resources[i]

			watchSource, err := createSource(kubernetesClient, resourceConfig)
			if err != nil {
				log.Fatal().Err(err).Msg("Could not create watch source!")
			}

			var pipeline = mirror.NewPipeline(watchSource, resourceConfig, dataSink)
			pipelines = append(pipelines, pipeline)

			utils.RegisterShutdownHook(pipeline.Stop, 1)
			go pipeline.Start()
		}

		if config.Current.Metrics.Enabled {
			go metrics.ExposeMetrics()
		}

		if config.Current.Api.Enabled {
			api.RegisterPipelines(pipelines)
			go api.Listen(config.Current.Api.Port)
		}

		utils.WaitForExit()
	},
}

func createSource(kubernetesClient dynamic.Interface, resourceConfig *config.Resource) (informer.Source, error) {
	switch strings.ToLower(config.Current.Source.Type) {

	case "kubernetes":
		return source.NewKubernetesSource(kubernetesClient, resourceConfig), nil

	case "memory":
		return source.NewMemorySource(), nil

	default:
		return nil, source.ErrUnknownSourceType

	}
}

func createKubernetesClient(kubeConfigPath string) (*dynamic.DynamicClient, error) {
	if useServiceAccount := len(kubeConfigPath) == 0; useServiceAccount {
		return source.CreateInClusterClient()
	}
	return source.CreateKubeConfigClient(kubeConfigPath)
}

func init() {
	runCmd.Flags().StringP("kubeconfig", "k", "", "sets the kubeconfig that should be used (service account will be used if unset)")
}
