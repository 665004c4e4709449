// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/mirror"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	service   *fiber.App
	logger    *zerolog.Logger
	pipelines map[string]*mirror.Pipeline
)

// RegisterPipelines makes the given pipelines queryable through the service.
func RegisterPipelines(pipelineList []*mirror.Pipeline) {
	pipelines = make(map[string]*mirror.Pipeline, len(pipelineList))
	for _, pipeline := range pipelineList {
		pipelines[pipeline.Dataset()] = pipeline
	}
}

func setupService(logger *zerolog.Logger) {
	service = fiber.New(fiber.Config{
		DisableStartupMessage: log.Logger.GetLevel() != zerolog.DebugLevel,
	})

	service.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: logger,
	}))

	service.Get("/health", getHealth)
	service.Get("/ready", getReadiness)

	v1 := service.Group("/api/v1")
	if config.Current.Api.Security.Enabled {
		v1.Use(withSecurity(config.Current.Api.Security))
		v1.Use(withTrustedClients(config.Current.Api.Security.TrustedClients))
	}

	v1.Get("/pipelines", listPipelines)

	resources := v1.Group("/resources/:group/:version/:resource", withGvr)
	resources.Get("/", listResources)
	resources.Get("/keys", listKeys)
	resources.Get("/count", countResources)
	resources.Get("/index/:index/:value", queryIndex)
	resources.Get("/:namespace/:name", getResource)
	resources.Get("/:name", getResource)
}

func getHealth(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "up"})
}

// getReadiness reports ready once every pipeline has folded its initial
// listing into the snapshot.
func getReadiness(ctx *fiber.Ctx) error {
	for _, pipeline := range pipelines {
		if !pipeline.HasSynced() {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "syncing",
				"dataset": pipeline.Dataset(),
			})
		}
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}

func createLogger() *zerolog.Logger {
	logger := log.Logger.With().Str("logger", "api").Logger()

	lvl, err := zerolog.ParseLevel(config.Current.Api.LogLevel)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid log level for api service, defaulting to info")
		lvl = zerolog.InfoLevel
	}

	logger = logger.Level(lvl)

	if lvl == zerolog.DebugLevel {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	return &logger
}

func Listen(port int) {
	if logger == nil {
		logger = createLogger()
	}

	if service == nil {
		setupService(logger)
	}

	utils.RegisterShutdownHook(func() {
		timeout := 30 * time.Second
		logger.Info().Dur("timeout", timeout).Msg("Shutting down api service...")
		if err := service.ShutdownWithTimeout(timeout); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown api service gracefully")
		}
	}, 1)

	logger.Info().Int("port", port).Msg("Starting api service...")
	if err := service.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start api service")
	}
}
