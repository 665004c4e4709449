// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/magnetar-sync/magnetar/internal/mirror"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// pipelineFromContext resolves the pipeline serving the requested resource.
func pipelineFromContext(ctx *fiber.Ctx) (*mirror.Pipeline, error) {
	gvr, err := getGvrFromContext(ctx)
	if err != nil {
		return nil, err
	}

	pipeline, ok := pipelines[getDataSetForGvr(gvr)]
	if !ok {
		return nil, &fiber.Error{
			Code:    fiber.StatusNotFound,
			Message: "Unknown resource",
		}
	}

	return pipeline, nil
}

// listResources handles GET requests to list the snapshot of a resource type
// URL params: group, version, resource
// Query params: fieldSelector, limit
// Response: HTTP 200 with array of resources
func listResources(ctx *fiber.Ctx) error {
	pipeline, err := pipelineFromContext(ctx)
	if err != nil {
		return err
	}

	fieldSelector := ctx.Query("fieldSelector", "")
	limit, err := strconv.ParseInt(ctx.Query("limit", "0"), 10, 64)
	if err != nil {
		limit = 0
	}

	var items = make([]unstructured.Unstructured, 0)
	for _, obj := range pipeline.Indexer().List() {
		if !utils.MatchFieldSelector(obj, fieldSelector) {
			continue
		}

		items = append(items, *obj)
		if limit > 0 && int64(len(items)) >= limit {
			break
		}
	}

	return ctx.Status(fiber.StatusOK).JSON(ResourceResponse{
		Items: items,
		Count: len(items),
	})
}

// listKeys handles GET requests to list the snapshot keys of a resource type
// URL params: group, version, resource
// Response: HTTP 200 with array of keys
func listKeys(ctx *fiber.Ctx) error {
	pipeline, err := pipelineFromContext(ctx)
	if err != nil {
		return err
	}

	var keys = pipeline.Indexer().ListKeys()
	sort.Strings(keys)

	return ctx.Status(fiber.StatusOK).JSON(ResourceResponse{
		Keys: keys,
	})
}

// countResources handles GET requests to count the snapshot of a resource type
// URL params: group, version, resource
// Response: HTTP 200 with count as result
func countResources(ctx *fiber.Ctx) error {
	pipeline, err := pipelineFromContext(ctx)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(ResourceResponse{
		Count: pipeline.Indexer().Len(),
	})
}

// queryIndex handles GET requests against a configured secondary index
// URL params: group, version, resource, index, value
// Response: HTTP 200 with array of resources
func queryIndex(ctx *fiber.Ctx) error {
	pipeline, err := pipelineFromContext(ctx)
	if err != nil {
		return err
	}

	objects, err := pipeline.Indexer().ByIndex(ctx.Params("index"), ctx.Params("value"))
	if err != nil {
		return handleNotFoundError(ctx, err.Error())
	}

	var items = make([]unstructured.Unstructured, 0, len(objects))
	for _, obj := range objects {
		items = append(items, *obj)
	}

	return ctx.Status(fiber.StatusOK).JSON(ResourceResponse{
		Items: items,
		Count: len(items),
	})
}

// getResource handles GET requests for a single snapshot entry
// URL params: group, version, resource, name and optionally namespace
// Response: HTTP 200 with resource JSON or HTTP 404 if not found
func getResource(ctx *fiber.Ctx) error {
	pipeline, err := pipelineFromContext(ctx)
	if err != nil {
		return err
	}

	var key = ctx.Params("name")
	if namespace := ctx.Params("namespace"); namespace != "" {
		key = namespace + "/" + key
	}

	obj, exists := pipeline.Indexer().GetByKey(key)
	if !exists {
		return handleNotFoundError(ctx, "Resource not found")
	}

	return ctx.Status(fiber.StatusOK).JSON(ResourceResponse{
		Resource: obj,
	})
}

// listPipelines handles GET requests for the sync state of all pipelines
// Response: HTTP 200 with array of pipeline status objects
func listPipelines(ctx *fiber.Ctx) error {
	var datasets = make([]string, 0, len(pipelines))
	for dataset := range pipelines {
		datasets = append(datasets, dataset)
	}
	sort.Strings(datasets)

	var statuses = make([]PipelineStatus, 0, len(datasets))
	for _, dataset := range datasets {
		var pipeline = pipelines[dataset]
		statuses = append(statuses, PipelineStatus{
			Dataset:         dataset,
			Synced:          pipeline.HasSynced(),
			QueueLength:     pipeline.QueueLen(),
			LastSyncVersion: pipeline.LastSyncVersion(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(statuses)
}
