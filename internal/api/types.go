// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ResourceResponse represents the response for snapshot read operations
type ResourceResponse struct {
	Resource *unstructured.Unstructured  `json:"resource,omitempty"`
	Items    []unstructured.Unstructured `json:"items,omitempty"`
	Keys     []string                    `json:"keys,omitempty"`
	Count    int                         `json:"count,omitempty"`
}

// PipelineStatus describes the sync state of one mirror pipeline
type PipelineStatus struct {
	Dataset         string `json:"dataset"`
	Synced          bool   `json:"synced"`
	QueueLength     int    `json:"queueLength"`
	LastSyncVersion string `json:"lastSyncVersion,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
