// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"context"
	"errors"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ErrVersionGone is reported by a source when the requested version token has
// been compacted away and the watch cannot be resumed. The reflector reacts
// with a fresh full listing.
var ErrVersionGone = errors.New("requested version is gone")

type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Error    EventType = "ERROR"
)

// Event is a single change notification from a source. Version carries the
// object's version token; for Error events only Err is set.
type Event struct {
	Type    EventType
	Object  *unstructured.Unstructured
	Version string
	Err     error
}

// Stream is one open watch session. The channel returned by Events is closed
// when the session ends, either through Stop or because the source dropped
// the connection.
type Stream interface {
	Events() <-chan Event
	Stop()
}

// Source is the boundary to the central object store for one resource type.
// List returns a complete snapshot together with the version token to watch
// from; Watch streams every change after the given token. Watch must fail
// (or emit an Error event wrapping ErrVersionGone) when the token has been
// compacted.
type Source interface {
	List(ctx context.Context) ([]*unstructured.Unstructured, string, error)
	Watch(ctx context.Context, fromVersion string) (Stream, error)
}
