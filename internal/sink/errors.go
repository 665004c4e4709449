// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import "errors"

var (
	ErrUnknownSinkType  = errors.New("unknown sink type")
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotConnected     = errors.New("sink is not connected")
)
