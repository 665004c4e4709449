// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/magnetar-sync/magnetar/internal/cmd"
	"github.com/magnetar-sync/magnetar/internal/config"
)

func main() {
	_ = config.Current
	cmd.Execute()
}
