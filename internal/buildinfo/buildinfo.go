// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import (
	"fmt"
	"runtime"
)

// Set via ldflags:
// -X github.com/autobrr/torrenthunt/internal/buildinfo.Version=v1.0.0
var (
	Version = "dev"
	Commit  = ""
	Date    = ""

	// UserAgent is sent with every upstream provider request.
	UserAgent = fmt.Sprintf("torrenthunt/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
)
