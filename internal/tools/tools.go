//go:build tools
// +build tools

// Package tools pins the versions of build-time-only tooling used on this
// repository (lint, struct-alignment, dead-code checks). None of this is
// imported by kernel code; the build tag keeps it out of ordinary builds.
package tools

import (
	_ "github.com/dkorunic/betteralign/cmd/betteralign"
	_ "golang.org/x/tools/cmd/deadcode"
	_ "honnef.co/go/tools/cmd/staticcheck"
)
