//go:build tools

// Package tools pins the build tooling versions in tools/go.mod.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
