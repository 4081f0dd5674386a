// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for insighthub using Mage.
//
// Usage:
//
//	mage build      Compile the insighthub binary to bin/
//	mage test:all   Run all tests
//	mage test:cover Run all tests with a coverage profile
//	mage lint       Run golangci-lint
//	mage demo       Build, then init and seed a demo warehouse under bin/demo
//	mage clean      Remove build artifacts
//	mage install    Install insighthub to GOPATH/bin
//	mage stats      Print Go LOC counts
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "insighthub"
	binaryDir  = "bin"
	cmdDir     = "./cmd/insighthub"
	versionVar = "github.com/mesh-intelligence/insighthub/internal/cli.Version"
)

// version describes the checkout, or "dev" outside git.
func version() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}

// Build compiles the insighthub binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X " + versionVar + "=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}

// Demo builds, then creates a seeded warehouse in bin/demo. Run the binary
// with --config-dir bin/demo --data-dir bin/demo to use it.
func Demo() error {
	mg.Deps(Build)
	dir := filepath.Join(binaryDir, "demo")
	bin := filepath.Join(binaryDir, binaryName)
	for _, args := range [][]string{{"init"}, {"seed"}} {
		full := append([]string{"--config-dir", dir, "--data-dir", dir}, args...)
		if err := sh.RunV(bin, full...); err != nil {
			return err
		}
	}
	return nil
}
