// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/benchtop-foundation/benchtop/lib/toolchain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTool creates an executable shell script that prints the given
// lines on stdout, standing in for a control binary.
func writeTool(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	script := "#!/bin/sh\n"
	for _, line := range lines {
		script += "echo '" + line + "'\n"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake tool: %v", err)
	}
	return path
}

func TestDiscoverWithPins(t *testing.T) {
	dir := t.TempDir()
	debug := writeTool(t, dir, "adb",
		"Android Debug Bridge version 1.0.41",
		"Version 33.0.3-8952829")
	flash := writeTool(t, dir, "fastboot",
		"fastboot version 33.0.3-8952829")

	tools, err := toolchain.Discover(t.Context(), debug, flash, discardLogger())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if tools.Debug != debug {
		t.Fatalf("Debug = %q, want %q", tools.Debug, debug)
	}
	if tools.Flash != flash {
		t.Fatalf("Flash = %q, want %q", tools.Flash, flash)
	}
	if tools.DebugVersion != "1.0.41" {
		t.Fatalf("DebugVersion = %q", tools.DebugVersion)
	}
	if tools.FlashVersion != "33.0.3-8952829" {
		t.Fatalf("FlashVersion = %q", tools.FlashVersion)
	}
}

func TestDiscoverThroughPath(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "adb", "Android Debug Bridge version 1.0.41")
	writeTool(t, dir, "fastboot", "fastboot version 34.0.0")
	t.Setenv("PATH", dir)

	tools, err := toolchain.Discover(t.Context(), "", "", discardLogger())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if filepath.Base(tools.Debug) != "adb" {
		t.Fatalf("Debug = %q", tools.Debug)
	}
}

func TestDiscoverRejectsWrongBanner(t *testing.T) {
	dir := t.TempDir()
	imposter := writeTool(t, dir, "adb", "definitely not the right tool")
	flash := writeTool(t, dir, "fastboot", "fastboot version 34.0.0")

	_, err := toolchain.Discover(t.Context(), imposter, flash, discardLogger())
	if err == nil {
		t.Fatal("Discover accepted a tool with the wrong banner")
	}
	var setup *toolchain.SetupError
	if !errors.As(err, &setup) {
		t.Fatalf("error is %T, want *toolchain.SetupError", err)
	}
	if setup.Tool != "debug tool" {
		t.Fatalf("SetupError.Tool = %q", setup.Tool)
	}
}

func TestDiscoverMissingFromPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := toolchain.Discover(t.Context(), "", "", discardLogger())
	if err == nil {
		t.Fatal("Discover succeeded with no tools on PATH")
	}
	var setup *toolchain.SetupError
	if !errors.As(err, &setup) {
		t.Fatalf("error is %T, want *toolchain.SetupError", err)
	}
}

func TestDiscoverPinnedPathDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	// A pinned path that does not exist must fail even when a good
	// tool is available on PATH.
	writeTool(t, dir, "adb", "Android Debug Bridge version 1.0.41")
	writeTool(t, dir, "fastboot", "fastboot version 34.0.0")
	t.Setenv("PATH", dir)

	_, err := toolchain.Discover(t.Context(), filepath.Join(dir, "missing-adb"), "", discardLogger())
	if err == nil {
		t.Fatal("Discover fell back to PATH despite an explicit pin")
	}
}
