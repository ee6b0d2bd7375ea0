// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolchain locates the external control binaries Benchtop
// shells out to: the debug transport (adb) and the flashing-mode
// transport (fastboot). Discovery runs once during setup and produces
// an immutable Toolchain value that is passed into the transport
// runner and session binding — there is no global state and no lazy
// re-discovery.
//
// A candidate binary is accepted only after a version probe: the tool
// must run, exit zero, and print its expected banner. A tool that is
// present but does not answer the probe is a setup failure, surfaced
// before any device operation is attempted.
package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/benchtop-foundation/benchtop/lib/transport"
)

// Banner patterns and version capture patterns for the two tools.
// The debug tool prints "Android Debug Bridge version 1.0.41" style
// output; the flashing tool prints "fastboot version 33.0.3-8952829".
const (
	debugBanner  = `Android Debug Bridge`
	debugVersion = `[Vv]ersion ([0-9.-]+)`
	flashBanner  = `fastboot version`
	flashVersion = `fastboot version ([0-9.-]+)`
)

// Toolchain holds the resolved, probe-verified paths of the control
// binaries. Immutable after discovery.
type Toolchain struct {
	// Debug is the absolute path of the debug-transport tool.
	Debug string

	// Flash is the absolute path of the flashing-mode tool.
	Flash string

	// DebugVersion and FlashVersion are the versions the probe
	// reported, for logging and bug reports.
	DebugVersion string
	FlashVersion string
}

// SetupError reports that a required control binary could not be
// located or did not respond to its version probe. It is fatal: no
// device operation can proceed without both tools.
type SetupError struct {
	Tool   string
	Detail string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: %s: %s", e.Tool, e.Detail)
}

// Discover resolves both tools. Pinned paths (from configuration) are
// tried first and are authoritative when set: a pin that fails its
// probe is an error rather than a fallthrough, so a misconfigured path
// cannot silently pick up a different binary from PATH. With no pin,
// the bare tool name is resolved through PATH.
func Discover(ctx context.Context, debugPin, flashPin string, logger *slog.Logger) (*Toolchain, error) {
	debugPath, debugVer, err := resolve(ctx, "debug tool", debugPin, "adb", debugBanner, debugVersion)
	if err != nil {
		return nil, err
	}
	logger.Info("debug tool found", "path", debugPath, "version", debugVer)

	flashPath, flashVer, err := resolve(ctx, "flashing tool", flashPin, "fastboot", flashBanner, flashVersion)
	if err != nil {
		return nil, err
	}
	logger.Info("flashing tool found", "path", flashPath, "version", flashVer)

	return &Toolchain{
		Debug:        debugPath,
		Flash:        flashPath,
		DebugVersion: debugVer,
		FlashVersion: flashVer,
	}, nil
}

// resolve locates one tool and verifies it with a version probe.
func resolve(ctx context.Context, tool, pin, name, banner, versionPattern string) (path, version string, err error) {
	candidate := pin
	if candidate == "" {
		candidate, err = exec.LookPath(name)
		if err != nil {
			return "", "", &SetupError{Tool: tool, Detail: fmt.Sprintf("%s not found in PATH", name)}
		}
	}
	if resolved, absErr := filepath.Abs(candidate); absErr == nil {
		candidate = resolved
	}

	version, err = Probe(ctx, candidate, banner, versionPattern)
	if err != nil {
		return "", "", &SetupError{Tool: tool, Detail: fmt.Sprintf("%s: %v", candidate, err)}
	}
	return candidate, version, nil
}

// Probe runs "<path> --version" and checks the output against the
// expected banner, returning the captured version string. The version
// capture is best-effort: a tool that prints the banner but formats
// its version unexpectedly still passes, with an empty version.
func Probe(ctx context.Context, path, banner, versionPattern string) (string, error) {
	r, err := transport.Execute(ctx, transport.DefaultTimeout, []string{path, "--version"})
	if err != nil {
		return "", fmt.Errorf("version probe did not run: %w", err)
	}
	if !r.Succeeded() {
		return "", fmt.Errorf("version probe exited with code %d", r.ExitCode())
	}
	if !r.Contains(banner) {
		return "", fmt.Errorf("version probe output does not look like the expected tool (missing %q)", banner)
	}
	version, _ := r.Search(versionPattern)
	return version, nil
}
