// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport executes device-control commands against a single
// bound device. The central type is Runner, which targets one device
// serial and injects the -s selector on every invocation of the debug
// and flashing tools. This makes it structurally impossible to run a
// command against the wrong device or to forget the selector when more
// than one device is attached.
//
// Every call blocks until the external process exits or its timeout
// elapses. A timeout is fatal to the calling operation and is never
// retried: a hung device-control command almost always means the
// device itself is unresponsive, and a retry would hang the same way.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/result"
)

// DefaultTimeout bounds ordinary device commands. Property reads,
// remounts, and diagnostic probes complete in well under a second on a
// healthy device.
const DefaultTimeout = 10 * time.Second

// WaitTimeout bounds the debug tool's wait-for-device primitive, which
// legitimately blocks across a full reboot cycle.
const WaitTimeout = 60 * time.Second

// Transport is the command channel to one bound device. Runner is the
// production implementation; Script is the in-memory implementation
// for tests.
type Transport interface {
	// Serial returns the device serial this transport is bound to.
	Serial() string

	// Run invokes the debug tool with the -s selector followed by
	// args. A timeout <= 0 means DefaultTimeout.
	Run(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error)

	// Flash invokes the flashing-mode tool with the same selector
	// shape. Only meaningful while the device sits in flashing mode.
	Flash(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error)

	// Shell invokes the debug tool's shell subcommand, running args
	// on the device. This is the primary way device-side commands
	// execute.
	Shell(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error)
}

// Runner is the production Transport: it shells out to the resolved
// debug and flashing tool binaries.
type Runner struct {
	debugPath string
	flashPath string
	serial    string
	logger    *slog.Logger
	echo      bool
}

// NewRunner returns a Runner bound to the given device serial,
// invoking the tools at the given resolved paths.
func NewRunner(debugPath, flashPath, serial string, logger *slog.Logger) *Runner {
	return &Runner{
		debugPath: debugPath,
		flashPath: flashPath,
		serial:    serial,
		logger:    logger,
	}
}

// SetEcho controls whether every executed command line is logged at
// Info level. Off by default; the CLI turns it on for interactive
// troubleshooting.
func (r *Runner) SetEcho(echo bool) { r.echo = echo }

// Serial returns the bound device serial.
func (r *Runner) Serial() string { return r.serial }

// Run invokes the debug tool: <debug> -s <serial> <args...>.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	argv := append([]string{r.debugPath, "-s", r.serial}, args...)
	return r.execute(ctx, timeout, argv)
}

// Flash invokes the flashing tool: <flash> -s <serial> <args...>.
func (r *Runner) Flash(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	argv := append([]string{r.flashPath, "-s", r.serial}, args...)
	return r.execute(ctx, timeout, argv)
}

// Shell invokes a device-side command: <debug> -s <serial> shell <args...>.
func (r *Runner) Shell(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	return r.Run(ctx, timeout, append([]string{"shell"}, args...)...)
}

func (r *Runner) execute(ctx context.Context, timeout time.Duration, argv []string) (*result.Result, error) {
	if r.echo {
		r.logger.Info("running", "command", strings.Join(argv, " "))
	} else {
		r.logger.Debug("running", "command", strings.Join(argv, " "))
	}
	return Execute(ctx, timeout, argv)
}

// Execute runs argv with the given timeout, capturing stdout and
// stderr as text. A non-zero exit code is not an error — it is
// recorded in the Result for the caller's assertions. Errors are
// reserved for the process failing to run at all and for timeout
// expiry, both of which are fatal to the calling operation.
func Execute(ctx context.Context, timeout time.Duration, argv []string) (*result.Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if runCtx.Err() != nil {
		// The process was killed by the deadline (or the caller's
		// context was cancelled). Either way the command did not
		// complete, so there is no result to assert against.
		return nil, fmt.Errorf("%s: timed out after %v: %w",
			strings.Join(argv, " "), timeout, runCtx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result.New(argv, exitErr.ExitCode(), stdout.String(), stderr.String()), nil
		}
		return nil, fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return result.New(argv, 0, stdout.String(), stderr.String()), nil
}

// ListDevices invokes the debug tool's unbound devices listing. This
// is the one invocation shape without a -s selector: it exists so that
// binding can discover which devices are attached before any serial is
// known.
func ListDevices(ctx context.Context, debugPath string) (*result.Result, error) {
	return Execute(ctx, DefaultTimeout, []string{debugPath, "devices"})
}
