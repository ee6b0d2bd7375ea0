// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/interact"
	"github.com/benchtop-foundation/benchtop/lib/result"
	"github.com/benchtop-foundation/benchtop/lib/toolchain"
	"github.com/benchtop-foundation/benchtop/lib/transport"
)

// attachedDevicePattern matches one "attached and ready" line of the
// debug tool's devices listing: a serial followed by the literal
// "device" state. Devices in other states (offline, unauthorized,
// recovery) do not match and are not bound.
const attachedDevicePattern = `^(\w+)\s+device$`

// devicesHeaderPattern is the banner line the listing must carry for
// the output to be trusted at all.
const devicesHeaderPattern = `^List of devices attached$`

// Options configures Bind.
type Options struct {
	// Tools holds the probe-verified control binary paths. Required.
	Tools *toolchain.Toolchain

	// Extension supplies the device-family behavior. Required.
	Extension Extension

	// Interact supplies the human-confirmation points. Required.
	Interact *interact.Session

	// Logger is required.
	Logger *slog.Logger

	// Serial selects a specific attached device. Empty binds the
	// first attached-and-ready device.
	Serial string

	// Echo logs every executed command line at Info level.
	Echo bool

	// RebootEstimate overrides the unattended flashing-mode wait.
	// Zero keeps the default.
	RebootEstimate time.Duration
}

// Bind resolves a device, constructs its transport and session, and
// runs the initial state refresh. This is the factory callers use: the
// extension chosen in Options determines the family-specific behavior
// of the returned session without the binding logic knowing anything
// about it.
func Bind(ctx context.Context, opts Options) (*Session, error) {
	if opts.Tools == nil || opts.Extension == nil || opts.Interact == nil || opts.Logger == nil {
		return nil, fmt.Errorf("session.Bind: Tools, Extension, Interact, and Logger are required")
	}

	serial := opts.Serial
	if serial == "" {
		listing, err := transport.ListDevices(ctx, opts.Tools.Debug)
		if err != nil {
			return nil, err
		}
		serial, err = FirstAttachedSerial(listing)
		if err != nil {
			return nil, err
		}
	}

	runner := transport.NewRunner(opts.Tools.Debug, opts.Tools.Flash, serial, opts.Logger)
	runner.SetEcho(opts.Echo)

	s := New(runner, opts.Extension, opts.Interact, opts.Logger)
	s.SetRebootEstimate(opts.RebootEstimate)
	opts.Logger.Info("bound device session", "serial", serial)

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// FirstAttachedSerial extracts the first attached-and-ready serial
// from a devices listing. No attached device is a *ConfigError — the
// bench is miswired or empty, the framework did not misbehave.
func FirstAttachedSerial(listing *result.Result) (string, error) {
	if err := listing.AssertSucceeded(); err != nil {
		return "", err
	}
	if err := listing.AssertContains(devicesHeaderPattern); err != nil {
		return "", err
	}
	serial, ok := listing.Search(attachedDevicePattern)
	if !ok {
		return "", &ConfigError{Detail: "devices listing shows no attached device ready to bind"}
	}
	return serial, nil
}
