// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/result"
)

// Device-side conveniences. These are thin compositions of the shell
// transport and result assertions; family extensions and test scripts
// build on them rather than repeating the assertion plumbing.

// Shell runs a device-side command and returns the raw Result for the
// caller's own assertions. A timeout <= 0 means the transport default.
func (s *Session) Shell(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	return s.transport.Shell(ctx, timeout, args...)
}

// ShellChecked runs a device-side command and requires a zero exit.
func (s *Session) ShellChecked(ctx context.Context, timeout time.Duration, args ...string) error {
	r, err := s.transport.Shell(ctx, timeout, args...)
	if err != nil {
		return err
	}
	return r.AssertSucceeded()
}

// ShellString runs a device-side command and requires a single-line
// string result.
func (s *Session) ShellString(ctx context.Context, args ...string) (string, error) {
	r, err := s.transport.Shell(ctx, 0, args...)
	if err != nil {
		return "", err
	}
	return r.AssertString()
}

// FileString returns the single-line contents of a file on the device.
func (s *Session) FileString(ctx context.Context, path string) (string, error) {
	return s.ShellString(ctx, "cat", path)
}

// FileInt returns the integer stored in a file on the device.
func (s *Session) FileInt(ctx context.Context, path string) (int, error) {
	r, err := s.transport.Shell(ctx, 0, "cat", path)
	if err != nil {
		return 0, err
	}
	return r.AssertInt()
}

// GetProp reads a device property.
func (s *Session) GetProp(ctx context.Context, name string) (string, error) {
	return s.ShellString(ctx, "getprop", name)
}

// SetProp writes a device property.
func (s *Session) SetProp(ctx context.Context, name, value string) error {
	return s.ShellChecked(ctx, 0, "setprop", name, value)
}

// LogProp reads a device property and logs it. Used by the bind-time
// state dump and by family extensions recording identifying build
// information.
func (s *Session) LogProp(ctx context.Context, name string) error {
	value, err := s.GetProp(ctx, name)
	if err != nil {
		return err
	}
	s.logger.Info("device property", "name", name, "value", value)
	return nil
}

// LogShell runs a device-side command expecting a single-line value
// and logs it under the given label.
func (s *Session) LogShell(ctx context.Context, label string, args ...string) error {
	value, err := s.ShellString(ctx, args...)
	if err != nil {
		return err
	}
	s.logger.Info("device value", "name", label, "value", value)
	return nil
}

// CtlStart starts a device service through its control property.
func (s *Session) CtlStart(ctx context.Context, service string) error {
	return s.SetProp(ctx, "ctl.start", service)
}

// CtlStop stops a device service through its control property.
func (s *Session) CtlStop(ctx context.Context, service string) error {
	return s.SetProp(ctx, "ctl.stop", service)
}

// SELinuxEnforcing reports whether SELinux is in enforcing mode. The
// device answers with the literal string "Enforcing" or "Permissive".
func (s *Session) SELinuxEnforcing(ctx context.Context) (bool, error) {
	mode, err := s.ShellString(ctx, "getenforce")
	if err != nil {
		return false, err
	}
	return mode == "Enforcing", nil
}

// SetSELinuxEnforcing sets the SELinux mode, escalating privilege if
// the mode actually needs to change. Idempotent: a matching current
// mode issues no setenforce.
func (s *Session) SetSELinuxEnforcing(ctx context.Context, enforcing bool) error {
	current, err := s.SELinuxEnforcing(ctx)
	if err != nil {
		return err
	}
	if current == enforcing {
		return nil
	}
	if err := s.EnsureRoot(ctx); err != nil {
		return err
	}
	value := "0"
	if enforcing {
		value = "1"
	}
	return s.ShellChecked(ctx, 0, "setenforce", value)
}
