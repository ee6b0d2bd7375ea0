// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package reef

import (
	"context"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/result"
	"github.com/benchtop-foundation/benchtop/lib/session"
)

// captureTimeout bounds one camcapture invocation. Exposure sweeps on
// a cold pipeline have been observed just under twenty seconds.
const captureTimeout = 30 * time.Second

// Diag runs one subcommand of the device's mfg diagnostic tool and
// returns the raw Result. mfg reports through a JSON document on
// stdout; use AssertDiagSucceeded for the standard status check.
func (e *Extension) Diag(ctx context.Context, s *session.Session, args ...string) (*result.Result, error) {
	return e.DiagTimed(ctx, s, 0, args...)
}

// DiagTimed is Diag with an explicit timeout for subcommands known to
// run long. A timeout <= 0 means the transport default.
func (e *Extension) DiagTimed(ctx context.Context, s *session.Session, timeout time.Duration, args ...string) (*result.Result, error) {
	return s.Shell(ctx, timeout, append([]string{"mfg"}, args...)...)
}

// DiagChecked runs one mfg subcommand and requires it to report
// success.
func (e *Extension) DiagChecked(ctx context.Context, s *session.Session, args ...string) error {
	r, err := e.Diag(ctx, s, args...)
	if err != nil {
		return err
	}
	return AssertDiagSucceeded(r)
}

// AssertDiagSucceeded checks the mfg JSON report: the document must
// parse and its top-level "status" field must be the literal
// "Success". Anything else is an assertion failure naming the full
// document — mfg encodes its diagnosis in the JSON body, not the exit
// code.
func AssertDiagSucceeded(r *result.Result) error {
	value, err := r.AssertJSON()
	if err != nil {
		return err
	}
	report, ok := value.(map[string]any)
	if !ok {
		return r.Errorf("diagnostic report was supposed to be a JSON object, JSON:\n%s", r.Stdout())
	}
	if status, _ := report["status"].(string); status != "Success" {
		return r.Errorf("diagnostic did not report Success, JSON:\n%s", r.Stdout())
	}
	return nil
}

// Capture grabs a frame from camera 0 with the camcapture tool,
// passing options through verbatim. The vendor capture pipeline holds
// the camera exclusively, so the services are stopped first; the
// caller decides when (or whether) to start them again.
func (e *Extension) Capture(ctx context.Context, s *session.Session, options ...string) error {
	if err := s.EnsureVendorServices(ctx, false); err != nil {
		return err
	}
	args := append([]string{"camcapture", "-c", "0"}, options...)
	return s.ShellChecked(ctx, captureTimeout, args...)
}
