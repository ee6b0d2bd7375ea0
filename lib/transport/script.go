// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/result"
)

// Via identifies which call shape a scripted step expects.
type Via string

const (
	// ViaDebug is a raw debug-tool invocation (Run).
	ViaDebug Via = "debug"
	// ViaFlash is a flashing-tool invocation (Flash).
	ViaFlash Via = "flash"
	// ViaShell is a device-side shell invocation (Shell).
	ViaShell Via = "shell"
)

// Step is one expected call in a Script, with the canned outcome to
// return for it.
type Step struct {
	// Via is the call shape this step expects.
	Via Via

	// Args is the expected argument list (after the serial selector,
	// and after the implicit "shell" for ViaShell). Nil accepts any
	// arguments.
	Args []string

	// ExitCode, Stdout, and Stderr form the canned Result.
	ExitCode int
	Stdout   string
	Stderr   string

	// Err, when non-nil, is returned instead of a Result — it models
	// a transport-level failure such as a timeout.
	Err error
}

// Call records one invocation a Script received.
type Call struct {
	Via  Via
	Args []string
}

// Script is an in-memory Transport for tests: it verifies each call
// against an ordered list of expected steps and returns the canned
// outcome. Device sessions are strictly sequential, so a mismatch in
// order or shape is a test failure surfaced as a transport error.
type Script struct {
	serial string
	steps  []Step
	calls  []Call
}

// NewScript returns a Script bound to the given serial that will serve
// the steps in order.
func NewScript(serial string, steps ...Step) *Script {
	return &Script{serial: serial, steps: steps}
}

// Calls returns every invocation the script has received, in order.
func (s *Script) Calls() []Call { return s.calls }

// Remaining returns the number of scripted steps not yet consumed.
// Tests assert this is zero to prove every expected transition ran.
func (s *Script) Remaining() int { return len(s.steps) }

// Serial returns the bound serial.
func (s *Script) Serial() string { return s.serial }

// Run consumes the next ViaDebug step.
func (s *Script) Run(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	return s.next(ViaDebug, args)
}

// Flash consumes the next ViaFlash step.
func (s *Script) Flash(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	return s.next(ViaFlash, args)
}

// Shell consumes the next ViaShell step.
func (s *Script) Shell(ctx context.Context, timeout time.Duration, args ...string) (*result.Result, error) {
	return s.next(ViaShell, args)
}

func (s *Script) next(via Via, args []string) (*result.Result, error) {
	s.calls = append(s.calls, Call{Via: via, Args: append([]string(nil), args...)})

	if len(s.steps) == 0 {
		return nil, fmt.Errorf("unscripted %s call: %v", via, args)
	}
	step := s.steps[0]
	s.steps = s.steps[1:]

	if step.Via != via {
		return nil, fmt.Errorf("scripted %s call arrived as %s: %v", step.Via, via, args)
	}
	if step.Args != nil && !slices.Equal(step.Args, args) {
		return nil, fmt.Errorf("scripted %s call expected args %v, got %v", via, step.Args, args)
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return result.New(args, step.ExitCode, step.Stdout, step.Stderr), nil
}
