// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/reef"
	"github.com/benchtop-foundation/benchtop/lib/session"
)

// Runner executes plans against one bound device session.
type Runner struct {
	Session *session.Session
	Ext     *reef.Extension
	Logger  *slog.Logger
}

// Run validates p and executes its steps in order. The first failing
// step aborts the run; the returned error names the step and wraps the
// underlying failure, so callers can still classify it with errors.As.
func (r *Runner) Run(ctx context.Context, p *Plan) error {
	if issues := Validate(p); len(issues) > 0 {
		return fmt.Errorf("plan %q is invalid:\n  %s", p.Name, strings.Join(issues, "\n  "))
	}

	r.Logger.Info("running check plan", "plan", p.Name, "steps", len(p.Steps))
	for index, step := range p.Steps {
		r.Logger.Info("check step", "plan", p.Name, "step", step.Label,
			"index", index+1, "total", len(p.Steps))
		if err := r.runStep(ctx, step); err != nil {
			return fmt.Errorf("plan %q step %q: %w", p.Name, step.Label, err)
		}
	}
	r.Logger.Info("check plan passed", "plan", p.Name)
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch {
	case step.Capture != nil:
		return r.Ext.Capture(ctx, r.Session, step.Capture...)

	case len(step.Diag) > 0:
		var timeout time.Duration
		if step.Timeout != "" {
			// Validate already proved this parses.
			timeout, _ = time.ParseDuration(step.Timeout)
		}
		result, err := r.Ext.DiagTimed(ctx, r.Session, timeout, step.Diag...)
		if err != nil {
			return err
		}
		return reef.AssertDiagSucceeded(result)

	case step.Confirm != "":
		return r.Session.Interact().ConfirmManual(step.Confirm)
	}
	// Unreachable after Validate.
	return fmt.Errorf("step has no action")
}
