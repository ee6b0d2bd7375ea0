// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"time"
)

// Validate checks a Plan for structural issues. Returns a list of
// human-readable issue descriptions. An empty list means the plan is
// valid.
//
// Structural checks:
//   - The plan must have a non-empty Name
//   - At least one step is required
//   - Each step must have a non-empty Label
//   - Each step must set exactly one of capture, diag, or confirm
//   - Timeout is only valid on diag steps and must be parseable by
//     time.ParseDuration
func Validate(p *Plan) []string {
	var issues []string

	if p.Name == "" {
		issues = append(issues, "plan has no name")
	}
	if len(p.Steps) == 0 {
		issues = append(issues, "plan has no steps (at least one step is required)")
	}

	for index, step := range p.Steps {
		prefix := fmt.Sprintf("steps[%d]", index)
		if step.Label == "" {
			issues = append(issues, fmt.Sprintf("%s: label is required", prefix))
		} else {
			prefix = fmt.Sprintf("%s %q", prefix, step.Label)
		}

		// A present-but-empty capture list is a valid step (the tool's
		// default invocation), so presence is the discriminator, not
		// length.
		hasCapture := step.Capture != nil
		hasDiag := len(step.Diag) > 0
		hasConfirm := step.Confirm != ""

		actionCount := 0
		if hasCapture {
			actionCount++
		}
		if hasDiag {
			actionCount++
		}
		if hasConfirm {
			actionCount++
		}
		switch {
		case actionCount > 1:
			issues = append(issues, fmt.Sprintf(
				"%s: capture, diag, and confirm are mutually exclusive (set exactly one)", prefix))
		case actionCount == 0:
			issues = append(issues, fmt.Sprintf(
				"%s: must set exactly one of capture, diag, or confirm", prefix))
		}

		if step.Timeout != "" {
			if !hasDiag {
				issues = append(issues, fmt.Sprintf("%s: timeout is only valid on diag steps", prefix))
			}
			if _, err := time.ParseDuration(step.Timeout); err != nil {
				issues = append(issues, fmt.Sprintf("%s: invalid timeout %q: %v", prefix, step.Timeout, err))
			}
		}
	}

	return issues
}
