// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan provides parsing, validation, and execution of bench
// check plans. A plan is an ordered sequence of steps — camera
// captures, mfg diagnostics, operator confirmations — authored on disk
// as JSONC files (JSON extended with comments and trailing commas).
//
// The typical flow:
//
//  1. ReadFile, Parse, or Builtin: JSONC bytes → Plan
//  2. Validate: structural checks (capture XOR diag XOR confirm,
//     required labels, parseable timeouts)
//  3. Runner.Run: execute the steps against a bound device session
package plan

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// Plan is one bench check plan.
type Plan struct {
	// Name identifies the plan in logs and error messages.
	Name string `json:"name"`

	// Description is free-form operator documentation.
	Description string `json:"description,omitempty"`

	// Steps run in order. The first failing step aborts the plan.
	Steps []Step `json:"steps"`
}

// Step is one plan step. Exactly one of Capture, Diag, or Confirm is
// set.
type Step struct {
	// Label names the step in logs and error messages. Required.
	Label string `json:"label"`

	// Capture grabs a frame from the camera tool with these extra
	// options. An empty (but present) list runs the tool with its
	// defaults.
	Capture []string `json:"capture,omitempty"`

	// Diag runs one mfg diagnostic subcommand and requires its JSON
	// report to show success.
	Diag []string `json:"diag,omitempty"`

	// Confirm asks the operator to verify something by hand. Skipped
	// (and assumed good) on unattended runs.
	Confirm string `json:"confirm,omitempty"`

	// Timeout bounds a diag step known to run long, in
	// time.ParseDuration syntax. Empty means the transport default.
	Timeout string `json:"timeout,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Plan.
func Parse(data []byte) (*Plan, error) {
	stripped := jsonc.ToJSON(data)

	var p Plan
	if err := json.Unmarshal(stripped, &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	return &p, nil
}

// ReadFile reads a JSONC plan file from disk and parses it.
func ReadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

//go:embed plans/*.jsonc
var builtinFS embed.FS

// Builtins lists the names of the plans shipped in the binary, sorted.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("plans")
	if err != nil {
		// The embedded directory is part of the build; a read failure
		// is a broken binary.
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the named built-in plan.
func Builtin(name string) (*Plan, error) {
	data, err := builtinFS.ReadFile("plans/" + name + ".jsonc")
	if err != nil {
		return nil, fmt.Errorf("no built-in plan %q (available: %s)",
			name, strings.Join(Builtins(), ", "))
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("built-in plan %q: %w", name, err)
	}
	return p, nil
}
