// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package result wraps the outcome of one executed device-control
// command and provides assertions over it. A Result is immutable once
// constructed (except the one-shot JSON cache populated by AssertJSON)
// and is owned exclusively by the caller that issued the command.
//
// The Assert* methods return a *AssertionError on failure, carrying
// the full argv, exit code, and both output streams so that a failing
// device command can be diagnosed from the error alone. Nothing is
// recovered locally: callers propagate the error and the current
// high-level operation aborts.
package result

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Result holds the captured outcome of one external command: the argv
// that was executed, the process exit code, and the decoded stdout and
// stderr text.
type Result struct {
	argv     []string
	exitCode int
	stdout   string
	stderr   string

	// parsed is populated only by a successful AssertJSON call.
	// Stdout is not parsed eagerly — most commands do not emit JSON.
	parsed any
}

// New constructs a Result from a completed process record. The argv
// slice is copied so later caller mutations cannot alias into the
// Result.
func New(argv []string, exitCode int, stdout, stderr string) *Result {
	return &Result{
		argv:     append([]string(nil), argv...),
		exitCode: exitCode,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// Argv returns a copy of the executed argv.
func (r *Result) Argv() []string { return append([]string(nil), r.argv...) }

// ExitCode returns the process exit code.
func (r *Result) ExitCode() int { return r.exitCode }

// Stdout returns the captured standard output.
func (r *Result) Stdout() string { return r.stdout }

// Stderr returns the captured standard error.
func (r *Result) Stderr() string { return r.stderr }

// CommandString returns the executed command as a single
// space-joined string for log and error messages.
func (r *Result) CommandString() string { return strings.Join(r.argv, " ") }

// JSON returns the value cached by a prior successful AssertJSON call,
// or nil if AssertJSON has not succeeded on this Result.
func (r *Result) JSON() any { return r.parsed }

// Succeeded reports whether the command exited with code 0.
func (r *Result) Succeeded() bool { return r.exitCode == 0 }

// AssertSucceeded returns an *AssertionError if the exit code is
// non-zero.
func (r *Result) AssertSucceeded() error {
	if r.Succeeded() {
		return nil
	}
	return r.Errorf("command exited with code %d", r.exitCode)
}

// Contains reports whether pattern matches stdout. The pattern is
// applied in multiline mode, so ^ and $ anchor at line boundaries.
// The pattern must be a valid regular expression.
func (r *Result) Contains(pattern string) bool {
	return multiline(pattern).MatchString(r.stdout)
}

// StderrContains reports whether pattern matches stderr, in multiline
// mode.
func (r *Result) StderrContains(pattern string) bool {
	return multiline(pattern).MatchString(r.stderr)
}

// AssertContains returns an *AssertionError if pattern does not match
// stdout.
func (r *Result) AssertContains(pattern string) error {
	if r.Contains(pattern) {
		return nil
	}
	return r.Errorf("stdout does not match %q", pattern)
}

// Search returns the first capture group of pattern applied to stdout,
// with trailing line endings trimmed. The second return value is false
// when the pattern does not match; Search never fails.
func (r *Result) Search(pattern string) (string, bool) {
	return search(pattern, r.stdout)
}

// StderrSearch is Search against stderr.
func (r *Result) StderrSearch(pattern string) (string, bool) {
	return search(pattern, r.stderr)
}

// AssertSearch returns the first capture group of pattern applied to
// stdout, or an *AssertionError if the pattern does not match.
func (r *Result) AssertSearch(pattern string) (string, error) {
	value, ok := r.Search(pattern)
	if !ok {
		return "", r.Errorf("stdout does not match %q", pattern)
	}
	return value, nil
}

// AssertString requires success and exactly one non-empty line of
// stdout, and returns that line with surrounding whitespace trimmed.
// Many device properties are single-line values; empty or multi-line
// output indicates the wrong command ran, not a value.
func (r *Result) AssertString() (string, error) {
	if err := r.AssertSucceeded(); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(r.stdout)
	if trimmed == "" {
		return "", r.Errorf("stdout was supposed to be a single-line value, but was empty")
	}
	if strings.Contains(trimmed, "\n") {
		return "", r.Errorf("stdout was supposed to be a single-line value, but had multiple lines")
	}
	return trimmed, nil
}

// AssertInt parses the AssertString value as a base-10 integer. A
// parse failure produces a distinct error from the single-line check
// so the caller can tell "not a number" apart from "wrong shape".
func (r *Result) AssertInt() (int, error) {
	value, err := r.AssertString()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, r.Errorf("stdout was supposed to be a base-10 integer, but was %q", value)
	}
	return n, nil
}

// AssertStderrKeyValue requires success, then scans whitespace-
// delimited stderr tokens with pattern, collecting the first two
// capture groups as key/value pairs. Tokens that do not match are
// skipped rather than failing the call — diagnostic stderr commonly
// interleaves unrelated log lines. Later duplicate keys overwrite
// earlier ones.
func (r *Result) AssertStderrKeyValue(pattern string) (map[string]string, error) {
	if err := r.AssertSucceeded(); err != nil {
		return nil, err
	}
	re := multiline(pattern)
	kv := make(map[string]string)
	for _, token := range strings.Fields(r.stderr) {
		m := re.FindStringSubmatch(token)
		if m == nil || len(m) < 3 {
			continue
		}
		kv[m[1]] = m[2]
	}
	return kv, nil
}

// AssertJSON requires success, parses stdout as JSON, and caches the
// decoded value for retrieval via JSON. A decode failure produces an
// error naming the decoder's message, distinct from any content-level
// assertion a caller may apply afterwards.
func (r *Result) AssertJSON() (any, error) {
	if err := r.AssertSucceeded(); err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(r.stdout), &value); err != nil {
		return nil, r.Errorf("stdout was supposed to be valid JSON, but was not: %v", err)
	}
	r.parsed = value
	return value, nil
}

// Errorf builds an *AssertionError for this Result with a formatted
// reason. Family extensions use this to attach their own content-level
// assertions (for example, a diagnostic JSON status check) with the
// same diagnostic payload as the built-in asserts.
func (r *Result) Errorf(format string, args ...any) *AssertionError {
	return &AssertionError{
		Command:  r.Argv(),
		ExitCode: r.exitCode,
		Stdout:   r.stdout,
		Stderr:   r.stderr,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// search applies pattern in multiline mode and returns the first
// capture group with trailing line endings trimmed. Captured values
// frequently drag a trailing newline along (patterns like
// `Version ([0-9.-]+)\n` written against CRLF output); trimming here
// keeps every caller from repeating it.
func search(pattern, text string) (string, bool) {
	m := multiline(pattern).FindStringSubmatch(text)
	if m == nil || len(m) < 2 {
		return "", false
	}
	return strings.TrimRight(m[1], "\r\n"), true
}

// multiline compiles pattern with the m flag so ^ and $ match at line
// boundaries, mirroring how command output is matched everywhere in
// this package. Patterns are authored as literals in calling code, so
// a malformed pattern is a bug and panics via MustCompile.
func multiline(pattern string) *regexp.Regexp {
	return regexp.MustCompile("(?m)" + pattern)
}

// AssertionError reports a command that ran but whose result did not
// meet the caller's expectation. It always carries the full argv, exit
// code, and both output streams verbatim.
type AssertionError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Reason   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s\nexit code: %d\nstdout:\n%s\nstderr:\n%s",
		strings.Join(e.Command, " "), e.Reason, e.ExitCode, e.Stdout, e.Stderr)
}
