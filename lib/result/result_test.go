// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package result_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/benchtop-foundation/benchtop/lib/result"
)

func TestSucceededTracksExitCode(t *testing.T) {
	ok := result.New([]string{"adb", "shell", "true"}, 0, "", "")
	if !ok.Succeeded() {
		t.Fatal("Succeeded = false for exit code 0")
	}
	if err := ok.AssertSucceeded(); err != nil {
		t.Fatalf("AssertSucceeded on exit 0: %v", err)
	}

	failed := result.New([]string{"adb", "shell", "false"}, 1, "", "boom\n")
	if failed.Succeeded() {
		t.Fatal("Succeeded = true for exit code 1")
	}
	err := failed.AssertSucceeded()
	if err == nil {
		t.Fatal("AssertSucceeded on exit 1 returned nil")
	}

	var assertion *result.AssertionError
	if !errors.As(err, &assertion) {
		t.Fatalf("error is %T, want *result.AssertionError", err)
	}
	if assertion.ExitCode != 1 {
		t.Fatalf("AssertionError.ExitCode = %d, want 1", assertion.ExitCode)
	}
	if assertion.Stderr != "boom\n" {
		t.Fatalf("AssertionError.Stderr = %q, want stderr verbatim", assertion.Stderr)
	}
	if !strings.Contains(err.Error(), "adb shell false") {
		t.Fatalf("error message %q does not include the command", err.Error())
	}
}

func TestAssertStringSingleLine(t *testing.T) {
	r := result.New([]string{"getprop"}, 0, "abc\n", "")
	value, err := r.AssertString()
	if err != nil {
		t.Fatalf("AssertString: %v", err)
	}
	if value != "abc" {
		t.Fatalf("AssertString = %q, want %q", value, "abc")
	}
}

func TestAssertStringRejectsEmpty(t *testing.T) {
	r := result.New([]string{"getprop"}, 0, "", "")
	if _, err := r.AssertString(); err == nil {
		t.Fatal("AssertString accepted empty stdout")
	}
}

func TestAssertStringRejectsMultiLine(t *testing.T) {
	r := result.New([]string{"cat"}, 0, "a\nb\n", "")
	_, err := r.AssertString()
	if err == nil {
		t.Fatal("AssertString accepted multi-line stdout")
	}
	if !strings.Contains(err.Error(), "multiple lines") {
		t.Fatalf("multi-line failure reason missing from %q", err.Error())
	}
}

func TestAssertInt(t *testing.T) {
	r := result.New([]string{"id", "-u"}, 0, "0\n", "")
	n, err := r.AssertInt()
	if err != nil {
		t.Fatalf("AssertInt: %v", err)
	}
	if n != 0 {
		t.Fatalf("AssertInt = %d, want 0", n)
	}
}

func TestAssertIntParseFailureIsDistinct(t *testing.T) {
	r := result.New([]string{"id", "-un"}, 0, "root\n", "")
	_, err := r.AssertInt()
	if err == nil {
		t.Fatal("AssertInt accepted non-numeric stdout")
	}
	// The parse failure must not be reported as the multi-line shape
	// error.
	if !strings.Contains(err.Error(), "integer") {
		t.Fatalf("parse failure reason missing from %q", err.Error())
	}
	if strings.Contains(err.Error(), "multiple lines") {
		t.Fatalf("parse failure reported as shape error: %q", err.Error())
	}
}

func TestContainsIsMultiline(t *testing.T) {
	r := result.New([]string{"adb", "devices"}, 0, "List of devices attached\nABC123\tdevice\n", "")
	if !r.Contains(`^List of devices attached$`) {
		t.Fatal("Contains did not anchor at a line boundary")
	}
	if r.Contains(`^no such line$`) {
		t.Fatal("Contains matched a missing line")
	}
}

func TestSearchReturnsTrimmedGroup(t *testing.T) {
	r := result.New([]string{"adb", "--version"}, 0, "Android Debug Bridge\nVersion 33.0.3-8952829\n", "")
	version, ok := r.Search(`Version ([0-9.]+-[0-9]+)\n`)
	if !ok {
		t.Fatal("Search found no match")
	}
	if version != "33.0.3-8952829" {
		t.Fatalf("Search = %q, want trimmed capture", version)
	}
}

func TestSearchAbsentOnNoMatch(t *testing.T) {
	r := result.New([]string{"true"}, 0, "nothing here\n", "")
	if _, ok := r.Search(`Version ([0-9.]+)`); ok {
		t.Fatal("Search reported a match on non-matching input")
	}
	if _, err := r.AssertSearch(`Version ([0-9.]+)`); err == nil {
		t.Fatal("AssertSearch accepted non-matching input")
	}
}

func TestStderrSearch(t *testing.T) {
	r := result.New([]string{"probe", "--build_info"}, 0, "", "probe build info:\nversion=v2.1-4\n")
	version, ok := r.StderrSearch(`version=v([0-9.-]+)\n`)
	if !ok {
		t.Fatal("StderrSearch found no match")
	}
	if version != "2.1-4" {
		t.Fatalf("StderrSearch = %q, want %q", version, "2.1-4")
	}
}

func TestAssertStderrKeyValueSkipsNonMatching(t *testing.T) {
	stderr := "noise\nalpha=1 unrelated beta=2\nmore noise\nalpha=3\n"
	r := result.New([]string{"diag"}, 0, "", stderr)

	kv, err := r.AssertStderrKeyValue(`(\w+)=(\w+)`)
	if err != nil {
		t.Fatalf("AssertStderrKeyValue: %v", err)
	}
	// Later duplicates overwrite earlier ones.
	if kv["alpha"] != "3" || kv["beta"] != "2" {
		t.Fatalf("AssertStderrKeyValue = %v", kv)
	}
	if _, ok := kv["noise"]; ok {
		t.Fatal("non-matching token collected")
	}
}

func TestAssertStderrKeyValueRequiresSuccess(t *testing.T) {
	r := result.New([]string{"diag"}, 2, "", "alpha=1\n")
	if _, err := r.AssertStderrKeyValue(`(\w+)=(\w+)`); err == nil {
		t.Fatal("AssertStderrKeyValue accepted a failed command")
	}
}

func TestAssertJSONCachesValue(t *testing.T) {
	r := result.New([]string{"mfg", "led", "probe"}, 0, `{"status":"Success"}`, "")
	if r.JSON() != nil {
		t.Fatal("JSON cache populated before AssertJSON")
	}

	value, err := r.AssertJSON()
	if err != nil {
		t.Fatalf("AssertJSON: %v", err)
	}
	object, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("decoded value is %T, want object", value)
	}
	if object["status"] != "Success" {
		t.Fatalf("status = %v", object["status"])
	}
	if r.JSON() == nil {
		t.Fatal("JSON cache not populated after AssertJSON")
	}
}

func TestAssertJSONDecodeFailure(t *testing.T) {
	r := result.New([]string{"mfg", "led", "probe"}, 0, "not json at all\n", "")
	_, err := r.AssertJSON()
	if err == nil {
		t.Fatal("AssertJSON accepted malformed stdout")
	}
	if !strings.Contains(err.Error(), "valid JSON") {
		t.Fatalf("decode failure reason missing from %q", err.Error())
	}
}
