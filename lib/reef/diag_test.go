// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package reef_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/benchtop-foundation/benchtop/lib/reef"
	"github.com/benchtop-foundation/benchtop/lib/result"
	"github.com/benchtop-foundation/benchtop/lib/transport"
)

func mfgResult(exitCode int, stdout string) *result.Result {
	return result.New([]string{"adb", "shell", "mfg", "camera", "probe"}, exitCode, stdout, "")
}

func TestAssertDiagSucceeded(t *testing.T) {
	if err := reef.AssertDiagSucceeded(mfgResult(0, `{"status": "Success", "lux": 412}`)); err != nil {
		t.Fatalf("AssertDiagSucceeded: %v", err)
	}
}

func TestAssertDiagFailureNamesTheReport(t *testing.T) {
	report := `{"status": "Failure", "detail": "sensor i2c timeout"}`
	err := reef.AssertDiagSucceeded(mfgResult(0, report))
	var assertErr *result.AssertionError
	if !errors.As(err, &assertErr) {
		t.Fatalf("expected an AssertionError, got %v", err)
	}
	if !strings.Contains(assertErr.Reason, report) {
		t.Fatalf("failure reason does not carry the JSON report: %q", assertErr.Reason)
	}
}

func TestAssertDiagRejectsNonJSON(t *testing.T) {
	err := reef.AssertDiagSucceeded(mfgResult(0, "mfg: camera subsystem not ready\n"))
	var assertErr *result.AssertionError
	if !errors.As(err, &assertErr) {
		t.Fatalf("expected an AssertionError, got %v", err)
	}
	if !strings.Contains(assertErr.Reason, "valid JSON") {
		t.Fatalf("unexpected reason for unparseable output: %q", assertErr.Reason)
	}
}

func TestAssertDiagRejectsNonObject(t *testing.T) {
	err := reef.AssertDiagSucceeded(mfgResult(0, `["status", "Success"]`))
	var assertErr *result.AssertionError
	if !errors.As(err, &assertErr) {
		t.Fatalf("expected an AssertionError, got %v", err)
	}
}

func TestAssertDiagRejectsFailedExit(t *testing.T) {
	err := reef.AssertDiagSucceeded(mfgResult(1, `{"status": "Success"}`))
	if err == nil {
		t.Fatal("non-zero exit passed the diag assertion")
	}
}

func TestDiagPrefixesTheTool(t *testing.T) {
	s, script := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"mfg", "battery", "status"},
			Stdout: `{"status": "Success"}`},
	)

	if err := reef.New().DiagChecked(t.Context(), s, "battery", "status"); err != nil {
		t.Fatalf("DiagChecked: %v", err)
	}
	if script.Remaining() != 0 {
		t.Fatalf("%d scripted steps left unconsumed", script.Remaining())
	}
}

func TestCaptureStopsVendorServicesFirst(t *testing.T) {
	ext := reef.New()
	s, script := newSession(t,
		// Stopping the capture pipeline needs privilege.
		transport.Step{Via: transport.ViaDebug, Args: []string{"root"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"cat", "/proc/cmdline"},
			Stdout: "console=ttyMSM0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "kestrel\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"cat", "/sys/devices/soc0/platform_subtype_id"}, Stdout: "164\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"sha1sum", "/vendor/firmware_mnt/image/wlan/bdwlan.elf"},
			Stdout: "8d2e9f1c0a\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"stat", "-c", "%s", "/vendor/firmware_mnt/image/wlan/bdwlan.elf"},
			Stdout: "524288\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"getenforce"}, Stdout: "Enforcing\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"setprop", "ctl.stop", "captureengineservice"}},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"setprop", "ctl.stop", "vendor.camera-provider-2-7"}},
		// Only then does the camera tool run.
		transport.Step{Via: transport.ViaShell,
			Args: []string{"camcapture", "-c", "0", "-o", "/data/local/tmp/frame.raw"}},
		// A second capture reuses the stopped pipeline: just the tool.
		transport.Step{Via: transport.ViaShell, Args: []string{"camcapture", "-c", "0"}},
	)

	if err := ext.Capture(t.Context(), s, "-o", "/data/local/tmp/frame.raw"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if s.VendorServicesEnabled() {
		t.Fatal("vendor services still reported enabled after a capture")
	}

	if err := ext.Capture(t.Context(), s); err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if script.Remaining() != 0 {
		t.Fatalf("%d scripted steps left unconsumed", script.Remaining())
	}
}
