// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package reef_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/benchtop-foundation/benchtop/lib/clock"
	"github.com/benchtop-foundation/benchtop/lib/interact"
	"github.com/benchtop-foundation/benchtop/lib/reef"
	"github.com/benchtop-foundation/benchtop/lib/result"
	"github.com/benchtop-foundation/benchtop/lib/session"
	"github.com/benchtop-foundation/benchtop/lib/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T, steps ...transport.Step) (*session.Session, *transport.Script) {
	t.Helper()
	script := transport.NewScript("KD90211X", steps...)
	ia := interact.NewWithStreams(false, strings.NewReader(""), io.Discard, discardLogger(), clock.Real())
	return session.New(script, reef.New(), ia, discardLogger()), script
}

func TestBoardNames(t *testing.T) {
	cases := []struct {
		board reef.Board
		name  string
	}{
		{reef.BoardKestrelDev0, "kestrel-dev0"},
		{reef.BoardKestrelEVT1_1, "kestrel-evt1.1"},
		{reef.BoardOspreyPreP1, "osprey-pre-p1"},
		{reef.Board(999), "Board(999)"},
	}
	for _, c := range cases {
		if got := c.board.String(); got != c.name {
			t.Errorf("Board(%d).String() = %q, want %q", int(c.board), got, c.name)
		}
	}
}

func TestBoardFormFactor(t *testing.T) {
	if reef.BoardKestrelDev0.FormFactor() {
		t.Error("dev0 is a bare development board")
	}
	if !reef.BoardKestrelEVT1.FormFactor() {
		t.Error("evt1 is an enclosed build")
	}
	if !reef.BoardOspreyPreP1.HasBattery() {
		t.Error("pre-p1 carries a battery")
	}
}

func TestResolveIdentityUnprivileged(t *testing.T) {
	s, script := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"id", "-u"}, Stdout: "2000\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"mount"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "kestrel\n"},
	)

	if err := s.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	id, ok := s.Identity().(reef.Identity)
	if !ok {
		t.Fatalf("identity has type %T", s.Identity())
	}
	if id.Family != reef.FamilyKestrel || id.Board != reef.BoardKestrelUnknown {
		t.Fatalf("identity = %v, want the kestrel placeholder", id)
	}
	if script.Remaining() != 0 {
		t.Fatalf("%d scripted steps left unconsumed", script.Remaining())
	}
}

func TestResolveIdentityPrivileged(t *testing.T) {
	s, _ := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"id", "-u"}, Stdout: "0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"mount"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"cat", "/proc/cmdline"},
			Stdout: "console=ttyMSM0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "osprey\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"cat", "/sys/devices/soc0/platform_subtype_id"}, Stdout: "177\n"},
	)

	if err := s.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	id := s.Identity().(reef.Identity)
	if id.Board != reef.BoardOspreyConfigDev0_1 {
		t.Fatalf("board = %v, want osprey-config-dev0.1", id.Board)
	}
	if id.String() != "osprey (osprey-config-dev0.1)" {
		t.Fatalf("identity string = %q", id.String())
	}
}

func TestResolveIdentityUnknownBoardCode(t *testing.T) {
	s, _ := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"id", "-u"}, Stdout: "0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"mount"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"cat", "/proc/cmdline"},
			Stdout: "console=ttyMSM0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "kestrel\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"cat", "/sys/devices/soc0/platform_subtype_id"}, Stdout: "999\n"},
	)

	err := s.Refresh(t.Context())
	var configErr *session.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("unmapped board code should be a ConfigError, got %v", err)
	}
	var assertErr *result.AssertionError
	if errors.As(err, &assertErr) {
		t.Fatal("unmapped board code is not a device misbehavior")
	}
	if s.Identity() != nil {
		t.Fatal("identity cached although resolution failed")
	}
}

func TestResolveIdentityPlaceholderCodesAreUnmapped(t *testing.T) {
	// Code 0 is the synthetic kestrel placeholder; a device must never
	// resolve to it.
	s, _ := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"id", "-u"}, Stdout: "0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"mount"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"cat", "/proc/cmdline"},
			Stdout: "console=ttyMSM0\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "kestrel\n"},
		transport.Step{Via: transport.ViaShell,
			Args: []string{"cat", "/sys/devices/soc0/platform_subtype_id"}, Stdout: "0\n"},
	)

	err := s.Refresh(t.Context())
	var configErr *session.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("placeholder code should be a ConfigError, got %v", err)
	}
}

func TestResolveIdentityUnknownDeviceName(t *testing.T) {
	s, _ := newSession(t,
		transport.Step{Via: transport.ViaShell, Args: []string{"id", "-u"}, Stdout: "2000\n"},
		transport.Step{Via: transport.ViaShell, Args: []string{"mount"}},
		transport.Step{Via: transport.ViaShell, Args: []string{"getprop", "ro.product.device"},
			Stdout: "heron\n"},
	)

	err := s.Refresh(t.Context())
	var configErr *session.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("unmapped device name should be a ConfigError, got %v", err)
	}
}
