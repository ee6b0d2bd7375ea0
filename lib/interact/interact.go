// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package interact wraps the human-confirmation points used during
// disruptive device transitions. A Session runs in one of two modes:
//
//   - Attended: an operator is present. Disruptive steps block on an
//     explicit ENTER after describing the expected physical action and
//     its rough duration; manual checks block the same way.
//   - Unattended: nobody is watching. Timed confirmations sleep the
//     estimate and proceed; manual checks are skipped and assumed to
//     have passed. Assuming success is a deliberate policy tradeoff —
//     unattended runs favor throughput over certainty.
package interact

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/benchtop-foundation/benchtop/lib/clock"
)

// Prompt styles. ANSI 256-color codes for broad terminal
// compatibility; rendering degrades to plain text when the terminal
// does not support color.
var (
	actionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Session is one attended-or-unattended interaction context. It is
// deliberately independent of the device session: the same Session
// serves every device operation in a run.
type Session struct {
	attended bool
	in       *bufio.Reader
	out      io.Writer
	clock    clock.Clock
	logger   *slog.Logger
	color    bool
}

// New returns a Session reading confirmations from stdin and writing
// prompts to stdout. Color is enabled when the environment reports a
// color-capable terminal.
func New(attended bool, logger *slog.Logger, clk clock.Clock) *Session {
	return &Session{
		attended: attended,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		clock:    clk,
		logger:   logger,
		color:    termenv.EnvColorProfile() != termenv.Ascii,
	}
}

// NewWithStreams is New with explicit streams and no color, for tests.
func NewWithStreams(attended bool, in io.Reader, out io.Writer, logger *slog.Logger, clk clock.Clock) *Session {
	return &Session{
		attended: attended,
		in:       bufio.NewReader(in),
		out:      out,
		clock:    clk,
		logger:   logger,
	}
}

// Attended reports which mode the session runs in.
func (s *Session) Attended() bool { return s.attended }

// ConfirmTimed gates a disruptive transition whose completion the
// operator can observe (a reboot, a mode switch). In attended mode it
// describes the action and blocks until ENTER. In unattended mode it
// sleeps the estimate and proceeds.
func (s *Session) ConfirmTimed(reason string, estimate time.Duration) error {
	if !s.attended {
		s.logger.Info("unattended: waiting out transition",
			"reason", reason, "estimate", estimate)
		s.clock.Sleep(estimate)
		return nil
	}

	fmt.Fprintln(s.out, s.render(actionStyle, reason))
	fmt.Fprintln(s.out, s.render(waitStyle,
		fmt.Sprintf("(estimated to take under %v)", estimate)))
	return s.waitForEnter("Press ENTER to continue ...")
}

// ConfirmManual gates a check that cannot be verified programmatically
// ("confirm the LED is lit"). In attended mode it blocks until ENTER.
// In unattended mode it logs the skipped check and assumes success.
func (s *Session) ConfirmManual(item string) error {
	if !s.attended {
		s.logger.Info("unattended: skipping manual validation", "item", item)
		return nil
	}

	fmt.Fprintln(s.out, s.render(actionStyle, item))
	return s.waitForEnter("Press ENTER to confirm & continue ...")
}

func (s *Session) waitForEnter(prompt string) error {
	fmt.Fprint(s.out, s.render(waitStyle, prompt))
	if _, err := s.in.ReadString('\n'); err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	return nil
}

func (s *Session) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}
