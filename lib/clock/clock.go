// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() with deterministic control over
// when waits complete. Benchtop's only time operations are unattended
// waits (sleeping through an estimated reboot) and deadlines, so the
// interface is deliberately small: Now, Sleep, and After.
package clock

import "time"

// Clock abstracts the time operations Benchtop performs. Every
// production function that would call time.Now, time.Sleep, or
// time.After should accept a Clock (or be a method on a struct with a
// Clock field) instead of calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the current goroutine for at least duration d.
	Sleep(d time.Duration)

	// After returns a channel that receives the current time after
	// duration d elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}
