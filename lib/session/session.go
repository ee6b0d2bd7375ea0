// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the device session state machine. A Session is
// bound to exactly one attached device and tracks its privilege,
// mount, factory-mode, and vendor-service state so that expensive or
// disruptive transitions run only when actually needed, in the correct
// order.
//
// The cached flags are advisory: they reflect the last observation,
// not a guarantee. Every operation that performs a reboot cycle
// re-derives the flags afterwards with a full Refresh instead of
// patching individual fields, because a reboot truncates device state
// behind the cache's back.
//
// Device-family behavior (identity resolution, vendor service lists,
// family-specific operations) plugs in through the Extension
// interface; the generic session never special-cases a family.
//
// Sessions are strictly sequential and single-threaded: one command at
// a time, each blocking until the external tool exits or times out.
// Running two sessions against the same device is unsupported.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benchtop-foundation/benchtop/lib/interact"
	"github.com/benchtop-foundation/benchtop/lib/transport"
)

// defaultRebootEstimate is how long an unattended run waits for a
// device to land in flashing mode after a reboot-to-bootloader
// command. There is no programmatic readiness signal; the estimate
// comes from bench observation.
const defaultRebootEstimate = 30 * time.Second

// factoryModeMarker appears in the kernel command line when the
// device booted in factory mode. Reading /proc/cmdline requires
// privilege.
const factoryModeMarker = `androidboot\.factorytest=1`

// remountMarker appears in the mount table once the system partitions
// have been remounted read-write for this boot.
const remountMarker = `overlay on /system type overlay`

// ConfigError reports that the test framework's own knowledge is
// incomplete or its environment is wrong: an unmapped device identity,
// an unknown board revision, no attached device to bind. Distinct from
// a result.AssertionError, which means the device misbehaved.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Detail
}

// Identity is the resolved identity of a bound device. Concrete types
// live in the device-family packages; the generic session only logs
// it.
type Identity interface {
	String() string
}

// Extension supplies the device-family-specific behavior a Session
// composes in. The factory that binds a session selects which
// extension to attach; the session itself has no family knowledge.
type Extension interface {
	// ResolveIdentity derives the device identity during a state
	// refresh. Implementations read the device-name property (always
	// available) and, when the session is privileged, the numeric
	// board revision; unprivileged resolution substitutes a
	// family-level unknown placeholder instead of failing. An
	// unmapped name or revision is a *ConfigError.
	ResolveIdentity(ctx context.Context, s *Session) (Identity, error)

	// VendorServices lists the vendor services gated by
	// EnsureVendorServices, in stop order.
	VendorServices() []string

	// OnRoot runs after privilege escalation succeeds, once the
	// session has re-derived its own privilege-dependent caches.
	// Extensions use it to refresh family state that only privileged
	// reads can observe.
	OnRoot(ctx context.Context, s *Session) error
}

// Session is a bound device session. All mutable state lives here and
// is mutated only through Session methods.
type Session struct {
	transport transport.Transport
	interact  *interact.Session
	ext       Extension
	logger    *slog.Logger

	rebootEstimate time.Duration

	// Cached device state. Advisory — see the package comment.
	rooted                bool
	remounted             bool
	factoryMode           bool
	vendorServicesEnabled bool
	identity              Identity
}

// New constructs a Session over an already-bound transport. The
// caller is expected to run Refresh before relying on any cached
// state; Bind does both.
func New(t transport.Transport, ext Extension, ia *interact.Session, logger *slog.Logger) *Session {
	return &Session{
		transport:      t,
		interact:       ia,
		ext:            ext,
		logger:         logger,
		rebootEstimate: defaultRebootEstimate,

		// Vendor services run by default on a freshly booted device.
		vendorServicesEnabled: true,
	}
}

// SetRebootEstimate overrides the unattended wait applied after a
// reboot-to-flashing-mode command. Tests shorten it; bench setups with
// slow boards lengthen it.
func (s *Session) SetRebootEstimate(d time.Duration) {
	if d > 0 {
		s.rebootEstimate = d
	}
}

// Serial returns the bound device serial.
func (s *Session) Serial() string { return s.transport.Serial() }

// Transport exposes the underlying transport for family extensions
// that need raw command access.
func (s *Session) Transport() transport.Transport { return s.transport }

// Interact exposes the interaction session for family operations with
// their own confirmation points.
func (s *Session) Interact() *interact.Session { return s.interact }

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Rooted reports the cached privilege state.
func (s *Session) Rooted() bool { return s.rooted }

// Remounted reports the cached remount state.
func (s *Session) Remounted() bool { return s.remounted }

// FactoryMode reports the cached factory-mode state. Meaningful only
// while rooted — without privilege the detection read is impossible
// and the flag stays false.
func (s *Session) FactoryMode() bool { return s.factoryMode }

// VendorServicesEnabled reports the cached vendor-service state.
func (s *Session) VendorServicesEnabled() bool { return s.vendorServicesEnabled }

// Identity returns the resolved device identity, or nil before the
// first successful Refresh.
func (s *Session) Identity() Identity { return s.identity }

// Refresh re-derives every cached flag and the device identity from
// the device itself. It runs at bind time and after every reboot
// cycle; calling it again at any point is safe and idempotent.
func (s *Session) Refresh(ctx context.Context) error {
	rooted, err := s.isRooted(ctx)
	if err != nil {
		return err
	}
	s.rooted = rooted

	remounted, err := s.isRemounted(ctx)
	if err != nil {
		return err
	}
	s.remounted = remounted

	if err := s.refreshFactoryMode(ctx); err != nil {
		return err
	}

	identity, err := s.ext.ResolveIdentity(ctx, s)
	if err != nil {
		return err
	}
	s.identity = identity

	// Boot starts the vendor services; a refresh after a reboot cycle
	// therefore restores the default rather than carrying a stale
	// "disabled" over the reboot.
	s.vendorServicesEnabled = true

	s.logger.Info("device state",
		"serial", s.Serial(),
		"identity", identity.String(),
		"rooted", s.rooted,
		"remounted", s.remounted,
		"factory_mode", s.factoryMode)
	return nil
}

// isRooted checks whether the debug shell runs as uid 0.
func (s *Session) isRooted(ctx context.Context) (bool, error) {
	r, err := s.transport.Shell(ctx, 0, "id", "-u")
	if err != nil {
		return false, err
	}
	uid, err := r.AssertInt()
	if err != nil {
		return false, err
	}
	return uid == 0, nil
}

// isRemounted checks the mount table for the overlay the remount
// operation installs.
func (s *Session) isRemounted(ctx context.Context) (bool, error) {
	r, err := s.transport.Shell(ctx, 0, "mount")
	if err != nil {
		return false, err
	}
	if err := r.AssertSucceeded(); err != nil {
		return false, err
	}
	return r.Contains(remountMarker), nil
}

// refreshFactoryMode re-derives the factory-mode flag. Without
// privilege the kernel command line is unreadable and the flag is
// reported false rather than failing; it is re-derived on privilege
// gain.
func (s *Session) refreshFactoryMode(ctx context.Context) error {
	if !s.rooted {
		s.factoryMode = false
		return nil
	}
	r, err := s.transport.Shell(ctx, 0, "cat", "/proc/cmdline")
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}
	s.factoryMode = r.Contains(factoryModeMarker)
	return nil
}

// EnsureRoot escalates the debug transport to privileged mode. A
// no-op when the cache already shows privilege. On a fresh
// escalation, privilege-dependent caches (factory mode, identity) are
// re-derived and the extension's OnRoot hook runs.
func (s *Session) EnsureRoot(ctx context.Context) error {
	if s.rooted {
		return nil
	}
	s.logger.Info("escalating to privileged debug transport")
	r, err := s.transport.Run(ctx, 0, "root")
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}
	s.rooted = true

	// Privileged reads are available now: re-derive what depended on
	// them.
	if err := s.refreshFactoryMode(ctx); err != nil {
		return err
	}
	identity, err := s.ext.ResolveIdentity(ctx, s)
	if err != nil {
		return err
	}
	s.identity = identity

	return s.ext.OnRoot(ctx, s)
}

// Unroot drops privilege. Rare, and device-state-changing: remount
// and factory-mode observations made under privilege stay cached but
// cannot be re-verified until the next escalation.
func (s *Session) Unroot(ctx context.Context) error {
	r, err := s.transport.Run(ctx, 0, "unroot")
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}
	s.rooted = false
	return nil
}

// EnsureRemounted makes the system partitions writable for this boot.
// A no-op when the cache already shows the remount. Does not imply
// privilege — callers escalate first when their transport needs it.
func (s *Session) EnsureRemounted(ctx context.Context) error {
	if s.remounted {
		return nil
	}
	r, err := s.transport.Run(ctx, 0, "remount")
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}
	s.remounted = true
	return nil
}

// WaitForDevice blocks until the device reappears on the debug
// transport after a reboot, using the transport's own long-timeout
// wait primitive. With waitRoot, it additionally waits for the
// privileged transport to come back. This is the join point after
// every disruptive transition; its timeout is the only bound.
func (s *Session) WaitForDevice(ctx context.Context, waitRoot bool) error {
	args := []string{"wait-for-device"}
	if waitRoot {
		args = append(args, "root")
	}
	s.logger.Info("waiting for device to return", "wait_root", waitRoot)
	r, err := s.transport.Run(ctx, transport.WaitTimeout, args...)
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}
	s.logger.Info("device is back")
	return nil
}

// EnsureFactoryMode reboots the device through flashing mode until its
// factory-mode state matches enabled. A no-op when the cache already
// matches. Requires privilege (detection reads the kernel command
// line). The reboot cycle invalidates every cached flag, so the
// operation finishes with a full Refresh and then verifies the device
// actually came back in the requested mode.
func (s *Session) EnsureFactoryMode(ctx context.Context, enabled bool) error {
	if err := s.EnsureRoot(ctx); err != nil {
		return err
	}
	if s.factoryMode == enabled {
		return nil
	}

	s.logger.Info("factory mode switch requires a reboot cycle",
		"current", s.factoryMode, "target", enabled)
	if err := s.rebootToFlashing(ctx); err != nil {
		return err
	}

	subcommand := "disable-factory-mode"
	if enabled {
		subcommand = "enable-factory-mode"
	}
	r, err := s.transport.Flash(ctx, 0, "oem", subcommand)
	if err != nil {
		return err
	}
	if err := r.AssertSucceeded(); err != nil {
		return err
	}

	// The flashing-mode reboot drops the connection as a matter of
	// course; its exit code carries no signal. WaitForDevice is the
	// success check.
	if _, err := s.transport.Flash(ctx, 0, "reboot"); err != nil {
		return err
	}
	if err := s.WaitForDevice(ctx, true); err != nil {
		return err
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if s.factoryMode != enabled {
		return &ConfigError{Detail: fmt.Sprintf(
			"device %s did not come back with factory mode %v after the reboot cycle",
			s.Serial(), enabled)}
	}
	s.logger.Info("factory mode switched", "factory_mode", enabled)
	return nil
}

// rebootToFlashing confirms the physical reset with the operator,
// reboots into the flashing-mode transport, and waits out the
// transition. The reboot command's exit code is not asserted: the
// connection drops mid-command when the reboot works.
func (s *Session) rebootToFlashing(ctx context.Context) error {
	if err := s.interact.ConfirmManual("Initiate device reset"); err != nil {
		return err
	}
	s.logger.Info("rebooting device to flashing mode")
	if _, err := s.transport.Run(ctx, 0, "reboot", "bootloader"); err != nil {
		return err
	}
	return s.interact.ConfirmTimed(
		"Verify on the serial console that the device reached flashing mode",
		s.rebootEstimate)
}

// EnsureVendorServices starts or stops the family's vendor services.
// A no-op when the cache already matches. Requires privilege; sets
// SELinux to enforcing before touching the services, matching the
// vendor's supported configuration. Cheap: no reboot involved.
func (s *Session) EnsureVendorServices(ctx context.Context, enabled bool) error {
	if s.vendorServicesEnabled == enabled {
		return nil
	}
	if err := s.EnsureRoot(ctx); err != nil {
		return err
	}
	if err := s.SetSELinuxEnforcing(ctx, true); err != nil {
		return err
	}
	for _, service := range s.ext.VendorServices() {
		var err error
		if enabled {
			err = s.CtlStart(ctx, service)
		} else {
			err = s.CtlStop(ctx, service)
		}
		if err != nil {
			return err
		}
	}
	s.vendorServicesEnabled = enabled
	s.logger.Info("vendor services gated", "enabled", enabled)
	return nil
}

// Close ends the session. Per the documented teardown policy, vendor
// services are not re-enabled automatically: the calling script owns
// restoration, because an automatic restart races with whatever state
// the operator left the device in. Close only makes the omission
// visible.
func (s *Session) Close() {
	if !s.vendorServicesEnabled {
		s.logger.Warn("session closing with vendor services disabled; "+
			"re-enable with EnsureVendorServices or reboot the device",
			"serial", s.Serial())
	}
}
