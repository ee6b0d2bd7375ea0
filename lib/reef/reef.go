// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package reef implements the device-family extension for the reef
// family of devices (kestrel and osprey). It supplies identity
// resolution — mapping the device-name property and the numeric board
// revision read from sysfs onto a typed identity — and the
// family-specific operations: manufacturing diagnostics over the
// device's mfg tool, vendor capture-service gating, and the camcapture
// camera tool.
package reef

import (
	"context"
	"fmt"

	"github.com/benchtop-foundation/benchtop/lib/session"
)

// Device-name property values for the two reef family members.
const (
	deviceNameKestrel = "kestrel"
	deviceNameOsprey  = "osprey"
)

// boardRevisionPath is the sysfs file carrying the numeric board
// revision. Readable only with privilege.
const boardRevisionPath = "/sys/devices/soc0/platform_subtype_id"

// wirelessFirmwarePath is the golden wireless firmware image whose
// identity is recorded on privilege gain. Readable only with
// privilege.
const wirelessFirmwarePath = "/vendor/firmware_mnt/image/wlan/bdwlan.elf"

// Family identifies which reef device a session is bound to.
type Family int

const (
	FamilyKestrel Family = iota
	FamilyOsprey
)

func (f Family) String() string {
	switch f {
	case FamilyKestrel:
		return "kestrel"
	case FamilyOsprey:
		return "osprey"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Board is one revision of reef hardware. The set is closed: every
// shipped revision has a numeric code listed in boardsByCode, and a
// code outside the table is a configuration error (the framework does
// not know the hardware variant), never a default.
type Board int

const (
	// Per-family placeholders used when the revision cannot be read
	// without privilege. These are not shipped revisions.
	BoardKestrelUnknown Board = 0
	BoardOspreyUnknown  Board = 1

	// Kestrel revisions.
	BoardKestrelDev0     Board = 160
	BoardKestrelP1       Board = 161 // also P1.1
	BoardKestrelDev0_1   Board = 162
	BoardKestrelReserved Board = 163
	BoardKestrelEVT1     Board = 164
	BoardKestrelEVT1_1   Board = 165

	// Osprey revisions.
	BoardOspreyConfigDev0   Board = 176
	BoardOspreyConfigDev0_1 Board = 177
	BoardOspreyPreP1        Board = 178
)

var boardNames = map[Board]string{
	BoardKestrelUnknown:     "kestrel-unknown",
	BoardOspreyUnknown:      "osprey-unknown",
	BoardKestrelDev0:        "kestrel-dev0",
	BoardKestrelP1:          "kestrel-p1",
	BoardKestrelDev0_1:      "kestrel-dev0.1",
	BoardKestrelReserved:    "kestrel-reserved",
	BoardKestrelEVT1:        "kestrel-evt1",
	BoardKestrelEVT1_1:      "kestrel-evt1.1",
	BoardOspreyConfigDev0:   "osprey-config-dev0",
	BoardOspreyConfigDev0_1: "osprey-config-dev0.1",
	BoardOspreyPreP1:        "osprey-pre-p1",
}

func (b Board) String() string {
	if name, ok := boardNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Board(%d)", int(b))
}

// FormFactor reports whether this revision is built into the product
// enclosure, as opposed to a bare development board.
func (b Board) FormFactor() bool {
	switch b {
	case BoardKestrelP1, BoardKestrelEVT1, BoardKestrelEVT1_1, BoardOspreyPreP1:
		return true
	}
	return false
}

// HasBattery reports whether this revision carries a battery.
// TODO: a battery can be wired to a dev board on the bench; add a
// forced override once a test needs to model that setup.
func (b Board) HasBattery() bool {
	return b.FormFactor()
}

// boardForCode maps a raw sysfs revision code onto the closed board
// table.
func boardForCode(code int) (Board, bool) {
	board := Board(code)
	_, ok := boardNames[board]
	// The placeholders are synthetic and must not be reachable from a
	// device read.
	if board == BoardKestrelUnknown || board == BoardOspreyUnknown {
		return 0, false
	}
	return board, ok
}

// unknownBoard returns the family-level placeholder used when the
// revision cannot be read without privilege.
func unknownBoard(family Family) Board {
	if family == FamilyKestrel {
		return BoardKestrelUnknown
	}
	return BoardOspreyUnknown
}

// Identity is the resolved identity of a reef device.
type Identity struct {
	// RawName is the device-name property value as read.
	RawName string

	// Family is the mapped device family.
	Family Family

	// Board is the mapped revision, or the family placeholder when
	// resolution ran without privilege.
	Board Board
}

func (id Identity) String() string {
	return fmt.Sprintf("%s (%s)", id.Family, id.Board)
}

// Extension is the reef family extension plugged into a device
// session.
type Extension struct{}

// New returns the reef family extension.
func New() *Extension { return &Extension{} }

// ResolveIdentity maps the device-name property and — when privileged
// — the sysfs board revision onto a typed identity. Unprivileged
// resolution substitutes the family placeholder rather than failing.
// An unmapped name or code is a *session.ConfigError: the framework
// does not know the hardware variant yet.
func (e *Extension) ResolveIdentity(ctx context.Context, s *session.Session) (session.Identity, error) {
	rawName, err := s.GetProp(ctx, "ro.product.device")
	if err != nil {
		return nil, err
	}

	var family Family
	switch rawName {
	case deviceNameKestrel:
		family = FamilyKestrel
	case deviceNameOsprey:
		family = FamilyOsprey
	default:
		return nil, &session.ConfigError{Detail: fmt.Sprintf(
			"device name %q does not map to a known family: update the board table", rawName)}
	}

	if !s.Rooted() {
		s.Logger().Info("board revision needs a privileged read; using family placeholder",
			"path", boardRevisionPath)
		return Identity{RawName: rawName, Family: family, Board: unknownBoard(family)}, nil
	}

	code, err := s.FileInt(ctx, boardRevisionPath)
	if err != nil {
		return nil, err
	}
	board, ok := boardForCode(code)
	if !ok {
		return nil, &session.ConfigError{Detail: fmt.Sprintf(
			"board revision %d on %q does not map to a known configuration: update the board table",
			code, rawName)}
	}
	return Identity{RawName: rawName, Family: family, Board: board}, nil
}

// VendorServices lists the capture pipeline services that conflict
// with direct camera access, in stop order.
func (e *Extension) VendorServices() []string {
	return []string{"captureengineservice", "vendor.camera-provider-2-7"}
}

// OnRoot records the wireless firmware identity, which only a
// privileged read can see. A failure here is a real device problem
// (missing or unreadable golden firmware), not something to paper
// over.
func (e *Extension) OnRoot(ctx context.Context, s *session.Session) error {
	if err := s.LogShell(ctx, "wireless firmware sha1", "sha1sum", wirelessFirmwarePath); err != nil {
		return err
	}
	return s.LogShell(ctx, "wireless firmware size", "stat", "-c", "%s", wirelessFirmwarePath)
}
