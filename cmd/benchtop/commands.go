// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benchtop-foundation/benchtop/lib/clock"
	"github.com/benchtop-foundation/benchtop/lib/config"
	"github.com/benchtop-foundation/benchtop/lib/interact"
	"github.com/benchtop-foundation/benchtop/lib/plan"
	"github.com/benchtop-foundation/benchtop/lib/reef"
	"github.com/benchtop-foundation/benchtop/lib/session"
	"github.com/benchtop-foundation/benchtop/lib/toolchain"
	"github.com/benchtop-foundation/benchtop/lib/transport"
)

// bindSession discovers the control tools and binds a device session
// per the configuration.
func bindSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session.Session, *reef.Extension, error) {
	tools, err := toolchain.Discover(ctx, cfg.Tools.Debug, cfg.Tools.Flash, logger)
	if err != nil {
		return nil, nil, err
	}
	ext := reef.New()
	s, err := session.Bind(ctx, session.Options{
		Tools:          tools,
		Extension:      ext,
		Interact:       interact.New(cfg.Attended, logger, clock.Real()),
		Logger:         logger,
		Serial:         cfg.Serial,
		Echo:           cfg.Echo,
		RebootEstimate: cfg.RebootEstimate(),
	})
	if err != nil {
		return nil, nil, err
	}
	return s, ext, nil
}

func devicesCmd(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tools, err := toolchain.Discover(ctx, cfg.Tools.Debug, cfg.Tools.Flash, logger)
	if err != nil {
		return err
	}
	listing, err := transport.ListDevices(ctx, tools.Debug)
	if err != nil {
		return err
	}
	if err := listing.AssertSucceeded(); err != nil {
		return err
	}
	fmt.Print(listing.Stdout())
	return nil
}

func statusCmd(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, _, err := bindSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("serial:          %s\n", s.Serial())
	fmt.Printf("identity:        %s\n", s.Identity())
	fmt.Printf("rooted:          %v\n", s.Rooted())
	fmt.Printf("remounted:       %v\n", s.Remounted())
	fmt.Printf("factory mode:    %v\n", s.FactoryMode())
	fmt.Printf("vendor services: %v\n", s.VendorServicesEnabled())
	return nil
}

func factoryModeCmd(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: benchtop factory-mode on|off")
	}
	enabled := args[0] == "on"

	s, _, err := bindSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.EnsureFactoryMode(ctx, enabled); err != nil {
		return err
	}
	fmt.Printf("factory mode %s on %s\n", args[0], s.Serial())
	return nil
}

func checkCmd(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	names := args
	if len(names) == 0 {
		names = []string{"camera-sanity"}
	}

	plans := make([]*plan.Plan, 0, len(names))
	for _, name := range names {
		p, err := resolvePlan(cfg, name)
		if err != nil {
			return err
		}
		plans = append(plans, p)
	}

	s, ext, err := bindSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	runner := &plan.Runner{Session: s, Ext: ext, Logger: logger}
	for _, p := range plans {
		if err := runner.Run(ctx, p); err != nil {
			return err
		}
		fmt.Printf("PASS %s\n", p.Name)
	}
	return nil
}

// resolvePlan looks a plan name up in the configured plan directory
// first, then in the built-in plans. Operator plans shadow built-ins
// of the same name.
func resolvePlan(cfg *config.Config, name string) (*plan.Plan, error) {
	if cfg.PlanDir != "" {
		path := filepath.Join(cfg.PlanDir, name+".jsonc")
		if _, err := os.Stat(path); err == nil {
			return plan.ReadFile(path)
		}
	}
	return plan.Builtin(name)
}

func plansCmd(cfg *config.Config) error {
	if cfg.PlanDir != "" {
		entries, err := os.ReadDir(cfg.PlanDir)
		if err != nil {
			return err
		}
		fmt.Printf("Plans in %s:\n", cfg.PlanDir)
		for _, entry := range entries {
			if filepath.Ext(entry.Name()) != ".jsonc" {
				continue
			}
			fmt.Printf("  %s\n", entry.Name()[:len(entry.Name())-len(".jsonc")])
		}
	}
	fmt.Println("Built-in plans:")
	for _, name := range plan.Builtins() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
