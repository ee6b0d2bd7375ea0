// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for benchtop.
//
// Configuration is loaded from a single file specified by:
//   - BENCHTOP_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. A bench must behave
// the same on every run; the config file is the single auditable
// source of truth, and environment variables do not override its
// values. The only expansion performed is ${HOME} and similar path
// variables for portability between bench machines.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for benchtop.
type Config struct {
	// Attended declares whether an operator sits at the bench. Attended
	// runs pause at confirmation points; unattended runs substitute
	// timed waits and skip manual checks.
	Attended bool `yaml:"attended"`

	// Echo logs every executed control-tool command line.
	Echo bool `yaml:"echo"`

	// Serial pins the device serial to bind. Empty binds the first
	// attached-and-ready device.
	Serial string `yaml:"serial"`

	// Tools configures the control binaries.
	Tools ToolsConfig `yaml:"tools"`

	// Timeouts configures the bench wait durations.
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// PlanDir is a directory of operator-authored JSONC check plans,
	// looked up by name before the built-in plans. Empty disables the
	// lookup.
	PlanDir string `yaml:"plan_dir"`
}

// ToolsConfig pins the control binary paths. An empty pin means PATH
// discovery; a set pin is authoritative and is not fallen back from.
type ToolsConfig struct {
	// Debug is the path to the debug-bridge binary (adb).
	Debug string `yaml:"debug"`

	// Flash is the path to the flashing binary (fastboot).
	Flash string `yaml:"flash"`
}

// TimeoutsConfig configures bench wait durations, in
// time.ParseDuration syntax.
type TimeoutsConfig struct {
	// RebootEstimate is how long an unattended run waits for a device
	// to land in flashing mode. Default: 30s. Benches with slow boards
	// raise it.
	RebootEstimate string `yaml:"reboot_estimate"`
}

// Default returns the default configuration. These defaults are a base
// under the config file, not a substitute for it.
func Default() *Config {
	return &Config{
		Attended: true,
		Timeouts: TimeoutsConfig{
			RebootEstimate: "30s",
		},
	}
}

// Load loads configuration from the BENCHTOP_CONFIG environment
// variable. There are no fallbacks: if BENCHTOP_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BENCHTOP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BENCHTOP_CONFIG environment variable not set; " +
			"set it to the path of your benchtop.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// path-valued fields.
func (c *Config) expandVariables() {
	c.Tools.Debug = expandVars(c.Tools.Debug)
	c.Tools.Flash = expandVars(c.Tools.Flash)
	c.PlanDir = expandVars(c.PlanDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Timeouts.RebootEstimate != "" {
		if _, err := time.ParseDuration(c.Timeouts.RebootEstimate); err != nil {
			errs = append(errs, fmt.Errorf("timeouts.reboot_estimate: %w", err))
		}
	}
	if c.PlanDir != "" {
		if info, err := os.Stat(c.PlanDir); err != nil {
			errs = append(errs, fmt.Errorf("plan_dir: %w", err))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("plan_dir %s is not a directory", c.PlanDir))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RebootEstimate returns the parsed reboot wait, or zero when unset.
// Call Validate first; an unparseable value reports zero here.
func (c *Config) RebootEstimate() time.Duration {
	if c.Timeouts.RebootEstimate == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeouts.RebootEstimate)
	if err != nil {
		return 0
	}
	return d
}
