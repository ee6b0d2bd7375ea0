// Copyright 2026 The Benchtop Authors
// SPDX-License-Identifier: Apache-2.0

// benchtop drives manufacturing bring-up checks against one attached
// device through its debug and flashing tools.
//
// Usage:
//
//	benchtop devices
//	benchtop status
//	benchtop factory-mode on|off
//	benchtop check [plan...]
//	benchtop plans
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/benchtop-foundation/benchtop/lib/config"
	"github.com/benchtop-foundation/benchtop/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("benchtop", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to benchtop.yaml (overrides BENCHTOP_CONFIG)")
	serial := flags.String("serial", "", "device serial to bind (default: first attached device)")
	unattended := flags.Bool("unattended", false, "run without an operator at the bench")
	echo := flags.Bool("echo", false, "log every executed tool command line")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Usage = printUsage
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("benchtop %s\n", version.Info())
		return nil
	}

	args := flags.Args()
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Flags override the config file for one-off runs on a shared
	// bench; the file itself stays untouched.
	if *serial != "" {
		cfg.Serial = *serial
	}
	if *unattended {
		cfg.Attended = false
	}
	if *echo {
		cfg.Echo = true
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "help":
		printUsage()
		return nil
	case "plans":
		return plansCmd(cfg)
	case "devices":
		return devicesCmd(ctx, cfg, logger)
	case "status":
		return statusCmd(ctx, cfg, logger)
	case "factory-mode":
		return factoryModeCmd(ctx, cfg, logger, args[1:])
	case "check":
		return checkCmd(ctx, cfg, logger, args[1:])
	}
	return fmt.Errorf("unknown command %q\n\nRun 'benchtop --help' for usage.", args[0])
}

// loadConfig resolves the configuration source: an explicit --config
// path wins, then BENCHTOP_CONFIG, then the built-in defaults. The
// defaults alone are enough for a bench with the tools on PATH.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("BENCHTOP_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func printUsage() {
	fmt.Print(`benchtop - manufacturing bring-up checks for reef devices

USAGE
    benchtop [flags] <command> [args...]

COMMANDS
    devices             List attached devices
    status              Bind a device and report its session state
    factory-mode on|off Switch factory mode through a flashing-mode reboot
    check [plan...]     Run check plans (default: camera-sanity)
    plans               List available check plans

FLAGS
    --config PATH       Config file (overrides BENCHTOP_CONFIG)
    --serial SERIAL     Device serial to bind
    --unattended        Run without an operator at the bench
    --echo              Log every executed tool command line
    --version           Print version and exit

EXAMPLES
    # Run the camera sanity plan on the only attached device
    benchtop check

    # Put a specific device into factory mode, unattended
    benchtop --serial KD90211X --unattended factory-mode on
`)
}
