// Package config parses the demo binary's command-line flags: the adb
// binary to drive, the device serial, listen address, and storage paths
// for screenshots and CSV records.
package config

import (
	"github.com/spf13/cobra"
)

// Config holds every flag the demo binary accepts.
type Config struct {
	AdbPath        string
	Serial         string
	ListenAddr     string
	ScreenshotDir  string
	RecordPath     string
	LogLevel       string
	MountPrefix    string
}

// Parse builds a cobra command wired to populate cfg, runs it against
// args, and returns the command's error. run is invoked with the populated
// Config once flags are
// parsed, matching the cobra root-command pattern used elsewhere in the
// pack. listDevices, if non-nil, backs a "devices" subcommand that
// enumerates attached serials instead of starting the server. listApps,
// if non-nil, backs an "apps" subcommand that lists third-party packages
// on the device named by --serial.
func Parse(args []string, run func(Config) error, listDevices func(adbPath string) error, listApps func(adbPath, serial string) error) error {
	cfg := Config{
		AdbPath:       "adb",
		ListenAddr:    ":8080",
		ScreenshotDir: "./screenshots",
		RecordPath:    "./records.csv",
		LogLevel:      "info",
		MountPrefix:   "/screenshots",
	}

	root := &cobra.Command{
		Use:   "veloperfd",
		Short: "Real-time mobile performance telemetry server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.AdbPath, "adb-path", cfg.AdbPath, "path to the adb binary")
	flags.StringVar(&cfg.Serial, "serial", cfg.Serial, "device serial to attach to")
	flags.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP/WebSocket listen address")
	flags.StringVar(&cfg.ScreenshotDir, "screenshot-dir", cfg.ScreenshotDir, "directory to store screenshot artifacts in")
	flags.StringVar(&cfg.RecordPath, "record-path", cfg.RecordPath, "CSV path to persist samples to")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.MountPrefix, "mount-prefix", cfg.MountPrefix, "URL mount prefix for screenshot events")

	if listDevices != nil {
		devicesCmd := &cobra.Command{
			Use:   "devices",
			Short: "List attached adb devices",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listDevices(cfg.AdbPath)
			},
		}
		devicesCmd.Flags().StringVar(&cfg.AdbPath, "adb-path", cfg.AdbPath, "path to the adb binary")
		root.AddCommand(devicesCmd)
	}

	if listApps != nil {
		appsCmd := &cobra.Command{
			Use:   "apps",
			Short: "List third-party packages installed on a device",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listApps(cfg.AdbPath, cfg.Serial)
			},
		}
		appsCmd.Flags().StringVar(&cfg.AdbPath, "adb-path", cfg.AdbPath, "path to the adb binary")
		appsCmd.Flags().StringVar(&cfg.Serial, "serial", cfg.Serial, "device serial to query")
		root.AddCommand(appsCmd)
	}

	root.SetArgs(args)
	return root.Execute()
}
