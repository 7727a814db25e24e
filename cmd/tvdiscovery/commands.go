package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tvdiscovery/internal/config"
	"github.com/muurk/tvdiscovery/internal/discovery"
	"github.com/muurk/tvdiscovery/internal/server"
	"github.com/muurk/tvdiscovery/internal/tui"
	"github.com/muurk/tvdiscovery/internal/ui"
)

// Command flags
var (
	outputFormat   string
	deviceName     string
	serveHost      string
	servePort      int
	certPath       string
	keyPath        string
	allowedOrigins []string
	forceInit      bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// newScanner builds a scanner from the settings file with flag overrides
func newScanner(cmd *cobra.Command) (*discovery.Scanner, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	scanner := discovery.NewScanner(settings.Discovery.ServiceTypes...)
	scanner.Timing = settings.Discovery.Timing()

	if cmd.Flags().Changed("types") {
		types, err := parseTypesFlag(serviceTypes)
		if err != nil {
			return nil, err
		}
		scanner.ServiceTypes = types
	}
	if cmd.Flags().Changed("timeout") {
		if scanTimeout <= 0 {
			return nil, fmt.Errorf("--timeout must be positive, got %d", scanTimeout)
		}
		scanner.Timing = scanner.Timing.WithScanTimeout(time.Duration(scanTimeout) * time.Second)
	}

	return scanner, nil
}

func parseTypesFlag(values []string) ([]string, error) {
	var types []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := config.ValidateServiceType(v); err != nil {
			return nil, fmt.Errorf("invalid --types: %w", err)
		}
		types = append(types, v)
	}
	if len(types) == 0 {
		return nil, errors.New("--types needs at least one service type")
	}
	return types, nil
}

// signalContext is cancelled on Ctrl+C so scans can report what they found
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// scanCmd runs a single scan and prints the results
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the network once and list devices",
	Long: `Scan for TVs and media receivers using mDNS/DNS-SD.

Devices are printed as soon as they are resolved. The scan ends when the
timeout is reached, or when --name is given and that device is found.`,
	Example: `  # Scan for 10 seconds (default)
  tvdiscovery scan

  # Quick 3-second scan for Google Cast only
  tvdiscovery scan --timeout 3 --types _googlecast._tcp

  # Tab-separated output for scripts
  tvdiscovery scan --format compact

  # Wait for one device and print it as JSON
  tvdiscovery scan --name "Living Room TV" --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	scanCmd.Flags().StringVar(&deviceName, "name", "", "Wait for the device with this name and exit")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := ui.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	scanner, err := newScanner(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if deviceName != "" {
		return runFind(ctx, cmd, scanner, format)
	}

	if format != ui.FormatDetailed {
		devices, err := scanner.ScanForDevicesWithContext(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scan failed: %w", err)
		}
		return ui.WriteDevices(cmd.OutOrStdout(), devices, format)
	}

	runner := ui.NewScanRunner(ui.ScanRunnerConfig{
		Title:   "Device Scan",
		Command: "tvdiscovery scan",
		Params:  scanParams(scanner),
		Timeout: scanner.Timing.ScanTimeout,
		Output:  cmd.OutOrStdout(),
		Live:    ui.IsTerminal(),
	})
	if _, err := runner.Run(ctx, scanner.Stream); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// runFind waits for a single named device
func runFind(ctx context.Context, cmd *cobra.Command, scanner *discovery.Scanner, format ui.Format) error {
	device, err := scanner.WaitForDeviceWithContext(ctx, deviceName)
	if err != nil {
		return err
	}

	if format != ui.FormatDetailed {
		return ui.WriteDevices(cmd.OutOrStdout(), []*discovery.Device{device}, format)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintResult(ui.NewSuccessResult("Device found",
		ui.Detail{Key: "Name", Value: device.Name},
		ui.Detail{Key: "IP", Value: device.IP},
	))
	return nil
}

func scanParams(scanner *discovery.Scanner) []ui.Param {
	return []ui.Param{
		{Key: "Service types", Value: strings.Join(scanner.ServiceTypes, ", ")},
		{Key: "Timeout", Value: scanner.Timing.ScanTimeout.String()},
		{Key: "Rotation", Value: "every " + scanner.Timing.RetryInterval.String()},
	}
}

// watchCmd opens the live scan screen
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live scan screen",
	Long: `Open a full-screen view that lists devices as they are discovered.

Press r to rescan, / to filter and enter to print the selected device and exit.
This is also what 'tvdiscovery' runs without a command. When output is not a
terminal, a plain scan is run instead.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		outputFormat = string(ui.FormatCompact)
		return runScan(cmd, args)
	}

	scanner, err := newScanner(cmd)
	if err != nil {
		return err
	}

	device, err := tui.Run(tui.Config{
		Scan:         scanner.Stream,
		Timeout:      scanner.Timing.ScanTimeout,
		ServiceTypes: scanner.ServiceTypes,
	})
	if err != nil {
		return err
	}
	if device != nil {
		fmt.Fprintln(cmd.OutOrStdout(), device.String())
	}
	return nil
}

// serveCmd runs the WebSocket discovery feed
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovery results over WebSocket",
	Long: `Start an HTTP server that runs a scan for every WebSocket client.

Clients connect to /scan (optionally /scan?types=_airplay._tcp,...) and
receive one JSON message per device followed by a finished message.
GET /healthz reports the server status.

Serve over wss:// by passing both --cert and --key.`,
	Example: `  # Listen on the settings file address (default 127.0.0.1:8765)
  tvdiscovery serve

  # Listen on all interfaces
  tvdiscovery serve --host 0.0.0.0 --port 9000

  # Serve over TLS with debug logging
  tvdiscovery serve --cert cert.pem --key key.pem --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (default from settings, 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from settings, 8765)")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allow-origin", nil, "Extra browser origins allowed to connect")
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	scanner, err := newScanner(cmd)
	if err != nil {
		return err
	}

	addr, err := serveAddr(cmd, *settings.Server)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Addr:           addr,
		CertPath:       certPath,
		KeyPath:        keyPath,
		ServiceTypes:   scanner.ServiceTypes,
		Timing:         scanner.Timing,
		AllowedOrigins: allowedOrigins,
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	scheme := "ws"
	if certPath != "" {
		scheme = "wss"
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader(ui.NewHeader("Discovery Feed", "tvdiscovery serve", []ui.Param{
		{Key: "Feed", Value: fmt.Sprintf("%s://%s/scan", scheme, srv.Addr())},
		{Key: "Service types", Value: strings.Join(scanner.ServiceTypes, ", ")},
		{Key: "Timeout", Value: scanner.Timing.ScanTimeout.String()},
	}))
	printer.Println("Press Ctrl+C to stop.")

	return srv.Start()
}

// serveAddr applies --host and --port to the settings file address
func serveAddr(cmd *cobra.Command, prefs config.ServerPrefs) (string, error) {
	if cmd.Flags().Changed("host") {
		prefs.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		if servePort < 1 || servePort > 65535 {
			return "", fmt.Errorf("--port must be between 1 and 65535, got %d", servePort)
		}
		prefs.Port = servePort
	}
	return prefs.Addr(), nil
}

// configCmd groups settings file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(forceInit)
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		if err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintResult(ui.NewSuccessResult("Settings file created",
			ui.Detail{Key: "Path", Value: path},
		))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		settings, err := config.LoadSettings()
		if err != nil {
			return err
		}
		data, err := settings.Marshal(path)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing settings file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
