// Package ui provides terminal output components for the tvdiscovery CLI.
//
// This package uses Lipgloss and the Bubbles progress bar to render the
// one-shot `scan` command. Unlike the interactive TUI in internal/tui, these
// components follow a "run once and exit" pattern: they print as the scan
// progresses and never wait for input.
//
// # Architecture
//
//   - Header: Command banner showing the service types and timeout
//   - ScanProgress: Progress bar over the scan timeout with a device count
//   - Result: Success/failure/warning boxes with styled information
//   - Printer: Serialized writer that keeps a live progress line out of the way
//
// ScanRunner ties them together:
//
//	runner := ui.NewScanRunner(ui.ScanRunnerConfig{
//	    Title:   "Device Scan",
//	    Command: "tvdiscovery scan",
//	    Params:  []ui.Param{{Key: "Service types", Value: "_airplay._tcp"}},
//	    Timeout: 10 * time.Second,
//	    Live:    ui.IsTerminal(),
//	})
//	devices, err := runner.Run(ctx, scanner.Stream)
//
// Compact and JSON output skip the decorations; see WriteDevices.
//
// # Logging Integration
//
// Logging is controlled via the TVDISCOVERY_LOG_LEVEL environment variable or
// the --log-level flag. When unset, zap logging is silent so the styled
// output is displayed cleanly. Logs go to stderr.
package ui
