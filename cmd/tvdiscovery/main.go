// Tvdiscovery finds smart TVs and streaming receivers on the local network.
//
// It browses mDNS/DNS-SD service types (AirPlay and Google Cast by default),
// resolves each advertisement and reports the device name and IP address as
// soon as they are known.
//
// Usage:
//
//	tvdiscovery [command] [flags]
//
// Running without arguments opens the live scan screen.
// See 'tvdiscovery --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/tvdiscovery/internal/logging"
	"github.com/muurk/tvdiscovery/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel     string
	scanTimeout  int
	serviceTypes []string
)

var rootCmd = &cobra.Command{
	Use:   "tvdiscovery",
	Short: "Discover TVs and media receivers on the local network",
	Long: `Discover smart TVs and media receivers using mDNS/DNS-SD.

The scanner rotates through the configured service types, resolves every
advertisement it sees once, and reports each device with a numeric IP address.

If no command is specified, the live scan screen opens automatically.
Defaults come from the settings file (see 'tvdiscovery config path').`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Empty falls back to TVDISCOVERY_LOG_LEVEL, then silent
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logs go to stderr")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from settings, 10)")
	rootCmd.PersistentFlags().StringSliceVar(&serviceTypes, "types", nil, "Service types to scan, comma separated (default _airplay._tcp,_googlecast._tcp)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Detailed())
	},
}
