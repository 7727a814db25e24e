// Package logging provides structured logging for tvdiscovery.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the discovery engine, the CLI and the WebSocket feed.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Query rotation, dedup hits, dropped resolutions, WebSocket frames
//   - Info: Scan start/finish, discovered devices, connections
//   - Warn: Non-fatal issues (failed queries, failed lookups)
//   - Error: Startup failures
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Scan started",
//	    zap.Strings("service_types", []string{"_airplay._tcp"}),
//	    zap.Uint64("generation", 3),
//	)
//
// # Configuration
//
// Logging is silent unless a level is requested, so the curated CLI output is
// not interleaved with log lines:
//
//	TVDISCOVERY_LOG_LEVEL=debug tvdiscovery scan
//
// or programmatically:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Log output goes to stderr in console format.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once the logger has been
// initialized. Initialize and SetLogger are meant to be called during startup.
package logging
