// Package config provides user configuration management for tvdiscovery.
//
// This package manages a YAML-based settings file holding scan defaults
// (service types and timing) and the discovery feed's listen address.
// Command-line flags override whatever the file says.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/tvdiscovery/config.yaml or $HOME/.config/tvdiscovery/config.yaml
//   - macOS: $HOME/.config/tvdiscovery/config.yaml
//   - Windows: %LOCALAPPDATA%\tvdiscovery\config.yaml
//
// # File Format
//
//	version: 1
//	discovery:
//	  service_types:
//	    - _airplay._tcp
//	    - _googlecast._tcp
//	  retry_interval: 5s
//	  scan_timeout: 10s
//	  resolve_timeout: 5s
//	  delivery_delay: 1s
//	server:
//	  host: 127.0.0.1
//	  port: 8765
//
// Missing sections and zero durations fall back to defaults.
//
// # Thread Safety
//
// The global settings use sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
