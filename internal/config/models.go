package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/tvdiscovery/internal/discovery"
)

// CurrentVersion is the settings file format version.
const CurrentVersion = 1

const (
	// DefaultServerHost is the interface the discovery feed binds to
	DefaultServerHost = "127.0.0.1"

	// DefaultServerPort is the discovery feed's TCP port
	DefaultServerPort = 8765
)

// Settings represents the entire user configuration file.
// Discovered devices are never persisted; every scan starts from scratch.
type Settings struct {
	Version   int             `yaml:"version"`
	Discovery *DiscoveryPrefs `yaml:"discovery,omitempty"`
	Server    *ServerPrefs    `yaml:"server,omitempty"`
}

// DiscoveryPrefs holds the scan defaults. Durations are written as Go
// duration strings (e.g., "5s", "1500ms").
type DiscoveryPrefs struct {
	ServiceTypes   []string      `yaml:"service_types,omitempty"`   // Rotation order matters
	RetryInterval  time.Duration `yaml:"retry_interval,omitempty"`  // Rotation period
	ScanTimeout    time.Duration `yaml:"scan_timeout,omitempty"`    // Scan ceiling
	ResolveTimeout time.Duration `yaml:"resolve_timeout,omitempty"` // Per-advertisement lookup timeout
	DeliveryDelay  time.Duration `yaml:"delivery_delay,omitempty"`  // Settle time before reporting a device
}

// ServerPrefs holds the WebSocket discovery feed settings.
type ServerPrefs struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version:   CurrentVersion,
		Discovery: defaultDiscoveryPrefs(),
		Server:    defaultServerPrefs(),
	}
}

func defaultDiscoveryPrefs() *DiscoveryPrefs {
	t := discovery.DefaultTiming()
	return &DiscoveryPrefs{
		ServiceTypes:   append([]string(nil), discovery.DefaultServiceTypes...),
		RetryInterval:  t.RetryInterval,
		ScanTimeout:    t.ScanTimeout,
		ResolveTimeout: t.ResolveTimeout,
		DeliveryDelay:  t.DeliveryDelay,
	}
}

func defaultServerPrefs() *ServerPrefs {
	return &ServerPrefs{
		Host: DefaultServerHost,
		Port: DefaultServerPort,
	}
}

// normalize fills missing sections and zero values with defaults.
func (s *Settings) normalize() {
	if s.Discovery == nil {
		s.Discovery = defaultDiscoveryPrefs()
	}
	if s.Server == nil {
		s.Server = defaultServerPrefs()
	}

	d := defaultDiscoveryPrefs()
	if len(s.Discovery.ServiceTypes) == 0 {
		s.Discovery.ServiceTypes = d.ServiceTypes
	}
	if s.Discovery.RetryInterval <= 0 {
		s.Discovery.RetryInterval = d.RetryInterval
	}
	if s.Discovery.ScanTimeout <= 0 {
		s.Discovery.ScanTimeout = d.ScanTimeout
	}
	if s.Discovery.ResolveTimeout <= 0 {
		s.Discovery.ResolveTimeout = d.ResolveTimeout
	}
	if s.Discovery.DeliveryDelay <= 0 {
		s.Discovery.DeliveryDelay = d.DeliveryDelay
	}

	if s.Server.Host == "" {
		s.Server.Host = DefaultServerHost
	}
	if s.Server.Port == 0 {
		s.Server.Port = DefaultServerPort
	}
}

// Validate checks the settings for values the scanner cannot use.
func (s *Settings) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}
	if s.Discovery != nil {
		for _, st := range s.Discovery.ServiceTypes {
			if err := ValidateServiceType(st); err != nil {
				return err
			}
		}
	}
	if s.Server != nil && (s.Server.Port < 1 || s.Server.Port > 65535) {
		return fmt.Errorf("invalid server port %d: must be between 1 and 65535", s.Server.Port)
	}
	return nil
}

// ValidateServiceType checks that st looks like a DNS-SD service type
// ("_service._tcp" or "_service._udp").
func ValidateServiceType(st string) error {
	st = strings.TrimSuffix(st, ".")
	name, proto, ok := strings.Cut(st, ".")
	if !ok || len(name) < 2 || !strings.HasPrefix(name, "_") {
		return fmt.Errorf("invalid service type %q: expected _name._tcp or _name._udp", st)
	}
	if proto != "_tcp" && proto != "_udp" {
		return fmt.Errorf("invalid service type %q: protocol must be _tcp or _udp", st)
	}
	return nil
}

// Timing converts the discovery preferences to engine timing.
func (d *DiscoveryPrefs) Timing() discovery.Timing {
	return discovery.Timing{
		RetryInterval:  d.RetryInterval,
		ScanTimeout:    d.ScanTimeout,
		ResolveTimeout: d.ResolveTimeout,
		DeliveryDelay:  d.DeliveryDelay,
	}
}

// Addr returns the feed's listen address in host:port form.
func (p *ServerPrefs) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}
