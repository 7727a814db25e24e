package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultServiceTypes are the service types scanned when none are given.
// Smart TVs commonly advertise AirPlay and Google Cast receivers.
var DefaultServiceTypes = []string{
	"_airplay._tcp",
	"_googlecast._tcp",
}

// Scanner runs one discovery session at a time and collects the results.
type Scanner struct {
	// ServiceTypes are queried in rotation order
	ServiceTypes []string

	// Timing controls the rotation period, scan ceiling and delays
	Timing Timing

	// Browser is the mDNS primitive; nil means a ZeroconfBrowser per scan
	Browser Browser
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner(serviceTypes ...string) *Scanner {
	if len(serviceTypes) == 0 {
		serviceTypes = DefaultServiceTypes
	}
	return &Scanner{
		ServiceTypes: append([]string(nil), serviceTypes...),
		Timing:       DefaultTiming(),
	}
}

// ScanForDevices discovers all devices on the local network
// Returns a list of discovered devices or an error
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices until the scan finishes or ctx
// is done. Devices found before cancellation are returned with ctx's error.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	var mu sync.Mutex
	devices := make([]*Device, 0)

	err := s.Stream(ctx, func(device *Device) {
		mu.Lock()
		devices = append(devices, device)
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	return devices, err
}

// Stream runs a scan and calls onDevice for every device as it is reported.
// It blocks until the engine finishes the scan or ctx is done. onDevice is
// called from a single goroutine.
func (s *Scanner) Stream(ctx context.Context, onDevice func(*Device)) error {
	browser := s.Browser
	if browser == nil {
		zb := NewZeroconfBrowser()
		defer zb.Close()
		browser = zb
	}

	engine := NewEngine(browser, s.ServiceTypes, WithTiming(s.Timing))
	defer engine.Close()

	finished := make(chan struct{})
	engine.OnDeviceDiscovered(func(name, ip string) {
		onDevice(&Device{
			Name:         name,
			IP:           ip,
			DiscoveredAt: time.Now(),
		})
	})
	engine.OnScanFinished(func() {
		close(finished)
	})
	engine.Start()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		engine.Stop()
		return ctx.Err()
	}
}

// WaitForDevice waits for a device by name
// Returns the device or an error if not found within the scan
func (s *Scanner) WaitForDevice(name string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), name)
}

// WaitForDeviceWithContext waits for a device by name with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, name string) (*Device, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var found *Device
	err := s.Stream(ctx, func(device *Device) {
		mu.Lock()
		defer mu.Unlock()
		if found == nil && device.Name == name {
			found = device
			cancel() // Found the device, stop scanning
		}
	})

	mu.Lock()
	defer mu.Unlock()
	if found != nil {
		return found, nil
	}
	if err != nil {
		return nil, fmt.Errorf("waiting for device %q: %w", name, err)
	}
	return nil, fmt.Errorf("device %q not found within scan", name)
}
