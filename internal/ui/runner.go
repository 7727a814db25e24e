package ui

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/muurk/tvdiscovery/internal/discovery"
)

// ScanRunnerConfig holds configuration for a detailed scan
type ScanRunnerConfig struct {
	Title   string        // Command title (e.g., "Device Scan")
	Command string        // Full command (e.g., "tvdiscovery scan")
	Params  []Param       // Parameters to display in header
	Timeout time.Duration // Scan ceiling, for the progress bar
	Output  io.Writer     // Output writer (default: os.Stdout)
	Live    bool          // Redraw a progress line while scanning
	Width   int           // Overrides the detected terminal width when > 0
}

// ScanFunc runs a scan, calling onDevice for each device as it is reported.
// discovery.Scanner.Stream has this shape.
type ScanFunc func(ctx context.Context, onDevice func(*discovery.Device)) error

// ScanRunner orchestrates the UI for a detailed scan.
// It manages the header → live device list → summary flow.
type ScanRunner struct {
	config   ScanRunnerConfig
	header   *Header
	progress *ScanProgress
	printer  *Printer

	mu        sync.Mutex
	devices   []*discovery.Device
	startTime time.Time
}

// NewScanRunner creates a new runner for a scan command
func NewScanRunner(config ScanRunnerConfig) *ScanRunner {
	printer := NewPrinter(config.Output)
	if config.Width > 0 {
		printer.SetWidth(config.Width)
	}
	width := printer.Width()

	return &ScanRunner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: NewScanProgress("Scanning", config.Timeout).SetWidth(width),
		printer:  printer,
	}
}

// Run executes the scan with UI updates and returns the devices reported.
func (r *ScanRunner) Run(ctx context.Context, scan ScanFunc) ([]*discovery.Device, error) {
	r.startTime = time.Now()
	r.printer.PrintHeader(r.header)

	stopTicker := r.startTicker()
	err := scan(ctx, r.onDevice)
	stopTicker()
	r.printer.ClearLive()

	duration := time.Since(r.startTime)
	devices := r.Devices()

	switch {
	case errors.Is(err, context.Canceled):
		result := NewScanReport(devices, duration)
		result.Type = ResultWarning
		result.Title = "Scan interrupted"
		result.Troubleshooting = nil
		r.printer.PrintResult(result)
	case err != nil:
		r.printer.PrintResult(NewFailureResult("Scan failed", err, ScanFailureTroubleshooting))
	default:
		r.printer.PrintResult(NewScanReport(devices, duration))
	}

	return devices, err
}

// Devices returns the devices reported so far
func (r *ScanRunner) Devices() []*discovery.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*discovery.Device(nil), r.devices...)
}

func (r *ScanRunner) onDevice(device *discovery.Device) {
	r.mu.Lock()
	r.devices = append(r.devices, device)
	index := len(r.devices)
	r.mu.Unlock()

	r.printer.Println(RenderDeviceLine(index, device))
	r.drawProgress()
}

// startTicker redraws the progress line until the returned func is called
func (r *ScanRunner) startTicker() func() {
	if !r.config.Live {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			r.drawProgress()
			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func (r *ScanRunner) drawProgress() {
	if !r.config.Live {
		return
	}
	r.mu.Lock()
	r.progress.Update(time.Since(r.startTime), len(r.devices))
	line := r.progress.Render()
	r.mu.Unlock()
	r.printer.PrintLive(line)
}
