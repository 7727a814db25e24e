package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muurk/tvdiscovery/internal/discovery"
)

func testDevices() []*discovery.Device {
	return []*discovery.Device{
		{Name: "Living Room TV", IP: "192.168.1.20"},
		{Name: "Bedroom", IP: "fe80::1%en0"},
	}
}

func TestHeader_Render(t *testing.T) {
	h := NewHeader("Device Scan", "tvdiscovery scan", []Param{
		{Key: "Service types", Value: "_airplay._tcp, _googlecast._tcp"},
		{Key: "Timeout", Value: "10s"},
	}).SetWidth(80)

	out := h.Render()

	for _, want := range []string{"DEVICE SCAN", "tvdiscovery scan", "Service types:", "_airplay._tcp, _googlecast._tcp", "Timeout:", "10s"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Service types:") > strings.Index(out, "Timeout:") {
		t.Error("Render() should keep parameter order")
	}
}

func TestResult_Render(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Scan complete", Detail{Key: "Devices", Value: "2"}),
			want:   []string{SuccessMarker, "SUCCESS", "Scan complete", "Devices:", "2"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Scan failed", errors.New("no multicast"), []string{"Check the network"}),
			want:   []string{FailureMarker, "FAILED", "Error: no multicast", "Troubleshooting:", "Check the network"},
		},
		{
			name:   "warning",
			result: NewWarningResult("No devices found", []string{"Power on the TV"}),
			want:   []string{WarningMarker, "WARNING", "No devices found", "Power on the TV"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestNewScanReport(t *testing.T) {
	t.Run("devices found", func(t *testing.T) {
		r := NewScanReport(testDevices(), 10*time.Second)
		if r.Type != ResultSuccess {
			t.Errorf("Type = %v, want ResultSuccess", r.Type)
		}
		if len(r.Body) != 2 {
			t.Fatalf("Body has %d lines, want 2", len(r.Body))
		}
		if !strings.Contains(r.Body[0], "Living Room TV") || !strings.Contains(r.Body[0], "192.168.1.20") {
			t.Errorf("first line = %q", r.Body[0])
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		r := NewScanReport(nil, 10*time.Second)
		if r.Type != ResultWarning {
			t.Errorf("Type = %v, want ResultWarning", r.Type)
		}
		if len(r.Troubleshooting) == 0 {
			t.Error("empty scan should carry troubleshooting tips")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatDetailed, false},
		{"detailed", FormatDetailed, false},
		{"COMPACT", FormatCompact, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteDevices(t *testing.T) {
	t.Run("compact", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDevices(&buf, testDevices(), FormatCompact); err != nil {
			t.Fatalf("WriteDevices() error = %v", err)
		}
		want := "Living Room TV\t192.168.1.20\nBedroom\tfe80::1%en0\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDevices(&buf, testDevices(), FormatJSON); err != nil {
			t.Fatalf("WriteDevices() error = %v", err)
		}
		var got []discovery.Device
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
		}
		if len(got) != 2 || got[1].IP != "fe80::1%en0" {
			t.Errorf("decoded = %+v", got)
		}
	})

	t.Run("json with no devices", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDevices(&buf, nil, FormatJSON); err != nil {
			t.Fatalf("WriteDevices() error = %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("output = %q, want []", buf.String())
		}
	})

	t.Run("detailed", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDevices(&buf, testDevices()[:1], FormatDetailed); err != nil {
			t.Fatalf("WriteDevices() error = %v", err)
		}
		if buf.String() != "Living Room TV at 192.168.1.20\n" {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestScanProgress_Percent(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		elapsed time.Duration
		want    float64
	}{
		{"start", 10 * time.Second, 0, 0},
		{"halfway", 10 * time.Second, 5 * time.Second, 0.5},
		{"overshoot is capped", 10 * time.Second, 15 * time.Second, 1},
		{"no timeout", 0, 5 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewScanProgress("Scanning", tt.timeout)
			p.Update(tt.elapsed, 0)
			if got := p.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanProgress_Render(t *testing.T) {
	p := NewScanProgress("Scanning", 10*time.Second).SetWidth(80)
	p.Update(5*time.Second, 3)

	out := p.Render()
	for _, want := range []string{"Scanning", "50%", "3 devices"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q: %q", want, out)
		}
	}
}

func TestScanRunner_Run(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{
		Title:   "Device Scan",
		Command: "tvdiscovery scan",
		Params:  []Param{{Key: "Timeout", Value: "10s"}},
		Timeout: 10 * time.Second,
		Output:  &buf,
		Width:   80,
	})

	devices, err := runner.Run(context.Background(), func(ctx context.Context, onDevice func(*discovery.Device)) error {
		for _, d := range testDevices() {
			onDevice(d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Run() returned %d devices, want 2", len(devices))
	}

	out := buf.String()
	for _, want := range []string{"DEVICE SCAN", "Living Room TV", "fe80::1%en0", "Scan complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\r") {
		t.Error("non-live output should not redraw lines")
	}
}

func TestScanRunner_RunFailure(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{Title: "Device Scan", Output: &buf, Width: 80})

	boom := errors.New("socket closed")
	_, err := runner.Run(context.Background(), func(ctx context.Context, onDevice func(*discovery.Device)) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !strings.Contains(buf.String(), "Scan failed") {
		t.Errorf("output missing failure box:\n%s", buf.String())
	}
}

func TestScanRunner_RunLive(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{Title: "Device Scan", Output: &buf, Width: 80, Live: true, Timeout: time.Second})

	_, err := runner.Run(context.Background(), func(ctx context.Context, onDevice func(*discovery.Device)) error {
		onDevice(testDevices()[0])
		time.Sleep(150 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\r") {
		t.Error("live output should redraw the progress line")
	}
}

func TestPrinter_LiveLineIsCleared(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(10)

	p.PrintLive("progress")
	p.Println("device")

	want := "progress\r" + strings.Repeat(" ", 10) + "\rdevice\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
