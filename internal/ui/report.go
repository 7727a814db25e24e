package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tvdiscovery/internal/discovery"
)

// Format selects how scan results are written.
type Format string

const (
	FormatDetailed Format = "detailed" // Styled header, live device lines and summary box
	FormatCompact  Format = "compact"  // One tab-separated "name<TAB>ip" line per device
	FormatJSON     Format = "json"     // JSON array of devices
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDetailed, FormatCompact, FormatJSON:
		return f, nil
	case "":
		return FormatDetailed, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use detailed, compact or json)", s)
	}
}

// RenderDeviceLine renders one discovered device for the live list.
func RenderDeviceLine(index int, device *discovery.Device) string {
	name := device.Name
	if pad := DeviceNameWidth - lipgloss.Width(name); pad > 0 {
		name += strings.Repeat(" ", pad)
	}

	line := fmt.Sprintf("  %s %s %s",
		DeviceIPStyle.Render(DeviceMarker),
		DeviceNameStyle.Render(fmt.Sprintf("%2d. %s", index, name)),
		DeviceIPStyle.Render(device.IP),
	)
	if !device.DiscoveredAt.IsZero() {
		line += "  " + DeviceMetaStyle.Render(device.DiscoveredAt.Format("15:04:05"))
	}
	return line
}

// NewScanReport builds the summary box shown after a detailed scan.
func NewScanReport(devices []*discovery.Device, duration time.Duration) *Result {
	if len(devices) == 0 {
		return NewWarningResult("No devices found", NoDevicesTroubleshooting,
			Detail{Key: "Duration", Value: duration.Round(time.Millisecond).String()},
		)
	}

	result := NewSuccessResult("Scan complete",
		Detail{Key: "Devices", Value: fmt.Sprintf("%d", len(devices))},
		Detail{Key: "Duration", Value: duration.Round(time.Millisecond).String()},
	)
	for i, d := range devices {
		result.Body = append(result.Body, RenderDeviceLine(i+1, d))
	}
	return result
}

// WriteDevices writes devices in a machine-friendly format. FormatDetailed
// falls back to plain "name at ip" lines.
func WriteDevices(w io.Writer, devices []*discovery.Device, format Format) error {
	switch format {
	case FormatJSON:
		if devices == nil {
			devices = []*discovery.Device{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(devices); err != nil {
			return fmt.Errorf("failed to encode devices: %w", err)
		}
		return nil

	case FormatCompact:
		for _, d := range devices {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", d.Name, d.IP); err != nil {
				return err
			}
		}
		return nil

	default:
		for _, d := range devices {
			if _, err := fmt.Fprintln(w, d.String()); err != nil {
				return err
			}
		}
		return nil
	}
}
