package discovery

import (
	"fmt"
	"time"
)

// Device represents a discovered device on the network
type Device struct {
	// Name is the advertised service instance name (e.g., "Living Room TV")
	Name string `json:"name"`

	// IP is the numeric host of the first resolved address (e.g., "192.168.1.20")
	IP string `json:"ip"`

	// DiscoveredAt is when the device was reported
	DiscoveredAt time.Time `json:"discovered_at"`
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s at %s", d.Name, d.IP)
}
