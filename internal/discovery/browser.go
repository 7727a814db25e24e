package discovery

import (
	"fmt"
	"net"
	"time"
)

// Advertisement identifies a service instance seen on the network.
// It is comparable and used directly as the dedup key.
type Advertisement struct {
	// Instance is the service instance name (e.g., "Living Room TV")
	Instance string

	// Service is the service type (e.g., "_airplay._tcp")
	Service string

	// Domain is the browse domain (typically "local.")
	Domain string
}

// String returns the fully qualified instance name
func (a Advertisement) String() string {
	return fmt.Sprintf("%s.%s.%s", a.Instance, a.Service, a.Domain)
}

// Resolution is the result of resolving an Advertisement.
type Resolution struct {
	Advertisement Advertisement

	// Name is the human-readable device name reported to the caller
	Name string

	// Addresses holds the socket addresses in the order the resolver returned them
	Addresses []net.Addr
}

// FoundEvents receives advertisements reported by a running query.
// Implementations must be safe to call from any goroutine.
type FoundEvents interface {
	Found(ad Advertisement)
}

// ResolvedEvents receives resolution results.
// Implementations must be safe to call from any goroutine.
type ResolvedEvents interface {
	Resolved(res Resolution)
}

// Browser is the network service browsing primitive the Engine drives.
//
// Query starts browsing for serviceType in domain, replacing any previous
// query, and reports advertisements to events until Cancel is called.
// Resolve asynchronously resolves ad and reports at most one Resolution to
// events; a lookup that times out reports nothing.
type Browser interface {
	Query(serviceType, domain string, events FoundEvents) error
	Cancel()
	Resolve(ad Advertisement, timeout time.Duration, events ResolvedEvents)
}
