package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/logging"
)

// mdnsResolver is the part of *zeroconf.Resolver the browser uses.
// A zeroconf resolver shuts its sockets down when its context ends, so a new
// one is created for every browse and lookup.
type mdnsResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ZeroconfBrowser is a Browser backed by github.com/grandcat/zeroconf.
type ZeroconfBrowser struct {
	newResolver func() (mdnsResolver, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	cancelQuery context.CancelFunc
}

// NewZeroconfBrowser creates a browser using the system's multicast interfaces.
func NewZeroconfBrowser() *ZeroconfBrowser {
	return newZeroconfBrowser(func() (mdnsResolver, error) {
		return zeroconf.NewResolver(nil)
	})
}

func newZeroconfBrowser(newResolver func() (mdnsResolver, error)) *ZeroconfBrowser {
	ctx, cancel := context.WithCancel(context.Background())
	return &ZeroconfBrowser{
		newResolver: newResolver,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Query starts browsing for serviceType, cancelling any previous query.
func (b *ZeroconfBrowser) Query(serviceType, domain string, events FoundEvents) error {
	b.Cancel()

	resolver, err := b.newResolver()
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(b.ctx)
	entries := make(chan *zeroconf.ServiceEntry)

	// zeroconf closes entries once ctx is done
	go func() {
		for entry := range entries {
			events.Found(advertisementFromEntry(entry))
		}
	}()

	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		cancel()
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	b.mu.Lock()
	b.cancelQuery = cancel
	b.mu.Unlock()
	return nil
}

// Cancel stops the running query, if any.
func (b *ZeroconfBrowser) Cancel() {
	b.mu.Lock()
	cancel := b.cancelQuery
	b.cancelQuery = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Resolve looks up ad in the background and reports the first entry that
// carries at least one address.
func (b *ZeroconfBrowser) Resolve(ad Advertisement, timeout time.Duration, events ResolvedEvents) {
	go func() {
		ctx, cancel := context.WithTimeout(b.ctx, timeout)
		defer cancel()

		resolver, err := b.newResolver()
		if err != nil {
			logging.Warn("Failed to create mDNS resolver for lookup",
				zap.Stringer("advertisement", ad),
				zap.Error(err),
			)
			return
		}

		entries := make(chan *zeroconf.ServiceEntry)
		if err := resolver.Lookup(ctx, ad.Instance, ad.Service, ad.Domain, entries); err != nil {
			logging.Warn("mDNS lookup failed",
				zap.Stringer("advertisement", ad),
				zap.Error(err),
			)
			return
		}

		reported := false
		for entry := range entries {
			if reported {
				continue
			}
			addrs := entryAddresses(entry)
			if len(addrs) == 0 {
				continue
			}
			reported = true
			events.Resolved(Resolution{
				Advertisement: ad,
				Name:          entryName(entry, ad),
				Addresses:     addrs,
			})
			// Ends the lookup; keep draining until zeroconf closes entries
			cancel()
		}

		if !reported {
			logging.Debug("mDNS lookup finished without addresses", zap.Stringer("advertisement", ad))
		}
	}()
}

// Close cancels the running query and every in-flight lookup.
func (b *ZeroconfBrowser) Close() {
	b.Cancel()
	b.cancel()
}

// advertisementFromEntry extracts the identity of a browse result
func advertisementFromEntry(entry *zeroconf.ServiceEntry) Advertisement {
	return Advertisement{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
	}
}

// entryName prefers the instance name from the lookup, falling back to the
// advertised one
func entryName(entry *zeroconf.ServiceEntry, ad Advertisement) string {
	if entry.Instance != "" {
		return entry.Instance
	}
	return ad.Instance
}

// entryAddresses converts a service entry's addresses into socket addresses,
// IPv4 first, in the order the responder listed them
func entryAddresses(entry *zeroconf.ServiceEntry) []net.Addr {
	addrs := make([]net.Addr, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		if ip == nil {
			continue
		}
		addrs = append(addrs, &net.TCPAddr{IP: ip, Port: entry.Port})
	}
	for _, ip := range entry.AddrIPv6 {
		if ip == nil {
			continue
		}
		addrs = append(addrs, &net.TCPAddr{IP: ip, Port: entry.Port})
	}
	return addrs
}
