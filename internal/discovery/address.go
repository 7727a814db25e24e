package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var (
	// ErrNoAddress is returned when a resolution carries no socket address.
	ErrNoAddress = errors.New("no socket address")

	// ErrInvalidAddress is returned when a socket address has no usable IP.
	ErrInvalidAddress = errors.New("invalid socket address")
)

// FormatNumericHost returns the numeric host of a socket address: dotted
// quad for IPv4 (including IPv4-mapped IPv6), RFC 5952 text for IPv6 with a
// "%zone" suffix when the address carries one. The port is never included.
func FormatNumericHost(addr net.Addr) (string, error) {
	switch a := addr.(type) {
	case nil:
		return "", ErrNoAddress
	case *net.TCPAddr:
		if a == nil {
			return "", ErrNoAddress
		}
		return formatIP(a.IP, a.Zone)
	case *net.UDPAddr:
		if a == nil {
			return "", ErrNoAddress
		}
		return formatIP(a.IP, a.Zone)
	case *net.IPAddr:
		if a == nil {
			return "", ErrNoAddress
		}
		return formatIP(a.IP, a.Zone)
	}

	// Any other net.Addr: accept "host:port" or a bare literal
	s := addr.String()
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return ip.Unmap().String(), nil
}

// FirstNumericHost formats the first address in addrs.
// Only the first address is considered; later ones are ignored even if the
// first cannot be formatted.
func FirstNumericHost(addrs []net.Addr) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoAddress
	}
	return FormatNumericHost(addrs[0])
}

func formatIP(ip net.IP, zone string) (string, error) {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.String(), nil
	}
	if len(ip) != net.IPv6len {
		return "", fmt.Errorf("%w: %d-byte IP", ErrInvalidAddress, len(ip))
	}
	if zone != "" {
		return ip.String() + "%" + zone, nil
	}
	return ip.String(), nil
}
