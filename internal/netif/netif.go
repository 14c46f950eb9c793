package netif

import (
	"errors"
	"fmt"
	"net"
)

// ErrNotFound is returned when no local interface matches.
var ErrNotFound = errors.New("no matching interface found")

// FindIPInRange finds the first local IPv4 address inside the CIDR addressRange.
func FindIPInRange(addressRange string) (net.IP, error) {
	_, cidrNet, err := net.ParseCIDR(addressRange)
	if err != nil {
		return nil, fmt.Errorf("invalid address range %q: %w", addressRange, err)
	}
	address, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting ips: %w", err)
	}

	for _, addr := range address {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}

		if cidrNet.Contains(ipNet.IP) {
			return ipNet.IP, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", addressRange, ErrNotFound)
}

// InterfaceByIP returns the interface that owns ip. Unspecified addresses return nil,
// which lets the system choose.
func InterfaceByIP(ip net.IP) (*net.Interface, error) {
	if ip == nil || ip.IsUnspecified() {
		return nil, nil
	}
	itfs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("error getting interfaces: %w", err)
	}

	for i := range itfs {
		addrs, err := itfs[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
				return &itfs[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%s: %w", ip, ErrNotFound)
}
