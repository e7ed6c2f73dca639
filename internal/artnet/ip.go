package artnet

import (
	"fmt"
	"net"
	"strings"
)

const (
	// DefaultAddressRange specifies the network CIDR an art-net network should have.
	DefaultAddressRange = "192.168.6.0/24"
)

// FindArtNetIP finds the matching interface with an IP address inside cidr.
// It returns nil when no interface matches.
func FindArtNetIP(cidr string) (net.IP, error) {
	if cidr == "" {
		cidr = DefaultAddressRange
	}
	_, cidrNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("art-net address range %q: %w", cidr, err)
	}
	address, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting ips: %w", err)
	}

	return matchIP(cidrNet, address), nil
}

func matchIP(cidrNet *net.IPNet, address []net.Addr) net.IP {
	for _, addr := range address {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP

		if strings.Contains(ip.String(), ":") {
			continue
		}

		if cidrNet.Contains(ip) {
			return ip
		}
	}
	return nil
}
