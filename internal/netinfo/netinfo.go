// Package netinfo resolves the local IPv4 address, subnet mask, and
// broadcast address used to reach peers on the LAN segment (spec.md §4.A).
// There is no third-party default-route library in the example pack, so
// this package falls back to a net.Interfaces() heuristic (see DESIGN.md).
package netinfo

import (
	"errors"
	"net"
)

// ErrNoDefaultRoute means no usable, non-loopback IPv4 interface was found.
var ErrNoDefaultRoute = errors.New("netinfo: no usable network interface found")

// Info describes the chosen local interface.
type Info struct {
	IPv4      net.IP
	Netmask   net.IPMask
	Broadcast net.IP
}

// Probe picks the first up, non-loopback interface carrying an IPv4
// address and returns its address, mask, and broadcast address.
func Probe() (Info, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return Info{}, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			return Info{
				IPv4:      ip4,
				Netmask:   ipnet.Mask,
				Broadcast: Broadcast(ip4, ipnet.Mask),
			}, nil
		}
	}
	return Info{}, ErrNoDefaultRoute
}

// Broadcast computes the subnet broadcast address for ip/mask by
// OR-ing the host bits on (ip | ^mask), mirroring
// original_source/discoverHosts.py::get_broadcast_address.
func Broadcast(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil || len(mask) != 4 {
		return net.IPv4bcast
	}
	out := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}
