package dhcp

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"inet.af/netaddr"
)

// ResolveV4 derives the interface configuration for addr from a lease's
// options. A missing subnet mask falls back to the classful /24 default.
func ResolveV4(addr net.IP, opts Options) *ResolvedDHCPv4 {
	ip4 := addr.To4()
	if ip4 == nil {
		return nil
	}

	resolved := &ResolvedDHCPv4{
		YourIP:   ip4,
		ServerID: opts.IP(OptionServerIdentifier),
		DNS:      opts.IPs(OptionDomainNameServers),
	}

	if lt, ok := opts.Uint32(OptionLeaseTime); ok {
		resolved.LeaseTime = time.Duration(lt) * time.Second
	}
	if routers := opts.IPs(OptionRouters); len(routers) > 0 {
		resolved.Router = routers[0]
	}
	if v, ok := opts.Get(26); ok && len(v) == 2 {
		resolved.MTU = binary.BigEndian.Uint16(v)
	}

	if mask := opts.IP(OptionSubnetMask); mask != nil {
		resolved.Netmask = net.IPMask(mask)
	} else {
		resolved.Netmask = net.CIDRMask(24, 32)
	}

	if network, bcast, ok := NetworkAndBroadcast(ip4, resolved.Netmask); ok {
		resolved.Network = network
		resolved.Broadcast = bcast
	}
	if b := opts.IP(OptionBroadcastAddress); b != nil {
		resolved.Broadcast = b
	}

	if v, ok := opts.Get(OptionClasslessRoutes); ok {
		if routes, err := ParseClasslessRoutes(v); err == nil {
			resolved.ClasslessRoutes = routes
		}
	}

	return resolved
}

// NetworkAndBroadcast computes the network number and directed broadcast
// address of addr under mask.
func NetworkAndBroadcast(addr net.IP, mask net.IPMask) (network, broadcast net.IP, ok bool) {
	ip, ok := netaddr.FromStdIP(addr)
	if !ok || !ip.Is4() {
		return nil, nil, false
	}
	ones, bits := mask.Size()
	if bits != 32 {
		return nil, nil, false
	}
	prefix, err := ip.Prefix(uint8(ones))
	if err != nil {
		return nil, nil, false
	}
	r := prefix.Range()
	return r.From().IPAddr().IP.To4(), r.To().IPAddr().IP.To4(), true
}

// ParseClasslessRoutes decodes option 121 (RFC 3442): per route a width
// byte, the significant destination octets, then the router.
func ParseClasslessRoutes(data []byte) ([]ClasslessRoute, error) {
	var routes []ClasslessRoute
	for i := 0; i < len(data); {
		width := int(data[i])
		if width > 32 {
			return nil, fmt.Errorf("classless route: width %d", width)
		}
		sig := (width + 7) / 8
		if i+1+sig+4 > len(data) {
			return nil, fmt.Errorf("classless route: truncated at %d", i)
		}

		dst := make(net.IP, 4)
		copy(dst, data[i+1:i+1+sig])
		hop := data[i+1+sig : i+1+sig+4]

		routes = append(routes, ClasslessRoute{
			Destination: &net.IPNet{IP: dst, Mask: net.CIDRMask(width, 32)},
			NextHop:     net.IPv4(hop[0], hop[1], hop[2], hop[3]).To4(),
		})
		i += 1 + sig + 4
	}
	return routes, nil
}
