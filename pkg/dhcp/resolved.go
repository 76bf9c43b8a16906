package dhcp

import (
	"net"
	"time"
)

// ResolvedDHCPv4 is the interface configuration carried by a lease.
type ResolvedDHCPv4 struct {
	YourIP    net.IP
	Netmask   net.IPMask
	Network   net.IP
	Broadcast net.IP
	Router    net.IP
	DNS       []net.IP
	LeaseTime time.Duration
	ServerID  net.IP
	MTU       uint16

	ClasslessRoutes []ClasslessRoute
}

type ClasslessRoute struct {
	Destination *net.IPNet
	NextHop     net.IP
}

// PrefixLen returns the mask length, or 32 when the mask is not canonical.
func (r *ResolvedDHCPv4) PrefixLen() int {
	ones, bits := r.Netmask.Size()
	if bits != 32 {
		return 32
	}
	return ones
}
