package hook

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/vishvananda/netlink"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/logger"
)

// LinkOps is the subset of *netlink.Handle the built-in hook needs.
type LinkOps interface {
	LinkByName(name string) (netlink.Link, error)
	LinkSetUp(link netlink.Link) error
	LinkSetMTU(link netlink.Link, mtu int) error
	AddrReplace(link netlink.Link, addr *netlink.Addr) error
	AddrDel(link netlink.Link, addr *netlink.Addr) error
	RouteReplace(route *netlink.Route) error
}

// Netlink configures the interface directly instead of running a script.
type Netlink struct {
	ops    LinkOps
	logger *slog.Logger
}

func NewNetlink(ops LinkOps) *Netlink {
	return &Netlink{
		ops:    ops,
		logger: logger.Get(logger.Hook),
	}
}

func (n *Netlink) Run(_ context.Context, env *Env) int {
	ifname, _ := env.Get("interface")
	reason := env.Reason()
	log := logger.WithInterface(n.logger, ifname).With("reason", reason)

	if err := n.apply(ifname, reason, env); err != nil {
		log.Warn("Failed to apply lease", "error", err)
		return 1
	}
	return 0
}

func (n *Netlink) apply(ifname string, reason Reason, env *Env) error {
	if reason == ReasonMedium || reason == ReasonNBI {
		return nil
	}

	link, err := n.ops.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("interface %q: %w", ifname, err)
	}

	switch {
	case reason == ReasonPreinit:
		return n.ops.LinkSetUp(link)

	case reason.Binds():
		lease := LeaseFromEnv(env, PrefixNew)
		if lease == nil {
			return fmt.Errorf("no new_ip_address")
		}
		if old := LeaseFromEnv(env, PrefixOld); old != nil && !old.YourIP.Equal(lease.YourIP) {
			if err := n.ops.AddrDel(link, ifAddr(old)); err != nil {
				n.logger.Debug("Failed to remove old address", "address", old.YourIP, "error", err)
			}
		}
		if err := n.ops.LinkSetUp(link); err != nil {
			return fmt.Errorf("link up: %w", err)
		}
		if lease.MTU >= 68 {
			if err := n.ops.LinkSetMTU(link, int(lease.MTU)); err != nil {
				return fmt.Errorf("set mtu %d: %w", lease.MTU, err)
			}
		}
		if err := n.ops.AddrReplace(link, ifAddr(lease)); err != nil {
			return fmt.Errorf("add address %s: %w", lease.YourIP, err)
		}
		if err := n.installRoutes(link, lease); err != nil {
			return err
		}
		if alias := LeaseFromEnv(env, PrefixAlias); alias != nil && !alias.YourIP.Equal(lease.YourIP) {
			if err := n.ops.AddrReplace(link, ifAddr(alias)); err != nil {
				return fmt.Errorf("add alias %s: %w", alias.YourIP, err)
			}
		}
		return nil

	case reason.Unbinds():
		if old := LeaseFromEnv(env, PrefixOld); old != nil {
			if err := n.ops.AddrDel(link, ifAddr(old)); err != nil {
				return fmt.Errorf("remove address %s: %w", old.YourIP, err)
			}
		}
		return nil
	}

	return nil
}

// installRoutes prefers classless static routes over the router option.
func (n *Netlink) installRoutes(link netlink.Link, lease *dhcp.ResolvedDHCPv4) error {
	index := link.Attrs().Index

	if len(lease.ClasslessRoutes) > 0 {
		for _, r := range lease.ClasslessRoutes {
			route := &netlink.Route{LinkIndex: index}
			if ones, _ := r.Destination.Mask.Size(); ones > 0 {
				route.Dst = r.Destination
			}
			if !r.NextHop.Equal(net.IPv4zero) {
				route.Gw = r.NextHop
			}
			if err := n.ops.RouteReplace(route); err != nil {
				return fmt.Errorf("add route %s: %w", r.Destination, err)
			}
		}
		return nil
	}

	if lease.Router != nil {
		if err := n.ops.RouteReplace(&netlink.Route{LinkIndex: index, Gw: lease.Router}); err != nil {
			return fmt.Errorf("add default route via %s: %w", lease.Router, err)
		}
	}
	return nil
}

func ifAddr(lease *dhcp.ResolvedDHCPv4) *netlink.Addr {
	return &netlink.Addr{
		IPNet:     &net.IPNet{IP: lease.YourIP, Mask: lease.Netmask},
		Broadcast: lease.Broadcast,
	}
}

// LeaseFromEnv rebuilds the lease described by the variables with prefix,
// or nil when the set has no address.
func LeaseFromEnv(env *Env, prefix string) *dhcp.ResolvedDHCPv4 {
	vars := env.WithPrefix(prefix)
	ip := net.ParseIP(vars["ip_address"])
	if ip == nil {
		return nil
	}

	opts := make(dhcp.Options)
	for name, value := range vars {
		info, ok := dhcp.LookupName(strings.ReplaceAll(name, "_", "-"))
		if !ok {
			continue
		}
		data, err := dhcp.ParseValue(info.Code, dhcp.SplitValue(info.Code, value))
		if err != nil {
			continue
		}
		opts.Set(info.Code, data)
	}

	return dhcp.ResolveV4(ip, opts)
}
