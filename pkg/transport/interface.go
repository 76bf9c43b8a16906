package transport

import (
	"fmt"
	"net"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/veesix-networks/dhclient/pkg/ethernet"
)

// Interface is a link the client can run on.
type Interface struct {
	Name   string
	Index  int
	HWAddr net.HardwareAddr
	HType  uint8
}

// LinkLister is the part of *netlink.Handle used for discovery.
type LinkLister interface {
	LinkList() ([]netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
}

// Discover resolves the named links. With no names every non-loopback
// Ethernet link is returned.
func Discover(h LinkLister, names []string) ([]*Interface, error) {
	if len(names) > 0 {
		out := make([]*Interface, 0, len(names))
		for _, name := range names {
			link, err := h.LinkByName(name)
			if err != nil {
				return nil, fmt.Errorf("interface %q: %w", name, err)
			}
			ifc, ok := fromLink(link)
			if !ok {
				return nil, fmt.Errorf("interface %q: no ethernet address", name)
			}
			out = append(out, ifc)
		}
		return out, nil
	}

	links, err := h.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var out []*Interface
	for _, link := range links {
		if link.Attrs().Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifc, ok := fromLink(link); ok {
			out = append(out, ifc)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no broadcast interfaces found")
	}
	return out, nil
}

func fromLink(link netlink.Link) (*Interface, bool) {
	attrs := link.Attrs()
	if len(attrs.HardwareAddr) != ethernet.AddrLen {
		return nil, false
	}
	if attrs.EncapType != "" && attrs.EncapType != "ether" {
		return nil, false
	}
	return &Interface{
		Name:   attrs.Name,
		Index:  attrs.Index,
		HWAddr: append(net.HardwareAddr(nil), attrs.HardwareAddr...),
		HType:  ethernet.HTypeEthernet,
	}, true
}

// NewHandle opens a netlink handle in the named namespace, or in the
// current one when name is empty.
func NewHandle(name string) (*netlink.Handle, error) {
	if name == "" {
		h, err := netlink.NewHandle()
		if err != nil {
			return nil, fmt.Errorf("create netlink handle: %w", err)
		}
		return h, nil
	}

	nsHandle, err := netns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("get netns %q: %w", name, err)
	}
	defer nsHandle.Close()

	h, err := netlink.NewHandleAt(nsHandle)
	if err != nil {
		return nil, fmt.Errorf("create netlink handle for netns %q: %w", name, err)
	}
	return h, nil
}

// InNamespace runs fn with the calling thread switched into the named
// namespace. Sockets created by fn stay in that namespace.
func InNamespace(name string, fn func() error) error {
	if name == "" {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current netns: %w", err)
	}
	defer orig.Close()

	target, err := netns.GetFromName(name)
	if err != nil {
		return fmt.Errorf("get netns %q: %w", name, err)
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		return fmt.Errorf("enter netns %q: %w", name, err)
	}
	defer netns.Set(orig)

	return fn()
}
