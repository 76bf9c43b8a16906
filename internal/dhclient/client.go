package dhclient

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"inet.af/netaddr"

	"github.com/veesix-networks/dhclient/pkg/config"
	"github.com/veesix-networks/dhclient/pkg/ddns"
	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/leasedb"
	"github.com/veesix-networks/dhclient/pkg/transport"
)

// ClientSpec describes a client to add to the engine.
type ClientSpec struct {
	Interface *transport.Interface
	Config    config.ClientConfig
	Hook      hook.Hook
	DDNS      ddns.Updater
}

// Client is the protocol state of one interface.
type Client struct {
	leaseSet

	name string
	ifc  *transport.Interface
	cfg  config.ClientConfig

	requestCodes []uint8
	requireCodes []uint8
	send         dhcp.Options
	reject       []netaddr.IPPrefix
	alias        *Lease
	hook         hook.Hook
	ddns         ddns.Updater
	logger       *slog.Logger

	state        State
	xid          uint32
	new          *Lease
	offered      []*Lease
	packet       *dhcp.Message
	firstSending time.Time
	interval     int64
	requested    net.IP
	destination  net.IP
	medium       string
	secs         uint16
	ddnsTimeout  time.Duration
}

func newClient(spec ClientSpec, log *slog.Logger) (*Client, error) {
	cfg := spec.Config
	c := &Client{
		name:        spec.Interface.Name,
		ifc:         spec.Interface,
		cfg:         cfg,
		hook:        spec.Hook,
		ddns:        spec.DDNS,
		logger:      log,
		state:       Init,
		destination: net.IPv4bcast,
	}

	var err error
	if c.requestCodes, err = cfg.RequestCodes(); err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if c.requireCodes, err = cfg.RequireCodes(); err != nil {
		return nil, fmt.Errorf("require: %w", err)
	}
	if c.send, err = cfg.SendOptions(); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	if c.reject, err = cfg.RejectPrefixes(); err != nil {
		return nil, err
	}

	if cfg.Alias != nil {
		c.alias = &Lease{
			Address: net.ParseIP(cfg.Alias.Address).To4(),
			Options: make(dhcp.Options),
			Expiry:  leasedb.MaxTime,
		}
		if mask := net.ParseIP(cfg.Alias.SubnetMask).To4(); mask != nil {
			c.alias.Options.Set(dhcp.OptionSubnetMask, mask)
		}
	}

	for i := range cfg.StaticLeases {
		s := &cfg.StaticLeases[i]
		opts, err := s.ParsedOptions()
		if err != nil {
			return nil, fmt.Errorf("static lease %s: %w", s.Address, err)
		}
		c.leases = append(c.leases, &Lease{
			Address:  net.ParseIP(s.Address).To4(),
			IsStatic: true,
			Medium:   s.Medium,
			Options:  opts,
			Expiry:   leasedb.MaxTime,
		})
	}

	return c, nil
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) State() State {
	return c.state
}

func (c *Client) Active() *Lease {
	return c.active
}

func (c *Client) Backups() []*Lease {
	return c.leases
}

// rejected reports whether replies from addr are ignored.
func (c *Client) rejected(addr net.IP) bool {
	if len(c.reject) == 0 {
		return false
	}
	ip, ok := netaddr.FromStdIP(addr)
	if !ok {
		return false
	}
	for _, p := range c.reject {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func (c *Client) mediumIndex() int {
	for i, m := range c.cfg.Media {
		if m == c.medium {
			return i
		}
	}
	return -1
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
