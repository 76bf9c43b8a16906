package config

import (
	"fmt"
	"strings"
	"time"

	"inet.af/netaddr"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
)

const BuiltinScript = "builtin"

var defaultRequest = []string{
	"subnet-mask",
	"broadcast-address",
	"time-offset",
	"routers",
	"domain-name",
	"domain-name-servers",
	"host-name",
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         60 * time.Second,
		Retry:           300 * time.Second,
		RebootTimeout:   10 * time.Second,
		BackoffCutoff:   15 * time.Second,
		InitialInterval: 3 * time.Second,
		Script:          "/sbin/dhclient-script",
		Request:         append([]string(nil), defaultRequest...),
	}
}

// merge overlays the non-zero fields of over on c.
func (c ClientConfig) merge(over *ClientConfig) ClientConfig {
	if over == nil {
		return c
	}
	out := c
	if over.Timeout != 0 {
		out.Timeout = over.Timeout
	}
	if over.Retry != 0 {
		out.Retry = over.Retry
	}
	if over.SelectTimeout != 0 {
		out.SelectTimeout = over.SelectTimeout
	}
	if over.RebootTimeout != 0 {
		out.RebootTimeout = over.RebootTimeout
	}
	if over.BackoffCutoff != 0 {
		out.BackoffCutoff = over.BackoffCutoff
	}
	if over.InitialInterval != 0 {
		out.InitialInterval = over.InitialInterval
	}
	if over.Script != "" {
		out.Script = over.Script
	}
	if over.Media != nil {
		out.Media = over.Media
	}
	if over.Request != nil {
		out.Request = over.Request
	}
	if over.Require != nil {
		out.Require = over.Require
	}
	if over.Send != nil {
		out.Send = over.Send
	}
	if over.Reject != nil {
		out.Reject = over.Reject
	}
	if over.BroadcastFlag != nil {
		out.BroadcastFlag = over.BroadcastFlag
	}
	if over.Alias != nil {
		out.Alias = over.Alias
	}
	if over.StaticLeases != nil {
		out.StaticLeases = over.StaticLeases
	}
	if over.DDNS != nil {
		out.DDNS = over.DDNS
	}
	return out
}

func (c *ClientConfig) UseBroadcastFlag() bool {
	return c.BroadcastFlag != nil && *c.BroadcastFlag
}

// RequestCodes resolves the parameter request list.
func (c *ClientConfig) RequestCodes() ([]uint8, error) {
	return optionCodes(c.Request)
}

func (c *ClientConfig) RequireCodes() ([]uint8, error) {
	return optionCodes(c.Require)
}

func optionCodes(names []string) ([]uint8, error) {
	codes := make([]uint8, 0, len(names))
	for _, name := range names {
		o, ok := dhcp.LookupName(name)
		if !ok {
			return nil, fmt.Errorf("unknown option %q", name)
		}
		codes = append(codes, o.Code)
	}
	return codes, nil
}

// SendOptions parses the options the client adds to every request.
func (c *ClientConfig) SendOptions() (dhcp.Options, error) {
	return parseOptionMap(c.Send)
}

func parseOptionMap(m map[string]string) (dhcp.Options, error) {
	opts := make(dhcp.Options, len(m))
	for name, value := range m {
		o, ok := dhcp.LookupName(name)
		if !ok {
			return nil, fmt.Errorf("unknown option %q", name)
		}
		data, err := dhcp.ParseValue(o.Code, dhcp.SplitValue(o.Code, value))
		if err != nil {
			return nil, err
		}
		opts.Set(o.Code, data)
	}
	return opts, nil
}

// RejectPrefixes parses the reject list. Bare addresses become /32s.
func (c *ClientConfig) RejectPrefixes() ([]netaddr.IPPrefix, error) {
	prefixes := make([]netaddr.IPPrefix, 0, len(c.Reject))
	for _, r := range c.Reject {
		if strings.Contains(r, "/") {
			p, err := netaddr.ParseIPPrefix(r)
			if err != nil {
				return nil, fmt.Errorf("reject %q: %w", r, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		ip, err := netaddr.ParseIP(r)
		if err != nil {
			return nil, fmt.Errorf("reject %q: %w", r, err)
		}
		prefixes = append(prefixes, netaddr.IPPrefixFrom(ip, ip.BitLen()))
	}
	return prefixes, nil
}

// ParsedOptions parses the options of a static lease.
func (s *StaticLease) ParsedOptions() (dhcp.Options, error) {
	return parseOptionMap(s.Options)
}

func (c *ClientConfig) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Retry <= 0 {
		return fmt.Errorf("retry must be positive")
	}
	if c.InitialInterval < time.Second {
		return fmt.Errorf("initial-interval must be at least 1s")
	}
	if c.BackoffCutoff < c.InitialInterval {
		return fmt.Errorf("backoff-cutoff must not be below initial-interval")
	}
	if c.SelectTimeout < 0 || c.RebootTimeout < 0 {
		return fmt.Errorf("negative select-timeout or reboot-timeout")
	}
	if c.Script == "" {
		return fmt.Errorf("script must be set")
	}
	if _, err := c.RequestCodes(); err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if _, err := c.RequireCodes(); err != nil {
		return fmt.Errorf("require: %w", err)
	}
	if _, err := c.SendOptions(); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if _, err := c.RejectPrefixes(); err != nil {
		return err
	}
	if c.Alias != nil {
		if _, err := netaddr.ParseIP(c.Alias.Address); err != nil {
			return fmt.Errorf("alias address: %w", err)
		}
		if c.Alias.SubnetMask != "" {
			if _, err := netaddr.ParseIP(c.Alias.SubnetMask); err != nil {
				return fmt.Errorf("alias subnet-mask: %w", err)
			}
		}
	}
	for i := range c.StaticLeases {
		s := &c.StaticLeases[i]
		if _, err := netaddr.ParseIP(s.Address); err != nil {
			return fmt.Errorf("static-leases[%d]: %w", i, err)
		}
		if _, err := s.ParsedOptions(); err != nil {
			return fmt.Errorf("static-leases[%d]: %w", i, err)
		}
	}
	if c.DDNS != nil && c.DDNS.ForwardUpdate {
		if c.DDNS.FQDN == "" || c.DDNS.Server == "" {
			return fmt.Errorf("ddns forward-update needs fqdn and server")
		}
		if (c.DDNS.TSIGName == "") != (c.DDNS.TSIGSecret == "") {
			return fmt.Errorf("ddns tsig-name and tsig-secret must be set together")
		}
	}
	return nil
}
