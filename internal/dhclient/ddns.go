package dhclient

import (
	"errors"
	"math"
	"time"

	"github.com/veesix-networks/dhclient/pkg/ddns"
	"github.com/veesix-networks/dhclient/pkg/dhcp"
)

const maxDDNSTimeout = time.Hour

func (e *Engine) ddnsRequest(c *Client, l *Lease) (ddns.Request, error) {
	cfg := c.cfg.DDNS

	clientID, _ := c.send.Get(dhcp.OptionClientIdentifier)
	dhcid, err := ddns.DHCID(clientID, c.ifc.HType, c.ifc.HWAddr, cfg.FQDN)
	if err != nil {
		return ddns.Request{}, err
	}

	zone := cfg.Zone
	if zone == "" {
		zone = ddns.ZoneOf(cfg.FQDN)
	}

	ttl := seconds(cfg.TTL)
	if ttl <= 0 {
		ttl = max(seconds(l.Renewal.Sub(e.clock.Now())), 1)
	}

	return ddns.Request{
		FQDN:    cfg.FQDN,
		Zone:    zone,
		Address: l.Address,
		DHCID:   dhcid,
		TTL:     uint32(min(ttl, math.MaxUint32)),
	}, nil
}

// dnsUpdate publishes the A record of the active lease, backing off by a
// factor of ten while the server does not answer.
func (e *Engine) dnsUpdate(c *Client) {
	l := c.active
	if l == nil || c.ddns == nil || c.cfg.DDNS == nil {
		return
	}

	req, err := e.ddnsRequest(c, l)
	if err != nil {
		c.logger.Warn("Failed to build DNS update", "error", err)
		return
	}

	err = c.ddns.UpdateA(e.ctx, req)
	switch {
	case err == nil:
		c.logger.Info("Added DNS record", "fqdn", req.FQDN, "address", req.Address)
	case errors.Is(err, ddns.ErrTimedOut):
		if c.ddnsTimeout < maxDDNSTimeout {
			c.ddnsTimeout *= 10
		}
		c.logger.Info("DNS update timed out, retrying", "fqdn", req.FQDN, "in", c.ddnsTimeout)
		e.schedule(c, actionDNSUpdate, e.clock.Now().Add(c.ddnsTimeout))
	default:
		c.logger.Warn("DNS update failed", "fqdn", req.FQDN, "error", err)
	}
}

func (e *Engine) ddnsRemove(c *Client, l *Lease) {
	req, err := e.ddnsRequest(c, l)
	if err != nil {
		c.logger.Warn("Failed to build DNS removal", "error", err)
		return
	}
	if err := c.ddns.RemoveA(e.ctx, req); err != nil {
		c.logger.Warn("DNS removal failed", "fqdn", req.FQDN, "error", err)
		return
	}
	c.logger.Info("Removed DNS record", "fqdn", req.FQDN)
}
