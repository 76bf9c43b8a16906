package dhclient

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/transport"
)

// dhcpoffer collects an offer during selection.
func (e *Engine) dhcpoffer(c *Client, rx *transport.Received) {
	m := rx.Message
	if !c.state.acceptsOffer() {
		e.drop(c, rx, "offer outside selecting")
		return
	}

	c.logger.Info(fmt.Sprintf("%s of %s from %s", m.MessageType, m.YIAddr, rx.From))

	for _, code := range c.requireCodes {
		if !m.Options.Has(code) {
			c.logger.Info(fmt.Sprintf("%s isn't satisfactory: no %s option", m.MessageType, dhcp.Name(code)))
			e.drop(c, rx, "missing required option")
			return
		}
	}

	for _, l := range c.offered {
		if l.Address.Equal(m.YIAddr) {
			c.logger.Debug(fmt.Sprintf("%s already seen", m.MessageType), "address", m.YIAddr)
			e.drop(c, rx, "duplicate offer")
			return
		}
	}

	l := leaseFromMessage(m)
	l.Medium = c.medium

	if c.requested != nil && l.Address.Equal(c.requested) {
		c.offered = append([]*Lease{l}, c.offered...)
	} else {
		c.offered = append(c.offered, l)
	}

	now := e.clock.Now()
	stopSelecting := c.firstSending.Add(c.cfg.SelectTimeout)
	if !stopSelecting.After(now) {
		e.stateSelecting(c)
		return
	}
	e.schedule(c, actionStateSelecting, stopSelecting)
	e.cancel(c, actionSendDiscover)
}

// dhcpack binds the acknowledged lease.
func (e *Engine) dhcpack(c *Client, rx *transport.Received) {
	m := rx.Message
	if !c.state.acceptsAck() {
		e.drop(c, rx, "ack outside request")
		return
	}

	c.logger.Info(fmt.Sprintf("DHCPACK of %s from %s", m.YIAddr, rx.From))

	l := leaseFromMessage(m)
	e.cancel(c, actionSendRequest)

	times, ok := computeLeaseTimes(e.clock.Now(), l.Options, e.rand)
	if !ok {
		c.logger.Warn("No expiry time on offered lease")
		e.setState(c, Init)
		e.stateInit(c)
		return
	}
	l.Renewal, l.Rebind, l.Expiry = times.renewal, times.rebind, times.expiry

	c.new = l
	e.bindLease(c)
}

// dhcpnak abandons the lease being requested or renewed.
func (e *Engine) dhcpnak(c *Client, rx *transport.Received) {
	if !c.state.acceptsAck() {
		e.drop(c, rx, "nak outside request")
		return
	}

	c.logger.Info(fmt.Sprintf("DHCPNAK from %s", rx.From))
	if c.active == nil {
		c.logger.Debug("DHCPNAK with no active lease")
	}

	c.active = nil
	e.cancel(c, actionSendRequest)

	e.setState(c, Init)
	e.stateInit(c)
}

type leaseTimes struct {
	renewal time.Time
	rebind  time.Time
	expiry  time.Time
}

// computeLeaseTimes derives the absolute T1, T2 and expiry of a lease
// acknowledged at now. T1 is fuzzed so clients sharing a server spread
// their renewals. It reports false when the lease carries no lease time.
func computeLeaseTimes(now time.Time, opts dhcp.Options, r *rand.Rand) (leaseTimes, bool) {
	v, ok := opts.Uint32(dhcp.OptionLeaseTime)
	if !ok || v == 0 {
		return leaseTimes{}, false
	}
	expiry := int64(v)

	renewal := expiry / 2
	if v, ok := opts.Uint32(dhcp.OptionRenewalTime); ok {
		renewal = int64(v)
	}
	if renewal <= math.MaxInt32/3-3 {
		renewal = (renewal+3)*3/4 + r.Int63n((renewal+3)/4+1)
	}

	rebind := expiry * 7 / 8
	if v, ok := opts.Uint32(dhcp.OptionRebindingTime); ok {
		rebind = int64(v)
	}

	if renewal > rebind {
		renewal = rebind * 3 / 4
	}
	if rebind > expiry {
		rebind = expiry * 7 / 8
		if renewal > rebind {
			renewal = rebind * 3 / 4
		}
	}

	return leaseTimes{
		renewal: addSeconds(now, renewal),
		rebind:  addSeconds(now, rebind),
		expiry:  addSeconds(now, expiry),
	}, true
}

func (c *Client) bindReason() hook.Reason {
	switch c.state {
	case Requesting:
		return hook.ReasonBound
	case Renewing:
		return hook.ReasonRenew
	case Rebooting:
		return hook.ReasonReboot
	default:
		return hook.ReasonRebind
	}
}

// bindLease hands c.new to the hook and makes it the active lease, or
// declines it when the hook refuses.
func (e *Engine) bindLease(c *Client) {
	l := c.new
	l.Medium = c.medium
	reason := c.bindReason()

	env := e.newEnv(c, reason, l.Medium)
	if c.active != nil && c.state != Rebooting {
		writeParams(env, hook.PrefixOld, c.active)
	}
	writeParams(env, hook.PrefixNew, l)
	if c.alias != nil {
		writeParams(env, hook.PrefixAlias, c.alias)
	}

	if status := e.runHook(c, env); status != 0 {
		c.logger.Warn("Lease refused by hook, declining", "address", l.Address, "status", status)
		e.transmit(c, e.makeDecline(c, l), nil, broadcastAddr)
		c.new = nil
		e.setState(c, Init)
		e.stateInit(c)
		return
	}

	e.writeLease(c, l, false, false)
	c.active = l
	c.new = nil

	now := e.clock.Now()
	e.schedule(c, actionStateBound, l.Renewal)
	c.logger.Info(fmt.Sprintf("bound to %s", l.Address), "renewal", l.Renewal.Sub(now).Round(time.Second))

	e.setState(c, Bound)
	e.publishLease(c, reason, l)

	if c.ddns != nil && c.cfg.DDNS != nil && c.cfg.DDNS.ForwardUpdate {
		c.ddnsTimeout = time.Second
		e.schedule(c, actionDNSUpdate, now.Add(c.ddnsTimeout))
	}
}
