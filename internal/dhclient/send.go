package dhclient

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/transport"
)

var broadcastAddr = net.IPv4bcast.To4()

const maxSecs = 65535

func (e *Engine) newMessage(c *Client, mt dhcp.MessageType) *dhcp.Message {
	m := &dhcp.Message{
		Op:          dhcp.OpRequest,
		HType:       c.ifc.HType,
		HLen:        uint8(len(c.ifc.HWAddr)),
		XID:         c.xid,
		CIAddr:      net.IPv4zero.To4(),
		YIAddr:      net.IPv4zero.To4(),
		SIAddr:      net.IPv4zero.To4(),
		GIAddr:      net.IPv4zero.To4(),
		CHAddr:      append(net.HardwareAddr(nil), c.ifc.HWAddr...),
		MessageType: mt,
		Options:     c.send.Clone(),
	}
	if mt == dhcp.DHCPDiscover || mt == dhcp.DHCPRequest {
		if len(c.requestCodes) > 0 {
			m.Options.Set(dhcp.OptionParameterRequestList, c.requestCodes)
		}
		if c.cfg.UseBroadcastFlag() {
			m.Flags = dhcp.BroadcastFlag
		}
	}
	return m
}

// makeDiscover builds a DHCPDISCOVER, asking for the address of l if set.
func (e *Engine) makeDiscover(c *Client, l *Lease) *dhcp.Message {
	m := e.newMessage(c, dhcp.DHCPDiscover)
	c.requested = nil
	if l != nil {
		c.requested = l.Address
		m.Options.Set(dhcp.OptionRequestedAddress, l.Address.To4())
	}
	return m
}

// makeRequest builds a DHCPREQUEST for l. Selecting a server sends its
// identifier; renewal carries the lease address in ciaddr instead of the
// requested-address option.
func (e *Engine) makeRequest(c *Client, l *Lease, withServerID, renewing bool) *dhcp.Message {
	m := e.newMessage(c, dhcp.DHCPRequest)
	if withServerID {
		if id, ok := l.Options.Get(dhcp.OptionServerIdentifier); ok {
			m.Options.Set(dhcp.OptionServerIdentifier, id)
		}
	}
	if renewing {
		m.CIAddr = append(net.IP(nil), l.Address.To4()...)
		c.requested = nil
	} else {
		m.Options.Set(dhcp.OptionRequestedAddress, l.Address.To4())
		c.requested = l.Address
	}
	return m
}

func (e *Engine) makeDecline(c *Client, l *Lease) *dhcp.Message {
	m := e.newMessage(c, dhcp.DHCPDecline)
	if id, ok := l.Options.Get(dhcp.OptionServerIdentifier); ok {
		m.Options.Set(dhcp.OptionServerIdentifier, id)
	}
	m.Options.Set(dhcp.OptionRequestedAddress, l.Address.To4())
	return m
}

func (e *Engine) makeRelease(c *Client, l *Lease) *dhcp.Message {
	m := e.newMessage(c, dhcp.DHCPRelease)
	if id, ok := l.Options.Get(dhcp.OptionServerIdentifier); ok {
		m.Options.Set(dhcp.OptionServerIdentifier, id)
	}
	m.CIAddr = append(net.IP(nil), l.Address.To4()...)
	return m
}

// nextInterval grows a retransmission interval: the first one is initial,
// then it grows by a random amount of up to twice itself. Past cutoff it is
// redrawn from [cutoff/2, cutoff].
func nextInterval(r *rand.Rand, interval, initial, cutoff int64) int64 {
	if initial < 1 {
		initial = 1
	}
	if interval <= 0 {
		interval = initial
	} else {
		interval += r.Int63n(2 * interval)
	}
	if cutoff > 0 && interval > cutoff {
		half := cutoff / 2
		interval = half + r.Int63n(cutoff-half+1)
	}
	return interval
}

func (e *Engine) backoff(c *Client) {
	c.interval = nextInterval(e.rand, c.interval, seconds(c.cfg.InitialInterval), seconds(c.cfg.BackoffCutoff))
}

// clampInterval keeps the next send from landing after deadline.
func (c *Client) clampInterval(now, deadline time.Time) {
	if now.Add(time.Duration(c.interval) * time.Second).After(deadline) {
		c.interval = seconds(deadline.Sub(now))
		if c.interval < 1 {
			c.interval = 1
		}
	}
}

func elapsedSecs(now, since time.Time) uint16 {
	s := seconds(now.Sub(since))
	switch {
	case s < 0:
		return 0
	case s > maxSecs:
		return maxSecs
	}
	return uint16(s)
}

// sendDiscover broadcasts the current DHCPDISCOVER and schedules its
// retransmission. It gives up to statePanic once timeout has passed.
func (e *Engine) sendDiscover(c *Client) {
	now := e.clock.Now()
	if now.Sub(c.firstSending) > c.cfg.Timeout {
		e.statePanic(c)
		return
	}

	increase := true
	if len(c.offered) == 0 && len(c.cfg.Media) > 0 {
		var ok bool
		if increase, ok = e.cycleMedium(c); !ok {
			return
		}
	}

	if increase {
		e.backoff(c)
	} else if c.interval == 0 {
		c.interval = max(seconds(c.cfg.InitialInterval), 1)
	}
	c.clampInterval(now, c.firstSending.Add(c.cfg.Timeout+time.Second))

	c.secs = elapsedSecs(now, c.firstSending)
	c.packet.Secs = c.secs

	c.logger.Info(fmt.Sprintf("DHCPDISCOVER on %s to %s interval %d", c.name, broadcastAddr, c.interval))
	e.transmit(c, c.packet, nil, broadcastAddr)
	e.schedule(c, actionSendDiscover, now.Add(time.Duration(c.interval)*time.Second))
}

// cycleMedium moves to the next medium the hook accepts, trying each one
// at most once. It reports whether the backoff should grow, which is only
// after wrapping around to the first medium.
func (e *Engine) cycleMedium(c *Client) (increase, ok bool) {
	media := c.cfg.Media
	start := c.mediumIndex() + 1

	for i := range media {
		idx := (start + i) % len(media)
		env := e.newEnv(c, hook.ReasonMedium, media[idx])
		if e.runHook(c, env) == 0 {
			c.medium = media[idx]
			return idx == 0, true
		}
		c.logger.Info("Medium rejected", "medium", media[idx])
	}

	e.stop(fmt.Errorf("no valid media types for %s", c.name))
	return false, false
}

// sendRequest retransmits the current DHCPREQUEST, moving on when the
// reboot window closes, the lease expires or the rebind time passes.
func (e *Engine) sendRequest(c *Client) {
	now := e.clock.Now()
	elapsed := now.Sub(c.firstSending)

	if (c.state == Requesting || c.state == Rebooting) && elapsed > c.cfg.RebootTimeout {
		e.setState(c, Init)
		e.stateInit(c)
		return
	}

	if c.state == Rebooting && c.medium == "" && c.active != nil && c.active.Medium != "" {
		env := e.newEnv(c, hook.ReasonMedium, c.active.Medium)
		if e.runHook(c, env) != 0 {
			e.setState(c, Init)
			e.stateInit(c)
			return
		}
		c.medium = c.active.Medium
	}

	if c.state != Requesting && c.active != nil && now.After(c.active.Expiry) {
		c.logger.Info("Lease expired", "address", c.active.Address)

		env := e.newEnv(c, hook.ReasonExpire, c.medium)
		writeParams(env, hook.PrefixOld, c.active)
		if c.alias != nil {
			writeParams(env, hook.PrefixAlias, c.alias)
		}
		e.runHook(c, env)
		e.publishLease(c, hook.ReasonExpire, c.active)

		env = e.newEnv(c, hook.ReasonPreinit, "")
		if c.alias != nil {
			writeParams(env, hook.PrefixAlias, c.alias)
		}
		e.runHook(c, env)

		e.setState(c, Init)
		e.stateInit(c)
		return
	}

	if c.state == Renewing && c.active != nil && now.After(c.active.Rebind) {
		e.setState(c, Rebinding)
	}

	e.backoff(c)
	switch {
	case c.state == Requesting || c.state == Rebooting:
		c.clampInterval(now, c.firstSending.Add(c.cfg.RebootTimeout+time.Second))
	case c.active != nil:
		c.clampInterval(now, c.active.Expiry.Add(time.Second))
	}

	to := c.destination
	if c.state == Requesting || c.state == Rebooting || c.state == Rebinding {
		to = broadcastAddr
	}
	var from net.IP
	if (c.state == Renewing || c.state == Rebinding) && c.active != nil {
		from = c.active.Address
	}

	if c.state == Requesting {
		c.packet.Secs = c.secs
	} else {
		c.packet.Secs = elapsedSecs(now, c.firstSending)
	}

	c.logger.Info(fmt.Sprintf("DHCPREQUEST on %s to %s", c.name, to), "state", c.state, "interval", c.interval)
	e.transmit(c, c.packet, from, to)
	e.schedule(c, actionSendRequest, now.Add(time.Duration(c.interval)*time.Second))
}

func (e *Engine) transmit(c *Client, m *dhcp.Message, from, to net.IP) {
	payload, err := m.Encode()
	if err != nil {
		c.logger.Error("Failed to encode message", "type", m.MessageType, "error", err)
		return
	}
	if e.sender == nil {
		return
	}

	out := &transport.Outbound{Payload: payload, From: from, To: to}
	if err := e.sender.Send(c.name, out); err != nil {
		c.logger.Warn("Failed to send message", "type", m.MessageType, "to", to, "error", err)
		return
	}
	e.observer.PacketSent(c.name, m.MessageType)
}
