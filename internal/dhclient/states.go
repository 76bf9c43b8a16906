package dhclient

import (
	"time"

	"github.com/veesix-networks/dhclient/pkg/hook"
)

// stateReboot tries to confirm the remembered lease before falling back to
// discovery.
func (e *Engine) stateReboot(c *Client) {
	now := e.clock.Now()
	if c.active == nil || c.active.IsBootp || !c.active.Expiry.After(now) {
		e.stateInit(c)
		return
	}

	c.xid = e.rand.Uint32()
	c.packet = e.makeRequest(c, c.active, false, false)
	c.destination = broadcastAddr
	e.setState(c, Rebooting)
	c.firstSending = now
	c.interval = 0
	c.medium = ""

	e.sendRequest(c)
}

// stateInit starts a new discovery cycle.
func (e *Engine) stateInit(c *Client) {
	c.assertState(Init)

	c.offered = nil
	c.xid = e.rand.Uint32()
	c.packet = e.makeDiscover(c, c.active)
	c.destination = broadcastAddr
	e.setState(c, Selecting)
	c.firstSending = e.clock.Now()
	c.interval = 0

	e.sendDiscover(c)
}

// stateSelecting picks the best offer once the selection window is over.
func (e *Engine) stateSelecting(c *Client) {
	c.assertState(Selecting)

	e.cancel(c, actionStateSelecting)
	e.cancel(c, actionSendDiscover)

	var picked *Lease
	if len(c.offered) > 0 {
		picked = c.offered[0]
	}
	c.offered = nil

	if picked == nil {
		e.setState(c, Init)
		e.stateInit(c)
		return
	}

	now := e.clock.Now()
	c.new = picked

	if picked.IsBootp {
		picked.Expiry = now.Add(12000 * time.Second)
		picked.Renewal = now.Add(8000 * time.Second)
		picked.Rebind = now.Add(10000 * time.Second)
		e.setState(c, Requesting)
		e.bindLease(c)
		return
	}

	c.destination = broadcastAddr
	e.setState(c, Requesting)
	c.firstSending = now
	c.interval = 0
	c.packet = e.makeRequest(c, picked, true, false)

	e.sendRequest(c)
}

// stateBound starts renewal of the active lease with its server.
func (e *Engine) stateBound(c *Client) {
	c.assertState(Bound)

	c.xid = e.rand.Uint32()
	c.packet = e.makeRequest(c, c.active, false, true)
	if id := c.active.ServerIdentifier(); id != nil {
		c.destination = id
	} else {
		c.destination = broadcastAddr
	}
	c.firstSending = e.clock.Now()
	c.interval = 0
	e.setState(c, Renewing)

	e.sendRequest(c)
}

// statePanic runs when discovery timed out: it falls back to the first
// remembered lease the hook accepts, or waits retry before starting over.
func (e *Engine) statePanic(c *Client) {
	now := e.clock.Now()
	c.logger.Info("No DHCPOFFERS received")

	candidates := make([]*Lease, 0, 1+len(c.leases))
	if c.active != nil {
		candidates = append(candidates, c.active)
	}
	candidates = append(candidates, c.leases...)

	for i, l := range candidates {
		if !l.Expiry.After(now) {
			continue
		}

		c.logger.Info("Trying recorded lease", "address", l.Address)
		env := e.newEnv(c, hook.ReasonTimeout, l.Medium)
		writeParams(env, hook.PrefixNew, l)
		if c.alias != nil {
			writeParams(env, hook.PrefixAlias, c.alias)
		}
		if e.runHook(c, env) != 0 {
			continue
		}

		c.active = l
		c.leases = append(append([]*Lease(nil), candidates[i+1:]...), candidates[:i]...)
		e.setState(c, Bound)
		e.publishLease(c, hook.ReasonTimeout, l)

		if l.Renewal.After(now) {
			c.logger.Info("Bound to recorded lease", "address", l.Address,
				"renewal", l.Renewal.Sub(now).Round(time.Second))
			e.schedule(c, actionStateBound, l.Renewal)
		} else {
			e.stateBound(c)
		}
		return
	}

	c.leases = candidates
	c.active = nil

	env := e.newEnv(c, hook.ReasonFail, "")
	if c.alias != nil {
		writeParams(env, hook.PrefixAlias, c.alias)
	}
	e.runHook(c, env)
	e.publishLease(c, hook.ReasonFail, nil)

	if e.onetry {
		e.stop(&ExitError{Code: 2, Reason: "no working leases in persistent database"})
		return
	}

	e.setState(c, Init)
	retry := seconds(c.cfg.Retry)
	delay := (retry + 1) / 2
	if retry > 0 {
		delay += e.rand.Int63n(retry)
	}
	c.logger.Info("No working leases in persistent database, sleeping", "retry", delay)
	e.schedule(c, actionStateInit, now.Add(time.Duration(delay)*time.Second))
}
