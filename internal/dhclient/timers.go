package dhclient

import (
	"time"

	"github.com/veesix-networks/dhclient/pkg/dispatch"
)

// action is the kind of work a pending timer performs.
type action uint8

const (
	actionSendDiscover action = iota
	actionSendRequest
	actionStateSelecting
	actionStateBound
	actionStateInit
	actionStateReboot
	actionDNSUpdate
)

func (a action) String() string {
	switch a {
	case actionSendDiscover:
		return "send-discover"
	case actionSendRequest:
		return "send-request"
	case actionStateSelecting:
		return "state-selecting"
	case actionStateBound:
		return "state-bound"
	case actionStateInit:
		return "state-init"
	case actionStateReboot:
		return "state-reboot"
	case actionDNSUpdate:
		return "dns-update"
	default:
		return "unknown"
	}
}

// timerKey identifies a pending action. Scheduling an existing key moves it.
type timerKey struct {
	action action
	client *Client
}

// Timers is the engine's timer queue, to be added to the dispatcher.
func (e *Engine) Timers() dispatch.Timers {
	return e.timers
}

func (e *Engine) schedule(c *Client, a action, when time.Time) {
	e.timers.Add(when, timerKey{action: a, client: c})
}

func (e *Engine) cancel(c *Client, a action) {
	e.timers.Cancel(timerKey{action: a, client: c})
}

func (e *Engine) cancelAll(c *Client) {
	e.timers.CancelFunc(func(k timerKey) bool { return k.client == c })
}

func (e *Engine) pending(c *Client, a action) (time.Time, bool) {
	return e.timers.Pending(timerKey{action: a, client: c})
}

func (e *Engine) fire(k timerKey) {
	c := k.client
	switch k.action {
	case actionSendDiscover:
		e.sendDiscover(c)
	case actionSendRequest:
		e.sendRequest(c)
	case actionStateSelecting:
		e.stateSelecting(c)
	case actionStateBound:
		e.stateBound(c)
	case actionStateInit:
		e.stateInit(c)
	case actionStateReboot:
		e.stateReboot(c)
	case actionDNSUpdate:
		e.dnsUpdate(c)
	}
}
