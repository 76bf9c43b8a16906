package dhclient

import "fmt"

// State is the protocol state of a client. PANIC is a procedure run when
// discovery times out, never a stored state.
type State uint8

const (
	Init State = iota
	Selecting
	Requesting
	Bound
	Renewing
	Rebinding
	Rebooting
	Stopped
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Selecting:
		return "SELECTING"
	case Requesting:
		return "REQUESTING"
	case Bound:
		return "BOUND"
	case Renewing:
		return "RENEWING"
	case Rebinding:
		return "REBINDING"
	case Rebooting:
		return "REBOOTING"
	case Stopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// acceptsOffer and acceptsAck report whether s expects the reply.
func (s State) acceptsOffer() bool {
	return s == Selecting
}

func (s State) acceptsAck() bool {
	switch s {
	case Requesting, Rebooting, Renewing, Rebinding:
		return true
	}
	return false
}

// assertState panics when a state function is entered from a state it was
// not written for.
func (c *Client) assertState(want State) {
	if c.state != want {
		panic(fmt.Sprintf("dhclient: %s: entered %s handler in state %s", c.name, want, c.state))
	}
}
