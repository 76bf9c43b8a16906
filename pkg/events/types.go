package events

import (
	"net"
	"time"
)

// LeaseEvent reports a change of the bound lease on an interface.
type LeaseEvent struct {
	Interface string
	Reason    string
	Address   net.IP
	ServerID  net.IP
	Renewal   time.Time
	Rebind    time.Time
	Expiry    time.Time
	Options   map[string]string
}

// StateEvent reports a protocol state transition.
type StateEvent struct {
	Interface string
	From      string
	To        string
}
