package dhclient

import (
	"net"
	"time"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/leasedb"
)

// Lease is one address binding. A lease is owned by exactly one slot of a
// client at a time: offered, backups, active or new.
type Lease struct {
	Address    net.IP
	IsBootp    bool
	IsStatic   bool
	Medium     string
	ServerName string
	Filename   string
	Options    dhcp.Options
	Renewal    time.Time
	Rebind     time.Time
	Expiry     time.Time
}

// ServerIdentifier returns option 54 when it holds a full address.
func (l *Lease) ServerIdentifier() net.IP {
	if v, ok := l.Options.Get(dhcp.OptionServerIdentifier); !ok || len(v) != 4 {
		return nil
	}
	return l.Options.IP(dhcp.OptionServerIdentifier)
}

func leaseFromMessage(m *dhcp.Message) *Lease {
	return &Lease{
		Address:    append(net.IP(nil), m.YIAddr.To4()...),
		IsBootp:    m.MessageType == 0,
		ServerName: m.ServerName,
		Filename:   m.File,
		Options:    m.Options.Clone(),
	}
}

func leaseFromRecord(r *leasedb.Record) *Lease {
	return &Lease{
		Address:    r.Address,
		IsBootp:    r.IsBootp,
		Medium:     r.Medium,
		ServerName: r.ServerName,
		Filename:   r.Filename,
		Options:    r.Options,
		Renewal:    r.Renewal,
		Rebind:     r.Rebind,
		Expiry:     r.Expiry,
	}
}

func (l *Lease) record(ifname string) *leasedb.Record {
	return &leasedb.Record{
		Interface:  ifname,
		Address:    l.Address,
		IsBootp:    l.IsBootp,
		Medium:     l.Medium,
		Filename:   l.Filename,
		ServerName: l.ServerName,
		Options:    l.Options,
		Renewal:    l.Renewal,
		Rebind:     l.Rebind,
		Expiry:     l.Expiry,
	}
}

// leaseSet is the active lease of an interface plus still-valid older ones.
type leaseSet struct {
	active *Lease
	leases []*Lease
}

// addLoaded applies a lease read from the database: it becomes active, and
// the previous active is kept as a backup only if it is unexpired and for a
// different address.
func (s *leaseSet) addLoaded(l *Lease, now time.Time) {
	if prev := s.active; prev != nil {
		if !prev.Expiry.Before(now) && !prev.Address.Equal(l.Address) {
			s.leases = append([]*Lease{prev}, s.leases...)
		}
	}
	s.active = l
}

// addSeconds adds a lease-relative offset to now, saturating at MaxTime.
func addSeconds(now time.Time, secs int64) time.Time {
	if secs >= leasedb.MaxTime.Unix()-now.Unix() {
		return leasedb.MaxTime
	}
	return now.Add(time.Duration(secs) * time.Second)
}
