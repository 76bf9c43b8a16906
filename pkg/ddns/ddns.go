package ddns

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/miekg/dns"
)

var (
	ErrTimedOut = errors.New("ddns: update timed out")
	ErrRefused  = errors.New("ddns: update refused")
	ErrConflict = errors.New("ddns: name owned by another client")
)

// Request describes the A record of one bound lease.
type Request struct {
	FQDN    string
	Zone    string
	Address net.IP
	DHCID   string
	TTL     uint32
}

// Updater performs forward DNS updates for bound leases.
type Updater interface {
	UpdateA(ctx context.Context, req Request) error
	RemoveA(ctx context.Context, req Request) error
}

// ZoneOf returns the zone an update for fqdn is sent to when none is
// configured: the name without its first label.
func ZoneOf(fqdn string) string {
	fqdn = dns.Fqdn(fqdn)
	if i := strings.IndexByte(fqdn, '.'); i >= 0 && i+1 < len(fqdn) {
		return fqdn[i+1:]
	}
	return fqdn
}
