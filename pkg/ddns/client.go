package ddns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/veesix-networks/dhclient/pkg/logger"
)

// Config selects the server and the optional TSIG key used for updates.
type Config struct {
	Server     string
	Timeout    time.Duration
	TSIGName   string
	TSIGSecret string
}

// Client sends RFC 2136 updates with the RFC 4703 conflict rules.
type Client struct {
	server   string
	tsigName string
	dns      *dns.Client
	logger   *slog.Logger
}

func NewClient(cfg Config) *Client {
	server := cfg.Server
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		server: server,
		dns:    &dns.Client{Net: "udp", Timeout: timeout},
		logger: logger.Get(logger.DDNS),
	}
	if cfg.TSIGName != "" {
		c.tsigName = dns.Fqdn(cfg.TSIGName)
		c.dns.TsigSecret = map[string]string{c.tsigName: cfg.TSIGSecret}
	}
	return c
}

// UpdateA adds the A and DHCID records. When the name is already in use
// the A RRset is replaced only if the DHCID shows the name is ours.
func (c *Client) UpdateA(ctx context.Context, req Request) error {
	a, dhcid, err := records(req)
	if err != nil {
		return err
	}

	m := c.newUpdate(req)
	m.NameNotUsed([]dns.RR{a})
	m.Insert([]dns.RR{a, dhcid})

	rcode, err := c.exchange(ctx, m)
	if err != nil {
		return err
	}
	switch rcode {
	case dns.RcodeSuccess:
		c.logger.Info("Added A record", "fqdn", a.Hdr.Name, "address", req.Address, "dhcid", req.DHCID)
		return nil
	case dns.RcodeYXDomain:
	default:
		return fmt.Errorf("%w: add %s: %s", ErrRefused, a.Hdr.Name, dns.RcodeToString[rcode])
	}

	// Used and Remove rewrite the record header in place.
	m = c.newUpdate(req)
	m.Used([]dns.RR{dns.Copy(dhcid)})
	m.RemoveRRset([]dns.RR{a})
	m.Insert([]dns.RR{a})

	rcode, err = c.exchange(ctx, m)
	if err != nil {
		return err
	}
	switch rcode {
	case dns.RcodeSuccess:
		c.logger.Info("Replaced A record", "fqdn", a.Hdr.Name, "address", req.Address)
		return nil
	case dns.RcodeNXRrset:
		return fmt.Errorf("%w: %s", ErrConflict, a.Hdr.Name)
	default:
		return fmt.Errorf("%w: replace %s: %s", ErrRefused, a.Hdr.Name, dns.RcodeToString[rcode])
	}
}

// RemoveA deletes our A record, then the DHCID once no A record remains.
func (c *Client) RemoveA(ctx context.Context, req Request) error {
	a, dhcid, err := records(req)
	if err != nil {
		return err
	}

	m := c.newUpdate(req)
	m.Used([]dns.RR{dhcid})
	m.Remove([]dns.RR{a})

	rcode, err := c.exchange(ctx, m)
	if err != nil {
		return err
	}
	switch rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNXRrset:
		return fmt.Errorf("%w: %s", ErrConflict, a.Hdr.Name)
	default:
		return fmt.Errorf("%w: remove %s: %s", ErrRefused, a.Hdr.Name, dns.RcodeToString[rcode])
	}

	m = c.newUpdate(req)
	m.Used([]dns.RR{dns.Copy(dhcid)})
	m.RRsetNotUsed([]dns.RR{a})
	m.Remove([]dns.RR{dns.Copy(dhcid)})

	rcode, err = c.exchange(ctx, m)
	if err != nil {
		return err
	}
	if rcode != dns.RcodeSuccess && rcode != dns.RcodeNXRrset && rcode != dns.RcodeYXRrset {
		return fmt.Errorf("%w: remove dhcid %s: %s", ErrRefused, a.Hdr.Name, dns.RcodeToString[rcode])
	}
	c.logger.Info("Removed A record", "fqdn", a.Hdr.Name, "address", req.Address)
	return nil
}

func (c *Client) newUpdate(req Request) *dns.Msg {
	zone := req.Zone
	if zone == "" {
		zone = ZoneOf(req.FQDN)
	}
	m := new(dns.Msg)
	m.SetUpdate(dns.Fqdn(zone))
	return m
}

func (c *Client) exchange(ctx context.Context, m *dns.Msg) (int, error) {
	if c.tsigName != "" {
		m.SetTsig(c.tsigName, dns.HmacSHA256, 300, time.Now().Unix())
	}

	r, _, err := c.dns.ExchangeContext(ctx, m, c.server)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s", ErrTimedOut, c.server)
		}
		return 0, fmt.Errorf("ddns exchange with %s: %w", c.server, err)
	}
	return r.Rcode, nil
}

func records(req Request) (*dns.A, *dns.DHCID, error) {
	ip := req.Address.To4()
	if ip == nil {
		return nil, nil, fmt.Errorf("ddns: %v is not an IPv4 address", req.Address)
	}
	if req.FQDN == "" {
		return nil, nil, errors.New("ddns: no fqdn")
	}
	name := dns.Fqdn(req.FQDN)

	a := &dns.A{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: req.TTL},
		A:   ip,
	}
	dhcid := &dns.DHCID{
		Hdr:    dns.RR_Header{Name: name, Rrtype: dns.TypeDHCID, Class: dns.ClassINET, Ttl: req.TTL},
		Digest: req.DHCID,
	}
	return a, dhcid, nil
}
