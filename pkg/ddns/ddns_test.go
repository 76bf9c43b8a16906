package ddns

import (
	"context"
	"encoding/base64"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHCIDHardwareAddress(t *testing.T) {
	got, err := DHCID(nil, 1, []byte{1, 2, 3, 4, 5, 6}, "client.example.com")
	require.NoError(t, err)
	assert.Equal(t, "AAABxLmlskllE0MVjd57zHcWmEH3pCQ6VytcKD//7es/deY=", got)
}

func TestDHCIDClientIdentifier(t *testing.T) {
	id := []byte{1, 7, 8, 9, 10, 11, 12}
	got, err := DHCID(id, 1, []byte{1, 2, 3, 4, 5, 6}, "chi.example.com")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	require.Len(t, raw, 35)
	assert.Equal(t, []byte{0x00, 0x01, 0x01}, raw[:3])

	upper, err := DHCID(id, 1, nil, "CHI.Example.COM.")
	require.NoError(t, err)
	assert.Equal(t, got, upper)

	other, err := DHCID(id, 1, nil, "other.example.com")
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestZoneOf(t *testing.T) {
	assert.Equal(t, "example.com.", ZoneOf("host.example.com"))
	assert.Equal(t, "com.", ZoneOf("example.com."))
}

type updateServer struct {
	mu       sync.Mutex
	received []*dns.Msg
	rcodes   []int
}

func (s *updateServer) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	s.mu.Lock()
	s.received = append(s.received, r)
	rcode := dns.RcodeSuccess
	if len(s.rcodes) > 0 {
		rcode = s.rcodes[0]
		s.rcodes = s.rcodes[1:]
	}
	s.mu.Unlock()

	m := new(dns.Msg)
	m.SetRcode(r, rcode)
	w.WriteMsg(m)
}

func (s *updateServer) messages() []*dns.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*dns.Msg(nil), s.received...)
}

func startServer(t *testing.T, rcodes ...int) (*updateServer, string) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &updateServer{rcodes: rcodes}
	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: h, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	return h, pc.LocalAddr().String()
}

func testRequest() Request {
	return Request{
		FQDN:    "host.example.com",
		Address: net.ParseIP("192.0.2.10"),
		DHCID:   "AAABxLmlskllE0MVjd57zHcWmEH3pCQ6VytcKD//7es/deY=",
		TTL:     300,
	}
}

func TestUpdateAAddsRecords(t *testing.T) {
	srv, addr := startServer(t)
	c := NewClient(Config{Server: addr, Timeout: 2 * time.Second})

	require.NoError(t, c.UpdateA(context.Background(), testRequest()))

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, dns.OpcodeUpdate, m.Opcode)
	assert.Equal(t, "example.com.", m.Question[0].Name)
	require.Len(t, m.Answer, 1)
	assert.Equal(t, uint16(dns.ClassNONE), m.Answer[0].Header().Class)
	require.Len(t, m.Ns, 2)
	assert.Equal(t, dns.TypeA, m.Ns[0].Header().Rrtype)
	assert.Equal(t, dns.TypeDHCID, m.Ns[1].Header().Rrtype)
}

func TestUpdateAReplacesOwnName(t *testing.T) {
	srv, addr := startServer(t, dns.RcodeYXDomain, dns.RcodeSuccess)
	c := NewClient(Config{Server: addr, Timeout: 2 * time.Second})

	require.NoError(t, c.UpdateA(context.Background(), testRequest()))

	msgs := srv.messages()
	require.Len(t, msgs, 2)
	require.Len(t, msgs[1].Answer, 1)
	assert.Equal(t, dns.TypeDHCID, msgs[1].Answer[0].Header().Rrtype)
	assert.Equal(t, uint16(dns.ClassINET), msgs[1].Answer[0].Header().Class)
}

func TestUpdateAConflict(t *testing.T) {
	_, addr := startServer(t, dns.RcodeYXDomain, dns.RcodeNXRrset)
	c := NewClient(Config{Server: addr, Timeout: 2 * time.Second})

	err := c.UpdateA(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRemoveA(t *testing.T) {
	srv, addr := startServer(t)
	c := NewClient(Config{Server: addr, Timeout: 2 * time.Second})

	require.NoError(t, c.RemoveA(context.Background(), testRequest()))

	msgs := srv.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, dns.TypeA, msgs[0].Ns[0].Header().Rrtype)
	assert.Equal(t, dns.TypeDHCID, msgs[1].Ns[0].Header().Rrtype)
	assert.Equal(t, uint16(dns.ClassINET), msgs[1].Answer[0].Header().Class)
}

func TestTimeoutMapsToErrTimedOut(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c := NewClient(Config{Server: pc.LocalAddr().String(), Timeout: 100 * time.Millisecond})
	err = c.UpdateA(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestRejectsNonIPv4(t *testing.T) {
	c := NewClient(Config{Server: "127.0.0.1"})
	req := testRequest()
	req.Address = net.ParseIP("2001:db8::1")
	assert.Error(t, c.UpdateA(context.Background(), req))
}
