package dhcp

import (
	"net"
	"testing"
	"time"
)

func TestResolveV4(t *testing.T) {
	opts := make(Options)
	opts.Set(OptionSubnetMask, []byte{255, 255, 255, 192})
	opts.Set(OptionRouters, []byte{10, 0, 0, 1})
	opts.Set(OptionDomainNameServers, []byte{8, 8, 8, 8, 1, 1, 1, 1})
	opts.Set(OptionLeaseTime, []byte{0, 0, 0x0e, 0x10})
	opts.Set(OptionServerIdentifier, []byte{10, 0, 0, 254})

	res := ResolveV4(net.ParseIP("10.0.0.77"), opts)
	if res == nil {
		t.Fatal("expected non-nil result")
	}
	if !res.Network.Equal(net.ParseIP("10.0.0.64")) {
		t.Errorf("Network = %v, want 10.0.0.64", res.Network)
	}
	if !res.Broadcast.Equal(net.ParseIP("10.0.0.127")) {
		t.Errorf("Broadcast = %v, want 10.0.0.127", res.Broadcast)
	}
	if res.PrefixLen() != 26 {
		t.Errorf("PrefixLen = %d, want 26", res.PrefixLen())
	}
	if !res.Router.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("Router = %v", res.Router)
	}
	if len(res.DNS) != 2 {
		t.Errorf("DNS = %v", res.DNS)
	}
	if res.LeaseTime != time.Hour {
		t.Errorf("LeaseTime = %v", res.LeaseTime)
	}
}

func TestResolveV4DefaultMaskAndBroadcastOption(t *testing.T) {
	opts := make(Options)
	opts.Set(OptionBroadcastAddress, []byte{192, 168, 1, 255})

	res := ResolveV4(net.ParseIP("192.168.1.10"), opts)
	if res.PrefixLen() != 24 {
		t.Fatalf("PrefixLen = %d, want 24", res.PrefixLen())
	}
	if !res.Broadcast.Equal(net.ParseIP("192.168.1.255")) {
		t.Errorf("Broadcast = %v", res.Broadcast)
	}
	if ResolveV4(net.ParseIP("2001:db8::1"), opts) != nil {
		t.Error("expected nil for IPv6 address")
	}
}

func TestParseClasslessRoutes(t *testing.T) {
	data := []byte{
		0, 10, 0, 0, 1,
		24, 192, 168, 5, 10, 0, 0, 2,
	}
	routes, err := ParseClasslessRoutes(data)
	if err != nil {
		t.Fatalf("ParseClasslessRoutes: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes", len(routes))
	}
	if routes[0].Destination.String() != "0.0.0.0/0" || !routes[0].NextHop.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("route 0 = %v via %v", routes[0].Destination, routes[0].NextHop)
	}
	if routes[1].Destination.String() != "192.168.5.0/24" {
		t.Errorf("route 1 = %v", routes[1].Destination)
	}

	if _, err := ParseClasslessRoutes([]byte{33, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for width 33")
	}
	if _, err := ParseClasslessRoutes([]byte{24, 192, 168}); err == nil {
		t.Error("expected error for truncated route")
	}
}
