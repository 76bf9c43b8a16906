package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/component"
	"github.com/veesix-networks/dhclient/pkg/config"
	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/events/local"
	"github.com/veesix-networks/dhclient/plugins/exporter/prometheus/metrics"
)

func TestObserverCounters(t *testing.T) {
	c := NewComponent(":0", metrics.Source{})

	c.PacketSent("eth0", dhcp.DHCPDiscover)
	c.PacketSent("eth0", dhcp.DHCPDiscover)
	c.PacketReceived("eth0", dhcp.DHCPOffer)
	c.PacketDropped("eth0", "xid mismatch")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sent.WithLabelValues("eth0", "DHCPDISCOVER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.received.WithLabelValues("eth0", "DHCPOFFER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("eth0", "xid mismatch")))
}

func TestStateAndLeaseGauges(t *testing.T) {
	c := NewComponent(":0", metrics.Source{})

	c.handleEvent(events.Event{Data: events.StateEvent{Interface: "eth0", From: "INIT", To: "SELECTING"}})
	c.handleEvent(events.Event{Data: events.StateEvent{Interface: "eth0", From: "REQUESTING", To: "BOUND"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("eth0", "BOUND")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("eth0", "SELECTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("eth0", "INIT", "SELECTING")))

	expiry := time.Unix(1_800_000_000, 0)
	c.handleEvent(events.Event{Data: events.LeaseEvent{
		Interface: "eth0",
		Reason:    "BOUND",
		Renewal:   expiry.Add(-time.Hour),
		Rebind:    expiry.Add(-time.Minute),
		Expiry:    expiry,
	}})
	assert.Equal(t, float64(expiry.Unix()), testutil.ToFloat64(c.leaseTimes.WithLabelValues("eth0", "expiry")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.leaseTimes))

	c.handleEvent(events.Event{Data: events.LeaseEvent{Interface: "eth0", Reason: "RELEASE"}})
	assert.Equal(t, 0, testutil.CollectAndCount(c.leaseTimes))
}

func TestBusCollector(t *testing.T) {
	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	c := NewComponent(":0", metrics.Source{Bus: bus})
	handlers, err := metrics.DefaultRegistry().CreateHandlers(c.logger)
	require.NoError(t, err)
	require.Len(t, handlers, 2)

	col := &prometheusCollector{source: c.source, logger: c.logger, handlers: handlers}
	bus.Publish(events.TopicLease, events.Event{Data: events.LeaseEvent{Interface: "eth0"}})

	expected := `
# HELP dhclient_events_published_total Total number of lifecycle events published
# TYPE dhclient_events_published_total counter
dhclient_events_published_total 1
`
	assert.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected), "dhclient_events_published_total"))
}

func TestFactoryHonoursConfig(t *testing.T) {
	comp, err := New(component.Dependencies{Config: config.Default()})
	require.NoError(t, err)
	assert.Nil(t, comp)

	cfg := config.Default()
	cfg.Metrics.Enabled = true
	comp, err = New(component.Dependencies{Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, comp)
	assert.Equal(t, ":9468", comp.(*Component).Addr())
	assert.Equal(t, Namespace, comp.Name())
}
