package history

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/events/local"
	"github.com/veesix-networks/dhclient/pkg/opdb"
	"github.com/veesix-networks/dhclient/pkg/opdb/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func leaseEvent(id, ifname, reason, addr string, at time.Time) events.Event {
	return events.Event{
		ID:        id,
		Type:      events.TopicLease,
		Timestamp: at,
		Data: events.LeaseEvent{
			Interface: ifname,
			Reason:    reason,
			Address:   net.ParseIP(addr),
			ServerID:  net.ParseIP("192.0.2.1"),
			Expiry:    at.Add(time.Hour),
		},
	}
}

func TestRecordAndQuery(t *testing.T) {
	store := newStore(t)
	r := NewRecorder(store, local.NewBus(), 3)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r.handleEvent(leaseEvent("1", "eth0", "BOUND", "192.0.2.50", at))
	r.handleEvent(leaseEvent("2", "eth1", "BOUND", "198.51.100.9", at))
	r.handleEvent(leaseEvent("3", "eth0", "RENEW", "192.0.2.50", at.Add(time.Minute)))
	r.handleEvent(events.Event{ID: "x", Data: "not a lease"})

	all, err := r.History("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	eth0, err := r.History("eth0", 1)
	require.NoError(t, err)
	require.Len(t, eth0, 1)
	assert.Equal(t, "RENEW", eth0[0].Reason)
	assert.Equal(t, "192.0.2.50", eth0[0].Address)
	assert.Equal(t, "192.0.2.1", eth0[0].ServerID)

	cur, err := r.Current("eth0")
	require.NoError(t, err)
	assert.Equal(t, "3", cur.ID)

	r.handleEvent(leaseEvent("4", "eth0", "RELEASE", "192.0.2.50", at.Add(2*time.Minute)))
	_, err = r.Current("eth0")
	assert.ErrorIs(t, err, opdb.ErrNotFound)

	all, err = r.History("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "pruned to keep")
	assert.Equal(t, "4", all[0].ID)
}

func TestRecorderFollowsBus(t *testing.T) {
	store := newStore(t)
	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	r := NewRecorder(store, bus, DefaultKeep)
	require.NoError(t, r.Start(context.Background()))

	bus.Publish(events.TopicLease, leaseEvent("a", "eth0", "BOUND", "192.0.2.50", time.Now()))

	require.Eventually(t, func() bool {
		h, err := r.History("eth0", 0)
		return err == nil && len(h) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Stop(context.Background()))
}
