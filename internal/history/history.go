package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/veesix-networks/dhclient/pkg/component"
	"github.com/veesix-networks/dhclient/pkg/control"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/logger"
	"github.com/veesix-networks/dhclient/pkg/opdb"
)

const (
	Name = "history"

	// DefaultKeep bounds the number of history entries kept across all
	// interfaces.
	DefaultKeep = 1000
)

func init() {
	component.Register(Name, New)
}

// Recorder stores every lease event in the operational database and serves
// the history command.
type Recorder struct {
	*component.Base
	store  opdb.Store
	bus    events.Bus
	keep   int
	logger *slog.Logger

	mu  sync.Mutex
	sub events.Subscription
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.OpDB == nil || deps.EventBus == nil {
		return nil, nil
	}
	return NewRecorder(deps.OpDB, deps.EventBus, DefaultKeep), nil
}

func NewRecorder(store opdb.Store, bus events.Bus, keep int) *Recorder {
	return &Recorder{
		Base:   component.NewBase(Name),
		store:  store,
		bus:    bus,
		keep:   keep,
		logger: logger.Get(logger.History),
	}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.StartContext(ctx)

	r.mu.Lock()
	r.sub = r.bus.Subscribe(events.TopicLease, r.handleEvent)
	r.mu.Unlock()

	r.logger.Info("Recording lease history", "keep", r.keep)
	return nil
}

func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.sub != nil {
		r.sub.Unsubscribe()
		r.sub = nil
	}
	r.mu.Unlock()

	return r.StopContext(ctx)
}

func (r *Recorder) handleEvent(ev events.Event) {
	le, ok := ev.Data.(events.LeaseEvent)
	if !ok {
		return
	}
	if err := r.record(ev, le); err != nil {
		r.logger.Error("Failed to record lease event", "interface", le.Interface, "reason", le.Reason, "error", err)
	}
}

func (r *Recorder) record(ev events.Event, le events.LeaseEvent) error {
	entry := control.HistoryEntry{
		ID:        ev.ID,
		Time:      ev.Timestamp,
		Interface: le.Interface,
		Reason:    le.Reason,
		Address:   ipString(le.Address),
		ServerID:  ipString(le.ServerID),
		Expiry:    le.Expiry,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	ctx := r.Context()
	if err := r.store.Put(ctx, opdb.NamespaceLeaseHistory, le.Interface+"/"+ev.ID, data); err != nil {
		return err
	}
	if r.keep > 0 {
		if _, err := r.store.Prune(ctx, opdb.NamespaceLeaseHistory, r.keep); err != nil {
			return err
		}
	}

	reason := hook.Reason(le.Reason)
	switch {
	case reason.Binds():
		return r.store.Put(ctx, opdb.NamespaceLeases, le.Interface, data)
	case reason.Unbinds():
		return r.store.Delete(ctx, opdb.NamespaceLeases, le.Interface)
	}
	return nil
}

// History returns up to limit entries for ifname, newest first. An empty
// ifname matches every interface and a non-positive limit returns all.
func (r *Recorder) History(ifname string, limit int) ([]control.HistoryEntry, error) {
	var entries []control.HistoryEntry
	err := r.store.Load(r.Context(), opdb.NamespaceLeaseHistory, func(_ string, value []byte) error {
		var e control.HistoryEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode history entry: %w", err)
		}
		if ifname == "" || e.Interface == ifname {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Current returns the last binding recorded for ifname.
func (r *Recorder) Current(ifname string) (*control.HistoryEntry, error) {
	data, err := r.store.Get(r.Context(), opdb.NamespaceLeases, ifname)
	if err != nil {
		return nil, err
	}
	var e control.HistoryEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode lease entry: %w", err)
	}
	return &e, nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

var _ control.HistorySource = (*Recorder)(nil)
