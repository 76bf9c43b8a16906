package dhclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/veesix-networks/dhclient/pkg/control"
	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/dispatch"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/leasedb"
	"github.com/veesix-networks/dhclient/pkg/logger"
	"github.com/veesix-networks/dhclient/pkg/transport"
)

var (
	ErrUnknownInterface = errors.New("unknown interface")
	ErrBusy             = errors.New("client is busy")
)

// ExitError asks the process to exit with Code.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s (exit status %d)", e.Reason, e.Code)
}

// Sender puts an encoded message on the wire of one interface.
type Sender interface {
	Send(ifname string, out *transport.Outbound) error
}

// Observer is told about every message the engine sends, accepts or drops.
type Observer interface {
	PacketSent(ifname string, mt dhcp.MessageType)
	PacketReceived(ifname string, mt dhcp.MessageType)
	PacketDropped(ifname, reason string)
}

type nopObserver struct{}

func (nopObserver) PacketSent(string, dhcp.MessageType)     {}
func (nopObserver) PacketReceived(string, dhcp.MessageType) {}
func (nopObserver) PacketDropped(string, string)            {}

type Options struct {
	Clock    dispatch.Clock
	Sender   Sender
	LeaseDB  *leasedb.DB
	Bus      events.Bus
	Observer Observer
	Rand     *rand.Rand
	OneTry   bool
	// Stop is called with a fatal error, or an *ExitError when the
	// process should exit.
	Stop    func(error)
	Context context.Context
}

// Engine runs the lease state machine of every configured interface. All
// methods must be called from the dispatcher goroutine.
type Engine struct {
	clock    dispatch.Clock
	sender   Sender
	db       *leasedb.DB
	bus      events.Bus
	observer Observer
	rand     *rand.Rand
	onetry   bool
	stop     func(error)
	ctx      context.Context

	timers  *dispatch.Queue[timerKey]
	clients []*Client
	byName  map[string]*Client
	dormant map[string]*leaseSet
	logger  *slog.Logger
}

func New(opts Options) *Engine {
	e := &Engine{
		clock:    opts.Clock,
		sender:   opts.Sender,
		db:       opts.LeaseDB,
		bus:      opts.Bus,
		observer: opts.Observer,
		rand:     opts.Rand,
		onetry:   opts.OneTry,
		stop:     opts.Stop,
		ctx:      opts.Context,
		byName:   make(map[string]*Client),
		dormant:  make(map[string]*leaseSet),
		logger:   logger.Get(logger.Client),
	}
	if e.clock == nil {
		e.clock = dispatch.SystemClock{}
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.stop == nil {
		e.stop = func(error) {}
	}
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	e.timers = dispatch.NewQueue(e.fire)
	return e
}

func (e *Engine) AddClient(spec ClientSpec) (*Client, error) {
	if spec.Interface == nil {
		return nil, errors.New("client without interface")
	}
	if _, ok := e.byName[spec.Interface.Name]; ok {
		return nil, fmt.Errorf("interface %s: duplicate client", spec.Interface.Name)
	}

	c, err := newClient(spec, logger.WithInterface(e.logger, spec.Interface.Name))
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", spec.Interface.Name, err)
	}
	e.clients = append(e.clients, c)
	e.byName[c.name] = c
	return c, nil
}

func (e *Engine) Client(name string) (*Client, bool) {
	c, ok := e.byName[name]
	return c, ok
}

func (e *Engine) Clients() []*Client {
	return e.clients
}

// LoadLeases reads the lease database and compacts it. The last lease of
// an interface becomes its active lease; leases of interfaces that are not
// configured are kept and written back untouched.
func (e *Engine) LoadLeases() error {
	if e.db == nil {
		return nil
	}

	recs, err := e.db.Load()
	if err != nil {
		return err
	}

	now := e.clock.Now()
	for _, rec := range recs {
		l := leaseFromRecord(rec)
		if c, ok := e.byName[rec.Interface]; ok {
			c.addLoaded(l, now)
			continue
		}
		set, ok := e.dormant[rec.Interface]
		if !ok {
			set = &leaseSet{}
			e.dormant[rec.Interface] = set
		}
		set.addLoaded(l, now)
	}

	e.logger.Info("Loaded lease database", "path", e.db.Path(), "leases", len(recs))
	return e.rewriteLeases(nil, nil)
}

// Start begins acquisition on every client, or releases every lease when
// release is set.
func (e *Engine) Start(release bool) {
	now := e.clock.Now()
	for _, c := range e.clients {
		if release {
			e.release(c)
			continue
		}

		c.state = Init
		env := e.newEnv(c, hook.ReasonPreinit, "")
		if c.alias != nil {
			writeParams(env, hook.PrefixAlias, c.alias)
		}
		e.runHook(c, env)

		e.schedule(c, actionStateReboot, now.Add(time.Duration(e.rand.Intn(5))*time.Second))
	}
}

// HandlePacket filters a received message and hands it to the handler for
// its type.
func (e *Engine) HandlePacket(rx *transport.Received) {
	m := rx.Message
	c, ok := e.byName[rx.Interface]
	if !ok {
		e.drop(nil, rx, "unknown interface")
		return
	}
	if m.Op != dhcp.OpReply {
		e.drop(c, rx, "not a reply")
		return
	}
	if m.XID != c.xid {
		e.drop(c, rx, "xid mismatch")
		return
	}
	hlen := int(m.HLen)
	if hlen != len(c.ifc.HWAddr) || len(m.CHAddr) < hlen || !bytes.Equal(m.CHAddr[:hlen], c.ifc.HWAddr) {
		e.drop(c, rx, "chaddr mismatch")
		return
	}
	if c.rejected(rx.From) {
		c.logger.Info(fmt.Sprintf("%s from %s rejected", m.MessageType, rx.From))
		e.drop(c, rx, "rejected sender")
		return
	}

	e.observer.PacketReceived(c.name, m.MessageType)

	switch m.MessageType {
	case 0, dhcp.DHCPOffer:
		e.dhcpoffer(c, rx)
	case dhcp.DHCPAck:
		e.dhcpack(c, rx)
	case dhcp.DHCPNak:
		e.dhcpnak(c, rx)
	default:
		e.drop(c, rx, "unexpected message type")
	}
}

func (e *Engine) drop(c *Client, rx *transport.Received, reason string) {
	log := e.logger
	if c != nil {
		log = c.logger
	}
	log.Debug("Dropped packet", "type", rx.Message.MessageType, "from", rx.From, "reason", reason)
	e.observer.PacketDropped(rx.Interface, reason)
}

func (e *Engine) setState(c *Client, s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.logger.Debug("State changed", "from", from, "to", s)

	e.publish(events.TopicState, events.StateEvent{
		Interface: c.name,
		From:      from.String(),
		To:        s.String(),
	})
}

func (e *Engine) publish(topic string, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(topic, events.Event{
		ID:        uuid.NewString(),
		Type:      topic,
		Timestamp: e.clock.Now(),
		Source:    "dhclient",
		Data:      data,
	})
}

func (e *Engine) publishLease(c *Client, reason hook.Reason, l *Lease) {
	ev := events.LeaseEvent{
		Interface: c.name,
		Reason:    string(reason),
		Options:   make(map[string]string),
	}
	if l != nil {
		ev.Address = l.Address
		ev.ServerID = l.ServerIdentifier()
		ev.Renewal = l.Renewal
		ev.Rebind = l.Rebind
		ev.Expiry = l.Expiry
		for _, code := range l.Options.Codes() {
			ev.Options[dhcp.Name(code)] = dhcp.FormatValue(code, l.Options[code], dhcp.EnvironmentStyle)
		}
	}
	e.publish(events.TopicLease, ev)
}

func (e *Engine) runHook(c *Client, env *hook.Env) int {
	if c.hook == nil {
		return 0
	}
	status := c.hook.Run(e.ctx, env)
	if status != 0 {
		c.logger.Debug("Hook failed", "reason", env.Reason(), "status", status)
	}
	return status
}

// writeLease records l for c. Every RewriteThreshold appends, or when
// forced, the whole database is rewritten instead.
func (e *Engine) writeLease(c *Client, l *Lease, force, sync bool) {
	if e.db == nil || l.IsStatic {
		return
	}

	if force || e.db.NoteWrite() {
		if err := e.rewriteLeases(c, l); err != nil {
			c.logger.Error("Failed to rewrite lease database", "error", err)
		}
		return
	}

	if err := e.db.Append(l.record(c.name), sync); err != nil {
		c.logger.Error("Failed to write lease", "error", err)
	}
}

// rewriteLeases writes every known lease, plus l for owner when l is not
// already one of them.
func (e *Engine) rewriteLeases(owner *Client, l *Lease) error {
	if e.db == nil {
		return nil
	}

	var recs []*leasedb.Record
	seen := false
	add := func(ifname string, set *leaseSet) {
		for _, b := range set.leases {
			if b.IsStatic {
				continue
			}
			seen = seen || b == l
			recs = append(recs, b.record(ifname))
		}
		if a := set.active; a != nil && !a.IsStatic {
			seen = seen || a == l
			recs = append(recs, a.record(ifname))
		}
	}

	for _, c := range e.clients {
		add(c.name, &c.leaseSet)
	}
	names := make([]string, 0, len(e.dormant))
	for name := range e.dormant {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(name, e.dormant[name])
	}

	if l != nil && owner != nil && !seen {
		recs = append(recs, l.record(owner.name))
	}
	return e.db.Rewrite(recs)
}

func (e *Engine) resolve(ifname string) ([]*Client, error) {
	if ifname == "" {
		return e.clients, nil
	}
	c, ok := e.byName[ifname]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, ifname)
	}
	return []*Client{c}, nil
}

func (e *Engine) Status(ifname string) ([]control.ClientStatus, error) {
	clients, err := e.resolve(ifname)
	if err != nil {
		return nil, err
	}

	out := make([]control.ClientStatus, 0, len(clients))
	for _, c := range clients {
		st := control.ClientStatus{
			Interface: c.name,
			State:     c.state.String(),
			Medium:    c.medium,
			Backups:   len(c.leases),
		}
		if a := c.active; a != nil {
			st.Address = a.Address.String()
			if id := a.ServerIdentifier(); id != nil {
				st.ServerID = id.String()
			}
			st.Renewal = a.Renewal
			st.Rebind = a.Rebind
			st.Expiry = a.Expiry
		}
		out = append(out, st)
	}
	return out, nil
}

func (e *Engine) Release(ifname string) error {
	clients, err := e.resolve(ifname)
	if err != nil {
		return err
	}
	for _, c := range clients {
		e.release(c)
	}
	return nil
}

func (e *Engine) Renew(ifname string) error {
	clients, err := e.resolve(ifname)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if err := e.renew(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) Stop(ifname string) error {
	clients, err := e.resolve(ifname)
	if err != nil {
		return err
	}
	for _, c := range clients {
		e.stopClient(c)
	}
	return nil
}

// release gives the active lease back to its server and stops the client.
func (e *Engine) release(c *Client) {
	c.xid = e.rand.Uint32()

	if l := c.active; l != nil {
		c.packet = e.makeRelease(c, l)
		to := l.ServerIdentifier()
		if to == nil {
			to = broadcastAddr
		}
		e.transmit(c, c.packet, l.Address, to)

		now := e.clock.Now()
		l.Renewal, l.Rebind, l.Expiry = now, now, now
		e.writeLease(c, l, true, true)

		env := e.newEnv(c, hook.ReasonRelease, l.Medium)
		writeParams(env, hook.PrefixOld, l)
		if c.alias != nil {
			writeParams(env, hook.PrefixAlias, c.alias)
		}
		e.runHook(c, env)
		e.publishLease(c, hook.ReasonRelease, l)

		if c.ddns != nil && c.cfg.DDNS != nil && c.cfg.DDNS.ForwardUpdate {
			e.ddnsRemove(c, l)
		}
	}

	e.cancelAll(c)
	e.setState(c, Stopped)
}

func (e *Engine) renew(c *Client) error {
	switch c.state {
	case Bound:
		e.cancel(c, actionStateBound)
		e.stateBound(c)
	case Stopped, Init:
		e.cancelAll(c)
		c.state = Init
		e.stateReboot(c)
	default:
		return fmt.Errorf("%w: %s in state %s", ErrBusy, c.name, c.state)
	}
	return nil
}

// stopClient stops protocol activity without giving the lease back.
func (e *Engine) stopClient(c *Client) {
	e.cancelAll(c)

	env := e.newEnv(c, hook.ReasonStop, c.medium)
	if c.active != nil {
		writeParams(env, hook.PrefixOld, c.active)
	}
	if c.alias != nil {
		writeParams(env, hook.PrefixAlias, c.alias)
	}
	e.runHook(c, env)
	e.publishLease(c, hook.ReasonStop, c.active)

	e.setState(c, Stopped)
}

var _ control.Handler = (*Engine)(nil)
