package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/dispatch"
	"github.com/veesix-networks/dhclient/pkg/logger"
	"github.com/veesix-networks/dhclient/pkg/packet"
)

// Outbound is an encoded DHCP message and where it goes. A broadcast or
// unspecified To goes out the packet socket; anything else is unicast
// through the fallback socket.
type Outbound struct {
	Payload []byte
	From    net.IP
	To      net.IP
	HWDest  net.HardwareAddr
}

// Received is a decoded message from a server.
type Received struct {
	Interface string
	From      net.IP
	HWFrom    net.HardwareAddr
	Message   *dhcp.Message
}

type Handler func(*Received)

type Config struct {
	LocalPort  uint16
	RemotePort uint16
	Netns      string
}

// Stats counts frames at the transport boundary.
type Stats struct {
	Received atomic.Uint64
	Sent     atomic.Uint64
	Rejected atomic.Uint64
	Errors   atomic.Uint64
}

type Transport struct {
	cfg      Config
	ifaces   []*Interface
	conns    map[string]*PacketConn
	fallback *FallbackConn
	decoder  *packet.Decoder
	handler  Handler
	stats    Stats
	logger   *slog.Logger
}

// New opens a packet socket per interface plus the fallback socket, inside
// cfg.Netns when set.
func New(cfg Config, ifaces []*Interface, handler Handler) (*Transport, error) {
	if cfg.LocalPort == 0 {
		cfg.LocalPort = dhcp.ClientPort
	}
	if cfg.RemotePort == 0 {
		cfg.RemotePort = cfg.LocalPort - 1
	}

	log := logger.Get(logger.Transport)
	t := &Transport{
		cfg:     cfg,
		ifaces:  ifaces,
		conns:   make(map[string]*PacketConn, len(ifaces)),
		decoder: packet.NewDecoder(cfg.LocalPort, log),
		handler: handler,
		logger:  log,
	}

	err := InNamespace(cfg.Netns, func() error {
		for _, ifc := range ifaces {
			conn, err := ListenPacket(ifc, cfg.LocalPort)
			if err != nil {
				return err
			}
			t.conns[ifc.Name] = conn
			t.logger.Info("Listening", "interface", ifc.Name, "hwaddr", ifc.HWAddr)
		}

		fb, err := ListenFallback(cfg.LocalPort)
		if err != nil {
			return err
		}
		t.fallback = fb
		return nil
	})
	if err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transport) Interfaces() []*Interface {
	return t.ifaces
}

func (t *Transport) Interface(name string) (*Interface, bool) {
	for _, ifc := range t.ifaces {
		if ifc.Name == name {
			return ifc, true
		}
	}
	return nil, false
}

func (t *Transport) Stats() *Stats {
	return &t.stats
}

// Register adds the sockets to the dispatcher's poll set.
func (t *Transport) Register(d *dispatch.Dispatcher) {
	for name, conn := range t.conns {
		conn := conn
		name := name
		d.Register(dispatch.Source{
			Name:       "packet:" + name,
			FD:         conn.FD(),
			OnReadable: func() { t.readFrames(name, conn) },
		})
	}
	if t.fallback != nil {
		d.Register(dispatch.Source{
			Name:       "fallback",
			FD:         t.fallback.FD(),
			OnReadable: t.fallback.Drain,
		})
	}
}

func (t *Transport) Send(ifname string, out *Outbound) error {
	conn, ok := t.conns[ifname]
	if !ok {
		return fmt.Errorf("no socket for interface %q", ifname)
	}

	to := out.To
	if to == nil {
		to = net.IPv4bcast
	}
	from := out.From
	if from == nil {
		from = net.IPv4zero
	}

	var err error
	if !to.Equal(net.IPv4bcast) && t.fallback != nil {
		err = t.fallback.SendTo(out.Payload, to, t.cfg.RemotePort)
	} else {
		err = conn.Send(out.Payload, from, to, t.cfg.LocalPort, t.cfg.RemotePort, out.HWDest)
	}
	if err != nil {
		t.stats.Errors.Add(1)
		return fmt.Errorf("send on %s to %s: %w", ifname, to, err)
	}
	t.stats.Sent.Add(1)
	return nil
}

func (t *Transport) readFrames(name string, conn *PacketConn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.ReadFrame(buf)
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				t.stats.Errors.Add(1)
				t.logger.Warn("Read failed", "interface", name, "error", err)
			}
			return
		}

		rx, err := t.decodeFrame(name, buf[:n])
		if err != nil {
			t.stats.Rejected.Add(1)
			t.logger.Debug("Dropped frame", "interface", name, "error", err)
			continue
		}
		t.stats.Received.Add(1)
		t.handler(rx)
	}
}

func (t *Transport) decodeFrame(name string, frame []byte) (*Received, error) {
	lh, ipPayload, err := packet.DecodeLinkHeader(frame)
	if err != nil {
		return nil, err
	}
	dg, err := t.decoder.Decode(ipPayload)
	if err != nil {
		return nil, err
	}
	msg, err := dhcp.Decode(dg.Payload)
	if err != nil {
		return nil, err
	}
	return &Received{
		Interface: name,
		From:      dg.Src,
		HWFrom:    lh.Src,
		Message:   msg,
	}, nil
}

func (t *Transport) Close() error {
	var errs []error
	for _, conn := range t.conns {
		errs = append(errs, conn.Close())
	}
	if t.fallback != nil {
		errs = append(errs, t.fallback.Close())
	}
	return errors.Join(errs...)
}
