package transport

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/dhclient/pkg/ethernet"
	"github.com/veesix-networks/dhclient/pkg/packet"
)

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// PacketConn is an AF_PACKET socket bound to one interface. It sends and
// receives whole Ethernet frames so the client can talk before it has an
// address.
type PacketConn struct {
	fd  int
	ifc *Interface
}

func ListenPacket(ifc *Interface, port uint16) (*PacketConn, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_IP)))
	if err != nil {
		return nil, fmt.Errorf("packet socket on %s: %w", ifc.Name, err)
	}

	raw, err := assembleFilter(port)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("assemble filter: %w", err)
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	prog := unix.SockFprog{Len: uint16(len(filter)), Filter: (*unix.SockFilter)(unsafe.Pointer(&filter[0]))}
	if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("attach filter on %s: %w", ifc.Name, err)
	}

	sa := &unix.SockaddrLinklayer{Protocol: htons(unix.ETH_P_IP), Ifindex: ifc.Index}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind packet socket to %s: %w", ifc.Name, err)
	}

	return &PacketConn{fd: fd, ifc: ifc}, nil
}

func (c *PacketConn) FD() int {
	return c.fd
}

// Send frames payload in UDP, IPv4 and Ethernet headers and transmits it.
func (c *PacketConn) Send(payload []byte, from, to net.IP, srcPort, dstPort uint16, hwDst net.HardwareAddr) error {
	frame := packet.AssembleLinkHeader(hwDst, c.ifc.HWAddr)
	frame = append(frame, packet.AssembleUDPIPHeader(from, to, srcPort, dstPort, payload)...)

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_IP),
		Ifindex:  c.ifc.Index,
		Halen:    ethernet.AddrLen,
	}
	if len(hwDst) == ethernet.AddrLen {
		copy(sa.Addr[:], hwDst)
	} else {
		copy(sa.Addr[:], ethernet.Broadcast)
	}
	return unix.Sendto(c.fd, frame, 0, sa)
}

// ReadFrame reads one frame. unix.EAGAIN means nothing is queued.
func (c *PacketConn) ReadFrame(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	return n, err
}

func (c *PacketConn) Close() error {
	return unix.Close(c.fd)
}

// FallbackConn is an ordinary UDP socket on the client port, used for
// unicast to servers once an address is configured.
type FallbackConn struct {
	fd int
}

func ListenFallback(port uint16) (*FallbackConn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("fallback socket: %w", err)
	}
	for _, opt := range []int{unix.SO_REUSEADDR, unix.SO_BROADCAST} {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, opt, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("fallback socket option %d: %w", opt, err)
		}
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind fallback socket to port %d: %w", port, err)
	}
	return &FallbackConn{fd: fd}, nil
}

func (c *FallbackConn) FD() int {
	return c.fd
}

func (c *FallbackConn) SendTo(payload []byte, to net.IP, port uint16) error {
	sa := &unix.SockaddrInet4{Port: int(port)}
	copy(sa.Addr[:], to.To4())
	return unix.Sendto(c.fd, payload, 0, sa)
}

// Drain discards queued datagrams; replies arrive on the packet sockets.
func (c *FallbackConn) Drain() {
	buf := make([]byte, 1500)
	for {
		if _, _, err := unix.Recvfrom(c.fd, buf, 0); err != nil {
			return
		}
	}
}

func (c *FallbackConn) Close() error {
	return unix.Close(c.fd)
}
