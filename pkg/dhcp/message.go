package dhcp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ServerPort = 67
	ClientPort = 68

	OpRequest uint8 = 1
	OpReply   uint8 = 2

	BroadcastFlag uint16 = 0x8000

	// MinPacketSize is the smallest BOOTP message put on the wire.
	MinPacketSize = 300

	fixedHeaderLen = 236
	magicCookieLen = 4
	maxHWAddrLen   = 16
)

type MessageType uint8

const (
	DHCPDiscover MessageType = 1
	DHCPOffer    MessageType = 2
	DHCPRequest  MessageType = 3
	DHCPDecline  MessageType = 4
	DHCPAck      MessageType = 5
	DHCPNak      MessageType = 6
	DHCPRelease  MessageType = 7
	DHCPInform   MessageType = 8
)

func (mt MessageType) String() string {
	switch mt {
	case 0:
		return "BOOTREPLY"
	case DHCPDiscover:
		return "DHCPDISCOVER"
	case DHCPOffer:
		return "DHCPOFFER"
	case DHCPRequest:
		return "DHCPREQUEST"
	case DHCPDecline:
		return "DHCPDECLINE"
	case DHCPAck:
		return "DHCPACK"
	case DHCPNak:
		return "DHCPNAK"
	case DHCPRelease:
		return "DHCPRELEASE"
	case DHCPInform:
		return "DHCPINFORM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", mt)
	}
}

// Message is a decoded BOOTP/DHCP message. A zero MessageType marks a plain
// BOOTP reply.
type Message struct {
	Op          uint8
	HType       uint8
	HLen        uint8
	Hops        uint8
	XID         uint32
	Secs        uint16
	Flags       uint16
	CIAddr      net.IP
	YIAddr      net.IP
	SIAddr      net.IP
	GIAddr      net.IP
	CHAddr      net.HardwareAddr
	ServerName  string
	File        string
	MessageType MessageType
	Options     Options
}

// Decode parses a BOOTP/DHCP message. Options carried in the sname and file
// fields through option overload are merged into Options.
func Decode(data []byte) (*Message, error) {
	if len(data) < fixedHeaderLen+magicCookieLen {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	if data[2] > maxHWAddrLen {
		return nil, fmt.Errorf("invalid hardware address length %d", data[2])
	}

	var d layers.DHCPv4
	if err := d.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("decode dhcp: %w", err)
	}

	m := &Message{
		Op:      uint8(d.Operation),
		HType:   uint8(d.HardwareType),
		HLen:    d.HardwareLen,
		Hops:    d.HardwareOpts,
		XID:     d.Xid,
		Secs:    d.Secs,
		Flags:   d.Flags,
		CIAddr:  copyIP(d.ClientIP),
		YIAddr:  copyIP(d.YourClientIP),
		SIAddr:  copyIP(d.NextServerIP),
		GIAddr:  copyIP(d.RelayAgentIP),
		CHAddr:  append(net.HardwareAddr(nil), d.ClientHWAddr...),
		Options: make(Options),
	}

	for _, o := range d.Options {
		if o.Type == layers.DHCPOptPad || o.Type == layers.DHCPOptEnd {
			continue
		}
		m.Options.append(uint8(o.Type), o.Data)
	}

	overload, _ := m.Options.Uint8(OptionOverload)
	if overload&1 != 0 {
		if err := m.Options.parseArea(data[108:236]); err != nil {
			return nil, fmt.Errorf("parse overloaded file field: %w", err)
		}
	} else {
		m.File = cString(data[108:236])
	}
	if overload&2 != 0 {
		if err := m.Options.parseArea(data[44:108]); err != nil {
			return nil, fmt.Errorf("parse overloaded sname field: %w", err)
		}
	} else {
		m.ServerName = cString(data[44:108])
	}

	if mt, ok := m.Options.Uint8(OptionMessageType); ok {
		m.MessageType = MessageType(mt)
	}

	return m, nil
}

// Encode serialises the message with the message type option first and the
// remaining options in ascending code order, padded to MinPacketSize.
func (m *Message) Encode() ([]byte, error) {
	d := &layers.DHCPv4{
		Operation:    layers.DHCPOp(m.Op),
		HardwareType: layers.LinkType(m.HType),
		HardwareLen:  m.HLen,
		HardwareOpts: m.Hops,
		Xid:          m.XID,
		Secs:         m.Secs,
		Flags:        m.Flags,
		ClientIP:     m.CIAddr,
		YourClientIP: m.YIAddr,
		NextServerIP: m.SIAddr,
		RelayAgentIP: m.GIAddr,
		ClientHWAddr: m.CHAddr,
	}
	if m.ServerName != "" {
		d.ServerName = []byte(m.ServerName)
	}
	if m.File != "" {
		d.File = []byte(m.File)
	}

	opts := m.Options.Clone()
	if m.MessageType != 0 {
		opts[OptionMessageType] = []byte{byte(m.MessageType)}
	}
	if data, ok := opts[OptionMessageType]; ok {
		d.Options = append(d.Options, layers.NewDHCPOption(layers.DHCPOptMessageType, data))
	}
	for _, code := range opts.Codes() {
		if code == OptionMessageType {
			continue
		}
		data := opts[code]
		if len(data) > 255 {
			return nil, fmt.Errorf("option %s too long: %d bytes", Name(code), len(data))
		}
		d.Options = append(d.Options, layers.NewDHCPOption(layers.DHCPOpt(code), data))
	}

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, d); err != nil {
		return nil, fmt.Errorf("serialize dhcp: %w", err)
	}

	out := buf.Bytes()
	if len(out) < MinPacketSize {
		out = append(out, make([]byte, MinPacketSize-len(out))...)
	}
	return out, nil
}

// ServerIdentifier returns option 54 when it carries at least four bytes.
func (m *Message) ServerIdentifier() net.IP {
	return m.Options.IP(OptionServerIdentifier)
}

func copyIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return append(net.IP(nil), v4...)
	}
	return net.IPv4zero.To4()
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func be32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}
