package packet

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhclient/pkg/ethernet"
)

type LinkHeader struct {
	Dst       net.HardwareAddr
	Src       net.HardwareAddr
	EtherType uint16
}

// AssembleLinkHeader builds an Ethernet II header for an IPv4 frame. A missing
// or malformed destination address falls back to the broadcast address, and
// a malformed source address is sent as zeros.
func AssembleLinkHeader(dst, src net.HardwareAddr) []byte {
	if len(dst) != ethernet.AddrLen {
		dst = ethernet.Broadcast
	}
	if len(src) != ethernet.AddrLen {
		src = make(net.HardwareAddr, ethernet.AddrLen)
	}

	eth := &layers.Ethernet{
		DstMAC:       dst,
		SrcMAC:       src,
		EthernetType: layers.EthernetTypeIPv4,
	}
	buf := gopacket.NewSerializeBuffer()
	// SerializeTo only rejects bad address lengths, which are fixed above.
	_ = eth.SerializeTo(buf, gopacket.SerializeOptions{})

	// The layer pads a bare header to the minimum frame size.
	return buf.Bytes()[:ethernet.HeaderLen]
}

// DecodeLinkHeader strips the Ethernet header and returns the IPv4 payload.
func DecodeLinkHeader(frame []byte) (*LinkHeader, []byte, error) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	if uint16(eth.EthernetType) != ethernet.EtherTypeIPv4 {
		return nil, nil, fmt.Errorf("%w: ethertype 0x%04x", ErrNotIPv4, uint16(eth.EthernetType))
	}

	hdr := &LinkHeader{
		Dst:       append(net.HardwareAddr(nil), eth.DstMAC...),
		Src:       append(net.HardwareAddr(nil), eth.SrcMAC...),
		EtherType: uint16(eth.EthernetType),
	}
	return hdr, eth.Payload, nil
}
