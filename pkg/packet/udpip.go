package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

const (
	IPHeaderLen  = 20
	UDPHeaderLen = 8

	tosLowDelay = 0x10
	defaultTTL  = 16
	protoUDP    = 17

	flagMoreFragments = 0x2000
	fragOffsetMask    = 0x1fff
)

var (
	ErrRejected    = errors.New("packet rejected")
	ErrTruncated   = fmt.Errorf("%w: truncated", ErrRejected)
	ErrMalformed   = fmt.Errorf("%w: malformed header", ErrRejected)
	ErrNotIPv4     = fmt.Errorf("%w: not ipv4", ErrRejected)
	ErrNotUDP      = fmt.Errorf("%w: not udp", ErrRejected)
	ErrFragment    = fmt.Errorf("%w: fragmented", ErrRejected)
	ErrWrongPort   = fmt.Errorf("%w: wrong destination port", ErrRejected)
	ErrChecksum    = fmt.Errorf("%w: checksum mismatch", ErrRejected)
	ErrIPChecksum  = fmt.Errorf("%w (ip header)", ErrChecksum)
	ErrUDPChecksum = fmt.Errorf("%w (udp)", ErrChecksum)
)

type Datagram struct {
	Src     net.IP
	Dst     net.IP
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// AssembleUDPIPHeader prepends an IPv4 and UDP header to payload and fills in
// both checksums.
func AssembleUDPIPHeader(src, dst net.IP, srcPort, dstPort uint16, payload []byte) []byte {
	total := IPHeaderLen + UDPHeaderLen + len(payload)
	pkt := make([]byte, total)

	ip := pkt[:IPHeaderLen]
	ip[0] = 0x45
	ip[1] = tosLowDelay
	binary.BigEndian.PutUint16(ip[2:4], uint16(total))
	ip[8] = defaultTTL
	ip[9] = protoUDP
	copy(ip[12:16], src.To4())
	copy(ip[16:20], dst.To4())
	binary.BigEndian.PutUint16(ip[10:12], Wrap(Checksum(ip, 0)))

	udp := pkt[IPHeaderLen:]
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(UDPHeaderLen+len(payload)))
	copy(udp[UDPHeaderLen:], payload)

	sum := Wrap(udpSum(ip[12:20], udp, len(udp)))
	if sum == 0 {
		sum = 0xffff
	}
	binary.BigEndian.PutUint16(udp[6:8], sum)

	return pkt
}

// udpSum covers the pseudo-header (addresses, protocol, length) and the first
// length bytes of the UDP segment.
func udpSum(addrs, segment []byte, length int) uint32 {
	sum := Checksum(addrs, uint32(protoUDP)+uint32(length))
	return Checksum(segment[:length], sum)
}

// DecodeUDPIPHeader validates the IPv4 and UDP headers at the start of buf and
// returns the datagram addressed to port. Checksums are verified before any
// field they cover is interpreted.
func DecodeUDPIPHeader(buf []byte, port uint16) (*Datagram, error) {
	if len(buf) < IPHeaderLen {
		return nil, ErrTruncated
	}

	ihl := int(buf[0]&0x0f) << 2
	hl := ihl
	if hl < IPHeaderLen {
		hl = IPHeaderLen
	}
	if hl > len(buf) {
		hl = len(buf)
	}
	if Wrap(Checksum(buf[:hl], 0)) != 0 {
		return nil, ErrIPChecksum
	}

	if buf[0]>>4 != 4 || ihl < IPHeaderLen || ihl > len(buf) {
		return nil, ErrMalformed
	}
	if buf[9] != protoUDP {
		return nil, ErrNotUDP
	}
	if off := binary.BigEndian.Uint16(buf[6:8]); off&(flagMoreFragments|fragOffsetMask) != 0 {
		return nil, ErrFragment
	}

	total := int(binary.BigEndian.Uint16(buf[2:4]))
	if total < ihl+UDPHeaderLen || total > len(buf) {
		return nil, ErrTruncated
	}
	buf = buf[:total]

	addrs := buf[12:20]
	udp := buf[ihl:]
	ulen := int(binary.BigEndian.Uint16(udp[4:6]))
	ulenValid := ulen >= UDPHeaderLen && ulen <= len(udp)

	if binary.BigEndian.Uint16(udp[6:8]) != 0 {
		ok := Wrap(udpSum(addrs, udp, len(udp))) == 0
		if !ok && ulenValid && ulen != len(udp) {
			ok = Wrap(udpSum(addrs, udp, ulen)) == 0
		}
		if !ok {
			return nil, ErrUDPChecksum
		}
	}

	if !ulenValid {
		return nil, ErrTruncated
	}

	dg := &Datagram{
		Src:     net.IPv4(buf[12], buf[13], buf[14], buf[15]).To4(),
		Dst:     net.IPv4(buf[16], buf[17], buf[18], buf[19]).To4(),
		SrcPort: binary.BigEndian.Uint16(udp[0:2]),
		DstPort: binary.BigEndian.Uint16(udp[2:4]),
		Payload: udp[UDPHeaderLen:ulen],
	}
	if dg.DstPort != port {
		return nil, ErrWrongPort
	}
	return dg, nil
}
