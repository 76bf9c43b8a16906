package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"testing"

	"github.com/veesix-networks/dhclient/pkg/ethernet"
)

var payloadSizes = []int{0, 1, 2, 7, 64, 300, 548, 1472}

func testPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 3)
	}
	return p
}

func refreshIPChecksum(pkt []byte) {
	binary.BigEndian.PutUint16(pkt[10:12], 0)
	binary.BigEndian.PutUint16(pkt[10:12], Wrap(Checksum(pkt[:IPHeaderLen], 0)))
}

func TestChecksumKnownVector(t *testing.T) {
	// RFC 1071 example words.
	data := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}
	if got := Wrap(Checksum(data, 0)); got != ^uint16(0xddf2) {
		t.Errorf("Wrap(Checksum) = 0x%04x, want 0x%04x", got, ^uint16(0xddf2))
	}
}

func TestUDPIPRoundTrip(t *testing.T) {
	tests := []struct {
		src, dst net.IP
	}{
		{net.IPv4zero, net.IPv4bcast},
		{net.ParseIP("192.0.2.10"), net.ParseIP("192.0.2.1")},
		{net.ParseIP("10.255.0.1"), net.ParseIP("172.16.254.254")},
	}

	for _, tt := range tests {
		for _, n := range payloadSizes {
			payload := testPayload(n)
			pkt := AssembleUDPIPHeader(tt.src, tt.dst, 67, 68, payload)

			dg, err := DecodeUDPIPHeader(pkt, 68)
			if err != nil {
				t.Fatalf("decode %v->%v size %d: %v", tt.src, tt.dst, n, err)
			}
			if !dg.Src.Equal(tt.src) {
				t.Errorf("source = %v, want %v", dg.Src, tt.src)
			}
			if dg.SrcPort != 67 {
				t.Errorf("source port = %d, want 67", dg.SrcPort)
			}
			if !bytes.Equal(dg.Payload, payload) {
				t.Errorf("payload size %d mismatch", n)
			}
		}
	}
}

func TestAssembledHeaderFields(t *testing.T) {
	pkt := AssembleUDPIPHeader(net.IPv4zero, net.IPv4bcast, 68, 67, []byte{1, 2, 3})

	if pkt[1] != tosLowDelay {
		t.Errorf("TOS = 0x%02x, want 0x10", pkt[1])
	}
	if pkt[8] != 16 {
		t.Errorf("TTL = %d, want 16", pkt[8])
	}
	if pkt[9] != protoUDP {
		t.Errorf("protocol = %d, want 17", pkt[9])
	}
	if got := binary.BigEndian.Uint16(pkt[2:4]); got != 31 {
		t.Errorf("total length = %d, want 31", got)
	}
}

func TestSingleBitFlipRejected(t *testing.T) {
	src := net.ParseIP("192.0.2.1")
	dst := net.ParseIP("192.0.2.77")

	for _, n := range payloadSizes {
		orig := AssembleUDPIPHeader(src, dst, 67, 68, testPayload(n))

		for bit := 0; bit < (IPHeaderLen+UDPHeaderLen)*8; bit++ {
			byteIdx := bit / 8
			if byteIdx == 10 || byteIdx == 11 || byteIdx == 26 || byteIdx == 27 {
				continue
			}

			pkt := append([]byte(nil), orig...)
			pkt[byteIdx] ^= 1 << (bit % 8)

			_, err := DecodeUDPIPHeader(pkt, 68)
			if byteIdx == 24 || byteIdx == 25 {
				if !errors.Is(err, ErrRejected) {
					t.Errorf("size %d bit %d: udp length flip accepted", n, bit)
				}
				continue
			}
			if !errors.Is(err, ErrChecksum) {
				t.Errorf("size %d bit %d: err = %v, want checksum mismatch", n, bit, err)
			}
		}
	}
}

func TestZeroUDPChecksumSkipsVerification(t *testing.T) {
	pkt := AssembleUDPIPHeader(net.ParseIP("192.0.2.1"), net.IPv4bcast, 67, 68, testPayload(40))
	binary.BigEndian.PutUint16(pkt[26:28], 0)
	pkt[len(pkt)-1] ^= 0xff

	if _, err := DecodeUDPIPHeader(pkt, 68); err != nil {
		t.Fatalf("zero checksum should skip verification: %v", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	base := func() []byte {
		return AssembleUDPIPHeader(net.ParseIP("192.0.2.1"), net.IPv4bcast, 67, 68, testPayload(64))
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"wrong protocol", func(p []byte) []byte { p[9] = 6; refreshIPChecksum(p); return p }, ErrNotUDP},
		{"more fragments", func(p []byte) []byte { p[6] |= 0x20; refreshIPChecksum(p); return p }, ErrFragment},
		{"fragment offset", func(p []byte) []byte { p[7] = 0x10; refreshIPChecksum(p); return p }, ErrFragment},
		{"truncated buffer", func(p []byte) []byte { return p[:len(p)-10] }, ErrTruncated},
		{"short buffer", func(p []byte) []byte { return p[:12] }, ErrTruncated},
		{"udp checksum", func(p []byte) []byte { p[40] ^= 0x01; return p }, ErrUDPChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeUDPIPHeader(tt.mutate(base()), 68)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := DecodeUDPIPHeader(base(), 67); !errors.Is(err, ErrWrongPort) {
		t.Errorf("wrong port: err = %v", err)
	}
}

func TestLinkHeader(t *testing.T) {
	src := net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	dst := net.HardwareAddr{0x02, 0, 0, 0, 0, 2}

	tests := []struct {
		name string
		dst  net.HardwareAddr
		want net.HardwareAddr
	}{
		{"unicast", dst, dst},
		{"missing destination", nil, ethernet.Broadcast},
		{"short destination", net.HardwareAddr{1, 2, 3}, ethernet.Broadcast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := AssembleLinkHeader(tt.dst, src)
			if len(hdr) != ethernet.HeaderLen {
				t.Fatalf("header length = %d", len(hdr))
			}

			frame := append(hdr, AssembleUDPIPHeader(net.IPv4zero, net.IPv4bcast, 68, 67, testPayload(10))...)
			lh, payload, err := DecodeLinkHeader(frame)
			if err != nil {
				t.Fatalf("DecodeLinkHeader: %v", err)
			}
			if !bytes.Equal(lh.Dst, tt.want) || !bytes.Equal(lh.Src, src) {
				t.Errorf("dst=%v src=%v", lh.Dst, lh.Src)
			}
			if len(payload) != IPHeaderLen+UDPHeaderLen+10 {
				t.Errorf("payload length = %d", len(payload))
			}
		})
	}
}

func TestLinkHeaderBytes(t *testing.T) {
	src := net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	want := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x02, 0, 0, 0, 0, 1,
		0x08, 0x00,
	}
	if got := AssembleLinkHeader(nil, src); !bytes.Equal(got, want) {
		t.Errorf("header = % x, want % x", got, want)
	}

	zero := AssembleLinkHeader(nil, nil)
	if !bytes.Equal(zero[6:12], make([]byte, 6)) {
		t.Errorf("source = % x, want zeros", zero[6:12])
	}
}

func TestDecodeLinkHeaderRejectsARP(t *testing.T) {
	frame := AssembleLinkHeader(nil, nil)
	binary.BigEndian.PutUint16(frame[12:14], ethernet.EtherTypeARP)
	frame = append(frame, make([]byte, 28)...)

	if _, _, err := DecodeLinkHeader(frame); !errors.Is(err, ErrNotIPv4) {
		t.Errorf("err = %v, want ErrNotIPv4", err)
	}
}

func TestDecoderRateLimitsDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	d := NewDecoder(68, slog.New(slog.NewTextHandler(&buf, nil)))

	good := AssembleUDPIPHeader(net.ParseIP("192.0.2.1"), net.IPv4bcast, 67, 68, testPayload(20))
	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0x55

	for i := 0; i < 4; i++ {
		d.Decode(bad)
	}
	if buf.Len() != 0 {
		t.Fatalf("diagnostic logged before threshold: %q", buf.String())
	}
	d.Decode(bad)
	if !bytes.Contains(buf.Bytes(), []byte("Bad UDP checksums seen")) {
		t.Fatalf("expected diagnostic, got %q", buf.String())
	}

	if _, err := d.Decode(good); err != nil {
		t.Fatalf("good packet: %v", err)
	}
}
