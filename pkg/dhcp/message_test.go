package dhcp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHW = net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}

func testOffer() *Message {
	opts := make(Options)
	opts.Set(OptionServerIdentifier, []byte{192, 0, 2, 1})
	opts.Set(OptionLeaseTime, []byte{0, 0, 0x0e, 0x10})
	opts.Set(OptionSubnetMask, []byte{255, 255, 255, 0})
	opts.Set(OptionRouters, []byte{192, 0, 2, 1, 192, 0, 2, 2})
	opts.Set(OptionDomainName, []byte("example.net"))

	return &Message{
		Op:          OpReply,
		HType:       1,
		HLen:        6,
		XID:         0x12345678,
		YIAddr:      net.ParseIP("192.0.2.50").To4(),
		SIAddr:      net.ParseIP("192.0.2.1").To4(),
		CHAddr:      testHW,
		ServerName:  "boot.example.net",
		File:        "pxelinux.0",
		MessageType: DHCPOffer,
		Options:     opts,
	}
}

func TestEncodeDecode(t *testing.T) {
	orig := testOffer()

	wire, err := orig.Encode()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(wire), MinPacketSize)
	assert.Equal(t, byte(OptionMessageType), wire[240], "message type must be the first option")

	m, err := Decode(wire)
	require.NoError(t, err)

	assert.Equal(t, OpReply, m.Op)
	assert.Equal(t, uint32(0x12345678), m.XID)
	assert.Equal(t, testHW, m.CHAddr)
	assert.True(t, m.YIAddr.Equal(orig.YIAddr))
	assert.Equal(t, DHCPOffer, m.MessageType)
	assert.Equal(t, "boot.example.net", m.ServerName)
	assert.Equal(t, "pxelinux.0", m.File)
	assert.True(t, m.ServerIdentifier().Equal(net.ParseIP("192.0.2.1")))

	lt, ok := m.Options.Uint32(OptionLeaseTime)
	require.True(t, ok)
	assert.Equal(t, uint32(3600), lt)
	assert.Len(t, m.Options.IPs(OptionRouters), 2)
}

func TestDecodeOverload(t *testing.T) {
	wire, err := (&Message{
		Op:          OpReply,
		HType:       1,
		HLen:        6,
		XID:         7,
		CHAddr:      testHW,
		MessageType: DHCPAck,
		Options:     Options{OptionOverload: {3}},
	}).Encode()
	require.NoError(t, err)

	// file field: lease time; sname field: host name.
	copy(wire[108:], []byte{OptionLeaseTime, 4, 0, 0, 0x1c, 0x20, OptionEnd})
	copy(wire[44:], []byte{OptionHostName, 4, 'h', 'o', 's', 't', OptionEnd})

	m, err := Decode(wire)
	require.NoError(t, err)

	lt, ok := m.Options.Uint32(OptionLeaseTime)
	require.True(t, ok)
	assert.Equal(t, uint32(7200), lt)
	name, _ := m.Options.String(OptionHostName)
	assert.Equal(t, "host", name)
	assert.Empty(t, m.ServerName)
	assert.Empty(t, m.File)
}

func TestDecodeRejectsShortAndBadHLen(t *testing.T) {
	_, err := Decode(make([]byte, 100))
	assert.Error(t, err)

	wire, err := testOffer().Encode()
	require.NoError(t, err)
	wire[2] = 17
	_, err = Decode(wire)
	assert.Error(t, err)
}

func TestEncodeRejectsLongOption(t *testing.T) {
	m := testOffer()
	m.Options.Set(OptionDomainName, make([]byte, 256))
	_, err := m.Encode()
	assert.Error(t, err)
}

func TestRepeatedOptionsConcatenate(t *testing.T) {
	opts := make(Options)
	require.NoError(t, opts.parseArea([]byte{
		OptionDomainNameServers, 4, 10, 0, 0, 1,
		OptionPad,
		OptionDomainNameServers, 4, 10, 0, 0, 2,
		OptionEnd,
	}))
	assert.Len(t, opts.IPs(OptionDomainNameServers), 2)

	assert.Error(t, opts.parseArea([]byte{OptionHostName, 10, 'a'}))
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "BOOTREPLY", MessageType(0).String())
	assert.Equal(t, "DHCPNAK", DHCPNak.String())
	assert.Equal(t, "UNKNOWN(42)", MessageType(42).String())
}
