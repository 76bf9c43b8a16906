package dhcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		code  uint8
		data  []byte
		style PrintStyle
		want  string
	}{
		{"address", OptionSubnetMask, []byte{255, 255, 255, 0}, LeaseFileStyle, "255.255.255.0"},
		{"address list lease file", OptionRouters, []byte{10, 0, 0, 1, 10, 0, 0, 2}, LeaseFileStyle, "10.0.0.1, 10.0.0.2"},
		{"address list env", OptionRouters, []byte{10, 0, 0, 1, 10, 0, 0, 2}, EnvironmentStyle, "10.0.0.1 10.0.0.2"},
		{"lease time", OptionLeaseTime, []byte{0, 0, 0x0e, 0x10}, LeaseFileStyle, "3600"},
		{"time offset", 2, []byte{0xff, 0xff, 0xff, 0xff}, EnvironmentStyle, "-1"},
		{"text quoted", OptionDomainName, []byte("example.net"), LeaseFileStyle, `"example.net"`},
		{"text raw", OptionDomainName, []byte("example.net"), EnvironmentStyle, "example.net"},
		{"bad length falls back to hex", OptionSubnetMask, []byte{255, 0}, LeaseFileStyle, "ff:00"},
		{"unknown option", 200, []byte{1, 0xab}, LeaseFileStyle, "01:ab"},
		{"single byte hex", 43, []byte{0x0a}, LeaseFileStyle, "0x0a"},
		{"single byte hex in environment", 43, []byte{0x0a}, EnvironmentStyle, "0a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.code, tt.data, tt.style))
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name   string
		code   uint8
		values []string
		want   []byte
	}{
		{"address list", OptionRouters, []string{"10.0.0.1", "10.0.0.2"}, []byte{10, 0, 0, 1, 10, 0, 0, 2}},
		{"uint32", OptionLeaseTime, []string{"3600"}, []byte{0, 0, 0x0e, 0x10}},
		{"negative int32", 2, []string{"-1"}, []byte{0xff, 0xff, 0xff, 0xff}},
		{"text", OptionDomainName, []string{"example.net"}, []byte("example.net")},
		{"hex", OptionClientIdentifier, []string{"01:02:42:ac:11:00:02"}, []byte{1, 2, 0x42, 0xac, 0x11, 0, 2}},
		{"prefixed hex", 43, []string{"0x0a"}, []byte{0x0a}},
		{"prefixed hex on short uint32", OptionLeaseTime, []string{"0x1f"}, []byte{0x1f}},
		{"uint8 list", OptionParameterRequestList, []string{"1", "3", "6"}, []byte{1, 3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.code, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseValue(OptionRouters, []string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseValue(OptionLeaseTime, nil)
	assert.Error(t, err)
}

func TestLookupName(t *testing.T) {
	o, ok := LookupName("dhcp.domain-name-servers")
	require.True(t, ok)
	assert.Equal(t, OptionDomainNameServers, o.Code)

	o, ok = LookupName("unknown-200")
	require.True(t, ok)
	assert.Equal(t, uint8(200), o.Code)

	_, ok = LookupName("no-such-option")
	assert.False(t, ok)
}
