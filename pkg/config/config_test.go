package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dhclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "interfaces:\n  eth0: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLeaseFile, cfg.LeaseFile)
	assert.Equal(t, uint16(68), cfg.LocalPort)
	assert.Equal(t, ":9468", cfg.Metrics.ListenAddress)

	cc := cfg.Client("eth0")
	assert.Equal(t, 60*time.Second, cc.Timeout)
	assert.Equal(t, 300*time.Second, cc.Retry)
	assert.Equal(t, 10*time.Second, cc.RebootTimeout)
	assert.Equal(t, 15*time.Second, cc.BackoffCutoff)
	assert.Equal(t, 3*time.Second, cc.InitialInterval)
	assert.Equal(t, "/sbin/dhclient-script", cc.Script)

	codes, err := cc.RequestCodes()
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 28, 2, 3, 15, 6, 12}, codes)
}

func TestInterfaceOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
defaults:
  timeout: 30s
  script: builtin
interfaces:
  eth0:
    retry: 10s
    media: ["media 10baseT", "media AUI"]
    reject: ["192.0.2.1", "198.51.100.0/24"]
    require: [dhcp-server-identifier]
    send:
      host-name: myhost
      dhcp-client-identifier: "01:02:42:ac:11:00:02"
  eth1: {}
`))
	require.NoError(t, err)

	eth0 := cfg.Client("eth0")
	assert.Equal(t, 30*time.Second, eth0.Timeout)
	assert.Equal(t, 10*time.Second, eth0.Retry)
	assert.Equal(t, BuiltinScript, eth0.Script)
	assert.Len(t, eth0.Media, 2)

	prefixes, err := eth0.RejectPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "192.0.2.1/32", prefixes[0].String())

	send, err := eth0.SendOptions()
	require.NoError(t, err)
	assert.Equal(t, []byte("myhost"), send[dhcp.OptionHostName])
	assert.Len(t, send[dhcp.OptionClientIdentifier], 7)

	eth1 := cfg.Client("eth1")
	assert.Equal(t, 300*time.Second, eth1.Retry)
	assert.Empty(t, eth1.Media)
	assert.Equal(t, []string{"eth0", "eth1"}, cfg.InterfaceNames())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown request option", "defaults:\n  request: [no-such-option]\n"},
		{"bad reject", "interfaces:\n  eth0:\n    reject: [not-an-ip]\n"},
		{"cutoff below initial", "defaults:\n  backoff-cutoff: 1s\n  initial-interval: 5s\n"},
		{"ddns without server", "defaults:\n  ddns:\n    forward-update: true\n    fqdn: host.example.net\n"},
		{"bad static lease", "defaults:\n  static-leases:\n    - address: 10.0.0.300\n"},
		{"bad send value", "defaults:\n  send:\n    dhcp-lease-time: forever\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
