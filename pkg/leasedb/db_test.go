package leasedb

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
)

func testRecord() *Record {
	opts := make(dhcp.Options)
	opts.Set(dhcp.OptionSubnetMask, []byte{255, 255, 255, 0})
	opts.Set(dhcp.OptionRouters, []byte{192, 0, 2, 1, 192, 0, 2, 2})
	opts.Set(dhcp.OptionDomainName, []byte(`corp "lab" net`))
	opts.Set(dhcp.OptionLeaseTime, []byte{0, 0, 0x0e, 0x10})
	opts.Set(dhcp.OptionServerIdentifier, []byte{192, 0, 2, 1})
	opts.Set(dhcp.OptionClientIdentifier, []byte{1, 2, 0x42, 0xac, 0x11, 0, 2})
	opts.Set(2, []byte{0xff, 0xff, 0xf1, 0xf0})

	return &Record{
		Interface:  "eth0",
		Address:    net.ParseIP("192.0.2.50").To4(),
		Medium:     "media 10baseT",
		Filename:   "pxelinux.0",
		ServerName: "boot.example.net",
		Options:    opts,
		Renewal:    time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC),
		Rebind:     time.Date(2026, 10, 20, 18, 30, 5, 0, time.UTC),
		Expiry:     MaxTime,
	}
}

func TestRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhclient.leases")
	db := Open(path)
	defer db.Close()

	want := testRecord()
	require.NoError(t, db.Append(want, true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "  renew 2 2026/10/20 12:00:00;\n")
	assert.Contains(t, string(raw), "  expire never;\n")
	assert.Contains(t, string(raw), "  option routers 192.0.2.1, 192.0.2.2;\n")

	recs, err := db.Load()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got := recs[0]
	assert.Equal(t, want.Interface, got.Interface)
	assert.True(t, want.Address.Equal(got.Address))
	assert.Equal(t, want.Medium, got.Medium)
	assert.Equal(t, want.Filename, got.Filename)
	assert.Equal(t, want.ServerName, got.ServerName)
	assert.Equal(t, want.Options, got.Options)
	assert.True(t, want.Renewal.Equal(got.Renewal))
	assert.True(t, want.Rebind.Equal(got.Rebind))
	assert.True(t, got.Expiry.Equal(MaxTime))
}

func TestRecordRoundTripSingleByteHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhclient.leases")
	db := Open(path)
	defer db.Close()

	want := testRecord()
	want.Options = make(dhcp.Options)
	want.Options.Set(43, []byte{0x0a})
	want.Options.Set(dhcp.OptionLeaseTime, []byte{0x1f})
	require.NoError(t, db.Append(want, true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), " 0x0a;\n")
	assert.Contains(t, string(raw), " 0x1f;\n")

	recs, err := db.Load()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	vendor, ok := recs[0].Options.Get(43)
	require.True(t, ok)
	assert.Equal(t, []byte{0x0a}, vendor)
	lease, ok := recs[0].Options.Get(dhcp.OptionLeaseTime)
	require.True(t, ok)
	assert.Equal(t, []byte{0x1f}, lease)
}

func TestLoadISCStyleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhclient.leases")
	content := `# written by dhclient
lease {
  bootp;
  interface "eth1";
  fixed-address 10.1.2.3;
  option subnet-mask 255.255.0.0;
  option dhcp.domain-name-servers 10.1.0.1,10.1.0.2;
  renew 0 2026/1/4 3:04:05;
  rebind 0 2026/01/04 04:04:05;
  expire 0 2026/01/04 05:04:05;
}
lease {
  interface "eth1";
  option routers 10.1.0.1;
  renew never;
  rebind never;
  expire never;
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	recs, err := Open(path).Load()
	require.NoError(t, err)
	require.Len(t, recs, 1, "block without fixed-address is skipped")

	rec := recs[0]
	assert.True(t, rec.IsBootp)
	assert.Equal(t, "eth1", rec.Interface)
	assert.Len(t, rec.Options.IPs(dhcp.OptionDomainNameServers), 2)
	assert.Equal(t, time.Date(2026, 1, 4, 3, 4, 5, 0, time.UTC), rec.Renewal)
}

func TestLoadMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	recs, err := Open(filepath.Join(dir, "none")).Load()
	require.NoError(t, err)
	assert.Empty(t, recs)

	bad := filepath.Join(dir, "bad")
	good := testRecord().Format()
	second := testRecord()
	second.Interface = "eth1"
	content := good + "lease { interface \"eth2\" fixed-address; }\n" + second.Format() + "lease {\n  interface \"eth0\";\n  option routers 192."
	require.NoError(t, os.WriteFile(bad, []byte(content), 0644))

	db := Open(bad)
	defer db.Close()
	recs, err = db.Load()
	require.NoError(t, err)
	require.Len(t, recs, 2, "good leases around the damage are kept")
	assert.Equal(t, "eth0", recs[0].Interface)
	assert.Equal(t, "eth1", recs[1].Interface)

	assert.True(t, db.NoteWrite(), "damaged file is compacted on the next write")
	require.NoError(t, db.Rewrite(recs))
	assert.False(t, db.NoteWrite())

	recs, err = Open(bad).Load()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSplitBlocks(t *testing.T) {
	data := []byte("# brace } in comment\nlease { medium \"a}b\\\"\"; }\n\nlease { }  # done\n")
	blocks, tail := splitBlocks(data)
	require.Len(t, blocks, 2)
	assert.Contains(t, string(blocks[0]), `"a}b\""`)
	assert.Nil(t, tail)

	_, tail = splitBlocks([]byte("lease { } lease { bootp;"))
	assert.Equal(t, " lease { bootp;", string(tail))
}

func TestRewriteCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhclient.leases")
	db := Open(path)
	defer db.Close()

	rec := testRecord()
	due := false
	for i := 0; i < RewriteThreshold+1; i++ {
		require.NoError(t, db.Append(rec, false))
		due = db.NoteWrite()
		if i < RewriteThreshold {
			require.False(t, due, "append %d", i)
		}
	}
	assert.True(t, due)

	other := testRecord()
	other.Interface = "eth9"
	require.NoError(t, db.Rewrite([]*Record{rec, other}))
	assert.False(t, db.NoteWrite())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "lease {"))

	require.NoError(t, db.Append(rec, true))
	recs, err := db.Load()
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "eth9", recs[1].Interface)
}
