package leasedb

import (
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
)

// MaxTime is the latest representable lease time. It is written as "never".
var MaxTime = time.Unix(math.MaxInt32, 0).UTC()

const dateLayout = "2006/1/2 15:04:05"

// Record is one lease block of the database.
type Record struct {
	Interface  string
	Address    net.IP
	IsBootp    bool
	Medium     string
	Filename   string
	ServerName string
	Options    dhcp.Options
	Renewal    time.Time
	Rebind     time.Time
	Expiry     time.Time
}

// Format renders the record as a lease block.
func (r *Record) Format() string {
	var b strings.Builder

	b.WriteString("lease {\n")
	if r.IsBootp {
		b.WriteString("  bootp;\n")
	}
	fmt.Fprintf(&b, "  interface %q;\n", r.Interface)
	fmt.Fprintf(&b, "  fixed-address %s;\n", r.Address)
	if r.Filename != "" {
		fmt.Fprintf(&b, "  filename %q;\n", r.Filename)
	}
	if r.ServerName != "" {
		fmt.Fprintf(&b, "  server-name %q;\n", r.ServerName)
	}
	if r.Medium != "" {
		fmt.Fprintf(&b, "  medium %q;\n", r.Medium)
	}
	for _, code := range r.Options.Codes() {
		data := r.Options[code]
		if len(data) == 0 && dhcp.Lookup(code).Format != dhcp.FormatText {
			continue
		}
		fmt.Fprintf(&b, "  option %s %s;\n", dhcp.Name(code), dhcp.FormatValue(code, data, dhcp.LeaseFileStyle))
	}
	fmt.Fprintf(&b, "  renew %s;\n", formatTime(r.Renewal))
	fmt.Fprintf(&b, "  rebind %s;\n", formatTime(r.Rebind))
	fmt.Fprintf(&b, "  expire %s;\n", formatTime(r.Expiry))
	b.WriteString("}\n")

	return b.String()
}

func formatTime(t time.Time) string {
	if !t.Before(MaxTime) {
		return "never"
	}
	t = t.UTC()
	return fmt.Sprintf("%d %04d/%02d/%02d %02d:%02d:%02d",
		int(t.Weekday()), t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

func (ts *timestamp) time() (time.Time, error) {
	if ts.Never {
		return MaxTime, nil
	}
	fields := strings.Fields(ts.When)
	t, err := time.ParseInLocation(dateLayout, strings.Join(fields, " "), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", ts.When, err)
	}
	if t.After(MaxTime) {
		return MaxTime, nil
	}
	return t, nil
}

func (blk *leaseBlock) record() (*Record, error) {
	rec := &Record{Options: make(dhcp.Options)}

	for _, st := range blk.Statements {
		var err error
		switch {
		case st.Bootp:
			rec.IsBootp = true
		case st.Interface != nil:
			rec.Interface = *st.Interface
		case st.Address != nil:
			rec.Address = net.ParseIP(*st.Address).To4()
			if rec.Address == nil {
				return nil, fmt.Errorf("bad fixed-address %q", *st.Address)
			}
		case st.Filename != nil:
			rec.Filename = *st.Filename
		case st.ServerName != nil:
			rec.ServerName = *st.ServerName
		case st.Medium != nil:
			rec.Medium = *st.Medium
		case st.Option != nil:
			err = st.Option.apply(rec.Options)
		case st.Renew != nil:
			rec.Renewal, err = st.Renew.time()
		case st.Rebind != nil:
			rec.Rebind, err = st.Rebind.time()
		case st.Expire != nil:
			rec.Expiry, err = st.Expire.time()
		}
		if err != nil {
			return nil, err
		}
	}

	if rec.Address == nil {
		return nil, fmt.Errorf("lease without fixed-address")
	}
	return rec, nil
}

func (o *option) apply(opts dhcp.Options) error {
	info, ok := dhcp.LookupName(o.Name)
	if !ok {
		return fmt.Errorf("unknown option %q", o.Name)
	}
	data, err := dhcp.ParseValue(info.Code, o.Values)
	if err != nil {
		return err
	}
	opts.Set(info.Code, data)
	return nil
}
