package dhcp

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

const (
	OptionPad                  uint8 = 0
	OptionSubnetMask           uint8 = 1
	OptionRouters              uint8 = 3
	OptionDomainNameServers    uint8 = 6
	OptionHostName             uint8 = 12
	OptionDomainName           uint8 = 15
	OptionBroadcastAddress     uint8 = 28
	OptionRequestedAddress     uint8 = 50
	OptionLeaseTime            uint8 = 51
	OptionOverload             uint8 = 52
	OptionMessageType          uint8 = 53
	OptionServerIdentifier     uint8 = 54
	OptionParameterRequestList uint8 = 55
	OptionMessage              uint8 = 56
	OptionMaxMessageSize       uint8 = 57
	OptionRenewalTime          uint8 = 58
	OptionRebindingTime        uint8 = 59
	OptionClientIdentifier     uint8 = 61
	OptionFQDN                 uint8 = 81
	OptionClasslessRoutes      uint8 = 121
	OptionEnd                  uint8 = 255
)

// Format describes how an option value is printed and parsed.
type Format uint8

const (
	FormatBinary Format = iota
	FormatIP
	FormatIPs
	FormatIPPairs
	FormatUint32
	FormatInt32
	FormatUint16
	FormatUint16s
	FormatUint8
	FormatUint8s
	FormatBool
	FormatText
)

type OptionInfo struct {
	Code   uint8
	Name   string
	Format Format
}

var optionTable = []OptionInfo{
	{1, "subnet-mask", FormatIP},
	{2, "time-offset", FormatInt32},
	{3, "routers", FormatIPs},
	{4, "time-servers", FormatIPs},
	{5, "ien116-name-servers", FormatIPs},
	{6, "domain-name-servers", FormatIPs},
	{7, "log-servers", FormatIPs},
	{8, "cookie-servers", FormatIPs},
	{9, "lpr-servers", FormatIPs},
	{10, "impress-servers", FormatIPs},
	{11, "resource-location-servers", FormatIPs},
	{12, "host-name", FormatText},
	{13, "boot-size", FormatUint16},
	{14, "merit-dump", FormatText},
	{15, "domain-name", FormatText},
	{16, "swap-server", FormatIP},
	{17, "root-path", FormatText},
	{18, "extensions-path", FormatText},
	{19, "ip-forwarding", FormatBool},
	{20, "non-local-source-routing", FormatBool},
	{21, "policy-filter", FormatIPPairs},
	{22, "max-dgram-reassembly", FormatUint16},
	{23, "default-ip-ttl", FormatUint8},
	{24, "path-mtu-aging-timeout", FormatUint32},
	{25, "path-mtu-plateau-table", FormatUint16s},
	{26, "interface-mtu", FormatUint16},
	{27, "all-subnets-local", FormatBool},
	{28, "broadcast-address", FormatIP},
	{29, "perform-mask-discovery", FormatBool},
	{30, "mask-supplier", FormatBool},
	{31, "router-discovery", FormatBool},
	{32, "router-solicitation-address", FormatIP},
	{33, "static-routes", FormatIPPairs},
	{34, "trailer-encapsulation", FormatBool},
	{35, "arp-cache-timeout", FormatUint32},
	{36, "ieee802-3-encapsulation", FormatBool},
	{37, "default-tcp-ttl", FormatUint8},
	{38, "tcp-keepalive-interval", FormatUint32},
	{39, "tcp-keepalive-garbage", FormatBool},
	{40, "nis-domain", FormatText},
	{41, "nis-servers", FormatIPs},
	{42, "ntp-servers", FormatIPs},
	{43, "vendor-encapsulated-options", FormatBinary},
	{44, "netbios-name-servers", FormatIPs},
	{45, "netbios-dd-server", FormatIPs},
	{46, "netbios-node-type", FormatUint8},
	{47, "netbios-scope", FormatText},
	{48, "font-servers", FormatIPs},
	{49, "x-display-manager", FormatIPs},
	{50, "dhcp-requested-address", FormatIP},
	{51, "dhcp-lease-time", FormatUint32},
	{52, "dhcp-option-overload", FormatUint8},
	{53, "dhcp-message-type", FormatUint8},
	{54, "dhcp-server-identifier", FormatIP},
	{55, "dhcp-parameter-request-list", FormatUint8s},
	{56, "dhcp-message", FormatText},
	{57, "dhcp-max-message-size", FormatUint16},
	{58, "dhcp-renewal-time", FormatUint32},
	{59, "dhcp-rebinding-time", FormatUint32},
	{60, "vendor-class-identifier", FormatText},
	{61, "dhcp-client-identifier", FormatBinary},
	{62, "nwip-domain", FormatText},
	{63, "nwip-suboptions", FormatBinary},
	{64, "nisplus-domain", FormatText},
	{65, "nisplus-servers", FormatIPs},
	{66, "tftp-server-name", FormatText},
	{67, "bootfile-name", FormatText},
	{68, "mobile-ip-home-agent", FormatIPs},
	{69, "smtp-server", FormatIPs},
	{70, "pop-server", FormatIPs},
	{71, "nntp-server", FormatIPs},
	{72, "www-server", FormatIPs},
	{73, "finger-server", FormatIPs},
	{74, "irc-server", FormatIPs},
	{75, "streettalk-server", FormatIPs},
	{76, "streettalk-directory-assistance-server", FormatIPs},
	{77, "user-class", FormatText},
	{81, "fqdn", FormatBinary},
	{82, "relay-agent-information", FormatBinary},
	{119, "domain-search", FormatBinary},
	{121, "classless-static-routes", FormatBinary},
}

var (
	optionsByCode = make(map[uint8]OptionInfo, len(optionTable))
	optionsByName = make(map[string]OptionInfo, len(optionTable))
)

func init() {
	for _, o := range optionTable {
		optionsByCode[o.Code] = o
		optionsByName[o.Name] = o
	}
}

// Lookup returns the option description for code. Codes without a name are
// reported as "unknown-<code>" with binary format.
func Lookup(code uint8) OptionInfo {
	if o, ok := optionsByCode[code]; ok {
		return o
	}
	return OptionInfo{Code: code, Name: fmt.Sprintf("unknown-%d", code), Format: FormatBinary}
}

func Name(code uint8) string {
	return Lookup(code).Name
}

// LookupName resolves an option name, also accepting "unknown-<code>" and a
// bare decimal code.
func LookupName(name string) (OptionInfo, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, "dhcp."))
	if o, ok := optionsByName[name]; ok {
		return o, true
	}
	num := strings.TrimPrefix(name, "unknown-")
	if code, err := strconv.ParseUint(num, 10, 8); err == nil {
		return Lookup(uint8(code)), true
	}
	return OptionInfo{}, false
}

// Options is the option bag of a message or lease, keyed by option code.
type Options map[uint8][]byte

func (o Options) Has(code uint8) bool {
	_, ok := o[code]
	return ok
}

func (o Options) Get(code uint8) ([]byte, bool) {
	v, ok := o[code]
	return v, ok
}

func (o Options) Set(code uint8, data []byte) {
	o[code] = append([]byte(nil), data...)
}

func (o Options) Delete(code uint8) {
	delete(o, code)
}

// IP returns the first address of an address option, or nil.
func (o Options) IP(code uint8) net.IP {
	v, ok := o[code]
	if !ok || len(v) < 4 {
		return nil
	}
	return net.IPv4(v[0], v[1], v[2], v[3]).To4()
}

// IPs returns every complete address of an address-list option.
func (o Options) IPs(code uint8) []net.IP {
	v := o[code]
	ips := make([]net.IP, 0, len(v)/4)
	for i := 0; i+4 <= len(v); i += 4 {
		ips = append(ips, net.IPv4(v[i], v[i+1], v[i+2], v[i+3]).To4())
	}
	return ips
}

// Uint32 returns a 32-bit option value; shorter values are reported absent.
func (o Options) Uint32(code uint8) (uint32, bool) {
	v, ok := o[code]
	if !ok || len(v) < 4 {
		return 0, false
	}
	return be32(v), true
}

func (o Options) Uint8(code uint8) (uint8, bool) {
	v, ok := o[code]
	if !ok || len(v) < 1 {
		return 0, false
	}
	return v[0], true
}

func (o Options) String(code uint8) (string, bool) {
	v, ok := o[code]
	if !ok {
		return "", false
	}
	return cString(v), true
}

// Codes returns the present option codes in ascending order.
func (o Options) Codes() []uint8 {
	codes := make([]uint8, 0, len(o))
	for c := range o {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = append([]byte(nil), v...)
	}
	return c
}

// append concatenates repeated instances of an option (RFC 3396).
func (o Options) append(code uint8, data []byte) {
	o[code] = append(o[code], data...)
}

func (o Options) parseArea(data []byte) error {
	i := 0
	for i < len(data) {
		if data[i] == OptionPad {
			i++
			continue
		}
		if data[i] == OptionEnd {
			break
		}

		code := data[i]
		if i+1 >= len(data) {
			return fmt.Errorf("option %d: missing length", code)
		}

		n := int(data[i+1])
		if i+2+n > len(data) {
			return fmt.Errorf("option %d: length %d exceeds area", code, n)
		}

		o.append(code, data[i+2:i+2+n])
		i += 2 + n
	}
	return nil
}
