package dhcp

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PrintStyle selects the lease-file rendering (commas between list
// elements, quoted text) or the plain environment rendering.
type PrintStyle struct {
	Commas bool
	Quotes bool
	// HexPrefix marks single-byte hex as 0xNN so it cannot be read back as
	// a number.
	HexPrefix bool
}

var (
	LeaseFileStyle   = PrintStyle{Commas: true, Quotes: true, HexPrefix: true}
	EnvironmentStyle = PrintStyle{}
)

// FormatValue renders an option value. Values whose length does not fit the
// option format fall back to hex.
func FormatValue(code uint8, data []byte, style PrintStyle) string {
	info := Lookup(code)
	sep := " "
	if style.Commas {
		sep = ", "
	}

	switch info.Format {
	case FormatIP:
		if len(data) == 4 {
			return net.IP(data).String()
		}
	case FormatIPs:
		if len(data) > 0 && len(data)%4 == 0 {
			return joinEach(len(data)/4, sep, func(i int) string {
				return net.IP(data[i*4 : i*4+4]).String()
			})
		}
	case FormatIPPairs:
		if len(data) > 0 && len(data)%8 == 0 {
			return joinEach(len(data)/8, sep, func(i int) string {
				return net.IP(data[i*8:i*8+4]).String() + " " + net.IP(data[i*8+4:i*8+8]).String()
			})
		}
	case FormatUint32:
		if len(data) == 4 {
			return strconv.FormatUint(uint64(binary.BigEndian.Uint32(data)), 10)
		}
	case FormatInt32:
		if len(data) == 4 {
			return strconv.FormatInt(int64(int32(binary.BigEndian.Uint32(data))), 10)
		}
	case FormatUint16:
		if len(data) == 2 {
			return strconv.FormatUint(uint64(binary.BigEndian.Uint16(data)), 10)
		}
	case FormatUint16s:
		if len(data) > 0 && len(data)%2 == 0 {
			return joinEach(len(data)/2, sep, func(i int) string {
				return strconv.FormatUint(uint64(binary.BigEndian.Uint16(data[i*2:])), 10)
			})
		}
	case FormatUint8:
		if len(data) == 1 {
			return strconv.FormatUint(uint64(data[0]), 10)
		}
	case FormatUint8s:
		if len(data) > 0 {
			return joinEach(len(data), sep, func(i int) string {
				return strconv.FormatUint(uint64(data[i]), 10)
			})
		}
	case FormatBool:
		if len(data) == 1 {
			return strconv.FormatBool(data[0] != 0)
		}
	case FormatText:
		s := cString(data)
		if style.Quotes {
			return strconv.Quote(s)
		}
		return s
	}

	if style.HexPrefix && len(data) == 1 {
		return fmt.Sprintf("0x%02x", data[0])
	}
	return hexString(data)
}

// ParseValue is the inverse of FormatValue for the lease-file style; values
// holds the tokens between the option name and the terminating semicolon,
// with list commas and string quotes already removed.
func ParseValue(code uint8, values []string) ([]byte, error) {
	info := Lookup(code)
	if len(values) == 0 {
		return nil, fmt.Errorf("option %s: no value", info.Name)
	}

	if len(values) == 1 {
		switch {
		case info.Format == FormatBinary:
			if b, err := parseHex(values[0]); err == nil {
				return b, nil
			}
			return []byte(values[0]), nil
		case info.Format != FormatText && (strings.Contains(values[0], ":") || hasHexPrefix(values[0])):
			return parseHex(values[0])
		}
	}

	switch info.Format {
	case FormatIP, FormatIPs, FormatIPPairs:
		out := make([]byte, 0, 4*len(values))
		for _, v := range values {
			ip := net.ParseIP(v).To4()
			if ip == nil {
				return nil, fmt.Errorf("option %s: bad address %q", info.Name, v)
			}
			out = append(out, ip...)
		}
		return out, nil
	case FormatUint32, FormatInt32:
		n, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil || n < -1<<31 || n > 1<<32-1 {
			return nil, fmt.Errorf("option %s: bad number %q", info.Name, values[0])
		}
		return binary.BigEndian.AppendUint32(nil, uint32(n)), nil
	case FormatUint16, FormatUint16s:
		out := make([]byte, 0, 2*len(values))
		for _, v := range values {
			n, err := strconv.ParseUint(v, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("option %s: bad number %q", info.Name, v)
			}
			out = binary.BigEndian.AppendUint16(out, uint16(n))
		}
		return out, nil
	case FormatUint8, FormatUint8s:
		out := make([]byte, 0, len(values))
		for _, v := range values {
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("option %s: bad number %q", info.Name, v)
			}
			out = append(out, byte(n))
		}
		return out, nil
	case FormatBool:
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return nil, fmt.Errorf("option %s: bad flag %q", info.Name, values[0])
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case FormatText:
		return []byte(strings.Join(values, " ")), nil
	default:
		return nil, fmt.Errorf("option %s: cannot parse %v", info.Name, values)
	}
}

// SplitValue breaks a printed option value into the tokens ParseValue
// expects. Text values are kept whole.
func SplitValue(code uint8, value string) []string {
	if Lookup(code).Format == FormatText {
		return []string{value}
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func joinEach(n int, sep string, fn func(int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fn(i)
	}
	return strings.Join(parts, sep)
}

func hexString(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

func hasHexPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func parseHex(s string) ([]byte, error) {
	if hasHexPrefix(s) {
		b, err := hex.DecodeString(s[2:])
		if err != nil || len(b) == 0 {
			return nil, fmt.Errorf("bad hex value %q", s)
		}
		return b, nil
	}
	fields := strings.Split(s, ":")
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		if len(f) == 1 {
			f = "0" + f
		}
		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			return nil, fmt.Errorf("bad hex byte %q", f)
		}
		out = append(out, b[0])
	}
	return out, nil
}
