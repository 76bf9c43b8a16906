package ddns

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

const (
	identifierHWAddr   = 0x0000
	identifierClientID = 0x0001
	digestSHA256       = 1
)

// DHCID computes the RFC 4701 DHCID RDATA for a client, base64 encoded. A
// non-empty client identifier takes precedence over the hardware address.
func DHCID(clientID []byte, htype uint8, hwaddr []byte, fqdn string) (string, error) {
	name := make([]byte, 256)
	n, err := dns.PackDomainName(strings.ToLower(dns.Fqdn(fqdn)), name, 0, nil, false)
	if err != nil {
		return "", fmt.Errorf("pack %q: %w", fqdn, err)
	}

	h := sha256.New()
	var idType uint16
	if len(clientID) > 0 {
		idType = identifierClientID
		h.Write(clientID)
	} else {
		idType = identifierHWAddr
		h.Write([]byte{htype})
		h.Write(hwaddr)
	}
	h.Write(name[:n])

	rdata := []byte{byte(idType >> 8), byte(idType), digestSHA256}
	rdata = h.Sum(rdata)
	return base64.StdEncoding.EncodeToString(rdata), nil
}
