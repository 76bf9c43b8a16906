package ethernet

import "net"

const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeVLAN uint16 = 0x8100

	HeaderLen = 14
	AddrLen   = 6

	// HTypeEthernet is the ARP hardware type carried in BOOTP htype.
	HTypeEthernet uint8 = 1
)

var Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
