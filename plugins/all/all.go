// Package all links every optional component into the daemon.
package all

import (
	_ "github.com/veesix-networks/dhclient/plugins/exporter/prometheus"
)
