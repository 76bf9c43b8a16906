package prometheus

import "github.com/veesix-networks/dhclient/pkg/config/system"

const Namespace = "exporter.prometheus"

const defaultListenAddress = ":9468"

func listenAddress(cfg system.MetricsConfig) string {
	if cfg.ListenAddress != "" {
		return cfg.ListenAddress
	}
	return defaultListenAddress
}
