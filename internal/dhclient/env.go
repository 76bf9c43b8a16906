package dhclient

import (
	"net"
	"os"
	"strconv"

	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/hook"
)

func (e *Engine) newEnv(c *Client, reason hook.Reason, medium string) *hook.Env {
	env := hook.NewEnv(reason)
	env.Set("interface", c.name)
	env.Set("client", c.name)
	if medium != "" {
		env.Set("medium", medium)
	}
	env.Set("pid", strconv.Itoa(os.Getpid()))
	return env
}

// writeParams adds the variables describing l under prefix.
func writeParams(env *hook.Env, prefix string, l *Lease) {
	env.Add(prefix, "ip_address", l.Address.String())

	if mask := l.Options.IP(dhcp.OptionSubnetMask); mask != nil {
		network, broadcast, ok := dhcp.NetworkAndBroadcast(l.Address, net.IPMask(mask))
		if ok {
			env.Add(prefix, "network_number", network.String())
			if !l.Options.Has(dhcp.OptionBroadcastAddress) {
				env.Add(prefix, "broadcast_address", broadcast.String())
			}
		}
	}

	if l.Filename != "" {
		env.Add(prefix, "filename", l.Filename)
	}
	if l.ServerName != "" {
		env.Add(prefix, "server_name", l.ServerName)
	}

	for _, code := range l.Options.Codes() {
		data := l.Options[code]
		if len(data) == 0 {
			continue
		}
		env.Add(prefix, dhcp.Name(code), dhcp.FormatValue(code, data, dhcp.EnvironmentStyle))
	}

	env.Add(prefix, "expiry", strconv.FormatInt(l.Expiry.Unix(), 10))
}
