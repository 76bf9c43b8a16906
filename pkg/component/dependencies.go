package component

import (
	"github.com/veesix-networks/dhclient/pkg/config"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/opdb"
	"github.com/veesix-networks/dhclient/pkg/transport"
)

type Dependencies struct {
	Config    *config.Config
	EventBus  events.Bus
	OpDB      opdb.Store
	Transport *transport.Transport
}
