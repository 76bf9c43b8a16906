package logger

const (
	Main      = "main"
	Client    = "dhclient"
	Dispatch  = "dispatch"
	Transport = "transport"
	LeaseDB   = "leasedb"
	Hook      = "hook"
	DDNS      = "ddns"
	Control   = "control"
	Events    = "events"
	History   = "history"
	Metrics   = "metrics"
)
