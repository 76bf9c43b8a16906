package control

import "time"

const (
	CommandStatus   = "status"
	CommandRelease  = "release"
	CommandRenew    = "renew"
	CommandStop     = "stop"
	CommandHistory  = "history"
	CommandLogLevel = "log-level"
)

// LevelDefault removes a component override in a log-level request.
const LevelDefault = "default"

type Request struct {
	Command   string `json:"command"`
	Interface string `json:"interface,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Component string `json:"component,omitempty"`
	Level     string `json:"level,omitempty"`
}

type Response struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Clients []ClientStatus `json:"clients,omitempty"`
	History []HistoryEntry `json:"history,omitempty"`
	Levels  *LogLevels     `json:"levels,omitempty"`
}

// LogLevels is the daemon's logging threshold and the components that
// override it.
type LogLevels struct {
	Default    string            `json:"default" yaml:"default"`
	Components map[string]string `json:"components,omitempty" yaml:"components,omitempty"`
}

// ClientStatus is the operator view of one client.
type ClientStatus struct {
	Interface string    `json:"interface" yaml:"interface"`
	State     string    `json:"state" yaml:"state"`
	Address   string    `json:"address,omitempty" yaml:"address,omitempty"`
	ServerID  string    `json:"server_id,omitempty" yaml:"server_id,omitempty"`
	Medium    string    `json:"medium,omitempty" yaml:"medium,omitempty"`
	Renewal   time.Time `json:"renewal,omitempty" yaml:"renewal,omitempty"`
	Rebind    time.Time `json:"rebind,omitempty" yaml:"rebind,omitempty"`
	Expiry    time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Backups   int       `json:"backups" yaml:"backups"`
}

type HistoryEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Time      time.Time `json:"time" yaml:"time"`
	Interface string    `json:"interface" yaml:"interface"`
	Reason    string    `json:"reason" yaml:"reason"`
	Address   string    `json:"address,omitempty" yaml:"address,omitempty"`
	ServerID  string    `json:"server_id,omitempty" yaml:"server_id,omitempty"`
	Expiry    time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
}

// Handler executes control commands. An empty interface name means every
// client.
type Handler interface {
	Status(ifname string) ([]ClientStatus, error)
	Release(ifname string) error
	Renew(ifname string) error
	Stop(ifname string) error
}

// HistorySource serves the history command.
type HistorySource interface {
	History(ifname string, limit int) ([]HistoryEntry, error)
}
