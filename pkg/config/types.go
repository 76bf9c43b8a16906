package config

import (
	"time"

	"github.com/veesix-networks/dhclient/pkg/config/system"
)

type Config struct {
	Logging       system.LoggingConfig     `json:"logging,omitempty" yaml:"logging,omitempty"`
	LeaseFile     string                   `json:"lease-file,omitempty" yaml:"lease-file,omitempty"`
	PIDFile       string                   `json:"pid-file,omitempty" yaml:"pid-file,omitempty"`
	LocalPort     uint16                   `json:"local-port,omitempty" yaml:"local-port,omitempty"`
	ControlSocket string                   `json:"control-socket,omitempty" yaml:"control-socket,omitempty"`
	Netns         string                   `json:"netns,omitempty" yaml:"netns,omitempty"`
	OpDB          system.OpDBConfig        `json:"opdb,omitempty" yaml:"opdb,omitempty"`
	Metrics       system.MetricsConfig     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Defaults      ClientConfig             `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Interfaces    map[string]*ClientConfig `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// ClientConfig holds the per-interface protocol settings. Zero values in an
// interface section inherit from the defaults section.
type ClientConfig struct {
	Timeout         time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry           time.Duration     `json:"retry,omitempty" yaml:"retry,omitempty"`
	SelectTimeout   time.Duration     `json:"select-timeout,omitempty" yaml:"select-timeout,omitempty"`
	RebootTimeout   time.Duration     `json:"reboot-timeout,omitempty" yaml:"reboot-timeout,omitempty"`
	BackoffCutoff   time.Duration     `json:"backoff-cutoff,omitempty" yaml:"backoff-cutoff,omitempty"`
	InitialInterval time.Duration     `json:"initial-interval,omitempty" yaml:"initial-interval,omitempty"`
	Script          string            `json:"script,omitempty" yaml:"script,omitempty"`
	Media           []string          `json:"media,omitempty" yaml:"media,omitempty"`
	Request         []string          `json:"request,omitempty" yaml:"request,omitempty"`
	Require         []string          `json:"require,omitempty" yaml:"require,omitempty"`
	Send            map[string]string `json:"send,omitempty" yaml:"send,omitempty"`
	Reject          []string          `json:"reject,omitempty" yaml:"reject,omitempty"`
	BroadcastFlag   *bool             `json:"broadcast-flag,omitempty" yaml:"broadcast-flag,omitempty"`
	Alias           *AliasConfig      `json:"alias,omitempty" yaml:"alias,omitempty"`
	StaticLeases    []StaticLease     `json:"static-leases,omitempty" yaml:"static-leases,omitempty"`
	DDNS            *DDNSConfig       `json:"ddns,omitempty" yaml:"ddns,omitempty"`
}

// AliasConfig is an extra address kept on the interface alongside the lease.
type AliasConfig struct {
	Address    string `json:"address" yaml:"address"`
	SubnetMask string `json:"subnet-mask,omitempty" yaml:"subnet-mask,omitempty"`
}

// StaticLease is a fallback binding tried when no server answers.
type StaticLease struct {
	Address string            `json:"address" yaml:"address"`
	Medium  string            `json:"medium,omitempty" yaml:"medium,omitempty"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

type DDNSConfig struct {
	ForwardUpdate bool          `json:"forward-update,omitempty" yaml:"forward-update,omitempty"`
	FQDN          string        `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`
	Server        string        `json:"server,omitempty" yaml:"server,omitempty"`
	Zone          string        `json:"zone,omitempty" yaml:"zone,omitempty"`
	TTL           time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	TSIGName      string        `json:"tsig-name,omitempty" yaml:"tsig-name,omitempty"`
	TSIGSecret    string        `json:"tsig-secret,omitempty" yaml:"tsig-secret,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}
