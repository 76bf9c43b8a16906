package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/veesix-networks/dhclient/pkg/config/system"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLeaseFile     = "/var/db/dhclient.leases"
	DefaultPIDFile       = "/run/dhclient.pid"
	DefaultControlSocket = "/run/dhclient.sock"
	DefaultLocalPort     = 68
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.LeaseFile == "" {
		c.LeaseFile = DefaultLeaseFile
	}
	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
	if c.ControlSocket == "" {
		c.ControlSocket = DefaultControlSocket
	}
	if c.LocalPort == 0 {
		c.LocalPort = DefaultLocalPort
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = system.DefaultMetricsConfig().ListenAddress
	}

	c.Defaults = DefaultClientConfig().merge(&c.Defaults)
}

// Client returns the effective settings for an interface.
func (c *Config) Client(name string) ClientConfig {
	return c.Defaults.merge(c.Interfaces[name])
}

// InterfaceNames lists the configured interfaces in name order.
func (c *Config) InterfaceNames() []string {
	names := make([]string, 0, len(c.Interfaces))
	for name := range c.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Validate() error {
	if c.LocalPort < 2 {
		return fmt.Errorf("local-port %d leaves no server port", c.LocalPort)
	}

	if err := c.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	for _, name := range c.InterfaceNames() {
		cc := c.Client(name)
		if err := cc.validate(); err != nil {
			return fmt.Errorf("interfaces.%s: %w", name, err)
		}
	}

	return nil
}
