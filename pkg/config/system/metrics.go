package system

type MetricsConfig struct {
	Enabled       bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ListenAddress string `json:"listen-address,omitempty" yaml:"listen-address,omitempty"`
}

type OpDBConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		ListenAddress: ":9468",
	}
}
