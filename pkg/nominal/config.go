package nominal

import "github.com/NominalSystems/go-nominal-example/internal/app/config"

type (
	Config          = config.Config
	APIConfig       = config.APIConfig
	RunConfig       = config.RunConfig
	ExportConfig    = config.ExportConfig
	TimescaleConfig = config.TimescaleConfig
	MetricsConfig   = config.MetricsConfig
)

// LoadConfig reads a YAML file over the reference defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the reference solar-panel run.
func DefaultConfig() *Config {
	return config.Default()
}
