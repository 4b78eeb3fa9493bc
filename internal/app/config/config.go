package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NominalSystems/go-nominal-example/internal/adapters/nominal"
	"github.com/NominalSystems/go-nominal-example/internal/adapters/sink"
	"github.com/NominalSystems/go-nominal-example/internal/app/export"
	"github.com/NominalSystems/go-nominal-example/internal/app/scenario"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

type Config struct {
	API       APIConfig        `yaml:"api"`
	Scenario  scenario.Config  `yaml:"scenario"`
	Run       RunConfig        `yaml:"run"`
	Export    ExportConfig     `yaml:"export"`
	Timescale TimescaleConfig  `yaml:"timescale"`
	OPCUA     sink.OPCUAConfig `yaml:"opcua"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Port    *int          `yaml:"port"`
	KeyEnv  string        `yaml:"key_env"`
	Timeout time.Duration `yaml:"timeout"`
}

type RunConfig struct {
	TickSize       float64 `yaml:"tick_size"`
	TickIterations int     `yaml:"tick_iterations"`
	Chunks         int     `yaml:"chunks"`
	SampleRate     float64 `yaml:"sample_rate"`
}

type ExportConfig struct {
	OutputDirEnv string           `yaml:"output_dir_env"`
	Channels     []export.Channel `yaml:"channels"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr    string `yaml:"addr"`
	PushURL string `yaml:"push_url"`
	Job     string `yaml:"job"`
}

const (
	DefaultKeyEnv       = "NOMINAL_API_KEY"
	DefaultOutputDirEnv = "NOMINAL_API_OUTPUT_PATH"
)

// Default returns the reference run: 2000 ticks of 0.05 s in ten macro-steps,
// sampling every 5 s, exporting the solar panel power.
func Default() *Config {
	cfg := &Config{
		API: APIConfig{
			URL:     nominal.DefaultURL,
			KeyEnv:  DefaultKeyEnv,
			Timeout: nominal.DefaultTimeout,
		},
		Scenario: scenario.DefaultConfig(),
		Run: RunConfig{
			TickSize:       0.05,
			TickIterations: 2000,
			Chunks:         10,
			SampleRate:     5.0,
		},
		Export: ExportConfig{
			OutputDirEnv: DefaultOutputDirEnv,
			Channels:     append([]export.Channel(nil), export.DefaultChannels...),
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.URL == "" {
		c.API.URL = nominal.DefaultURL
	}
	if c.API.KeyEnv == "" {
		c.API.KeyEnv = DefaultKeyEnv
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = nominal.DefaultTimeout
	}
	if c.Run.Chunks == 0 {
		c.Run.Chunks = 10
	}
	if c.Export.OutputDirEnv == "" {
		c.Export.OutputDirEnv = DefaultOutputDirEnv
	}
	if len(c.Export.Channels) == 0 {
		c.Export.Channels = append([]export.Channel(nil), export.DefaultChannels...)
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "telemetry"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "nominal_demo"
	}

	c.Scenario.ApplyDefaults()
	c.OPCUA.ApplyDefaults()
}

func (c *Config) validate() error {
	if _, err := (domain.Credentials{URL: c.API.URL, Port: c.API.Port}).Endpoint(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if c.API.Port != nil && (*c.API.Port <= 0 || *c.API.Port > 65535) {
		return fmt.Errorf("api.port must be in [1, 65535], got %d", *c.API.Port)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Run.TickSize <= 0 {
		return errors.New("run.tick_size must be > 0")
	}
	if c.Run.TickIterations <= 0 {
		return errors.New("run.tick_iterations must be > 0")
	}
	if c.Run.Chunks <= 0 || c.Run.Chunks > c.Run.TickIterations {
		return fmt.Errorf("run.chunks must be in [1, %d]", c.Run.TickIterations)
	}
	if c.Run.SampleRate <= 0 {
		return errors.New("run.sample_rate must be > 0")
	}
	for i, ch := range c.Export.Channels {
		if ch.Component == "" || ch.Message == "" || ch.Field == "" {
			return fmt.Errorf("export.channels[%d]: component, message and field are required", i)
		}
	}
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario config: %w", err)
	}
	if err := c.OPCUA.Validate(); err != nil {
		return fmt.Errorf("opcua config: %w", err)
	}
	if c.Metrics.PushURL != "" {
		if _, err := url.ParseRequestURI(c.Metrics.PushURL); err != nil {
			return fmt.Errorf("metrics.push_url: %w", err)
		}
	}
	return nil
}

// Validate re-checks a config assembled in code.
func (c *Config) Validate() error {
	c.applyDefaults()
	return c.validate()
}

// Credentials combines the API settings with the resolved key.
func (c *Config) Credentials(env domain.Environment) domain.Credentials {
	return domain.Credentials{URL: c.API.URL, Port: c.API.Port, APIKey: env.APIKey}
}
