package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

const (
	keyAPIKey    = "api_key"
	keyOutputDir = "output_dir"
)

// ResolveEnvironment reads the API key and the optional output directory
// from the process environment. Empty variables count as unset.
func (c *Config) ResolveEnvironment() (domain.Environment, error) {
	v := viper.New()
	if err := v.BindEnv(keyAPIKey, c.API.KeyEnv); err != nil {
		return domain.Environment{}, err
	}
	if err := v.BindEnv(keyOutputDir, c.Export.OutputDirEnv); err != nil {
		return domain.Environment{}, err
	}

	env := domain.Environment{
		APIKey:    v.GetString(keyAPIKey),
		OutputDir: v.GetString(keyOutputDir),
	}
	if env.APIKey == "" {
		return env, fmt.Errorf("%w: %s is not set", domain.ErrMissingCredential, c.API.KeyEnv)
	}
	return env, nil
}
