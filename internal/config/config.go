// Package config loads liteiac settings from flags, environment, an optional
// .env file and an optional liteiac.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by liteiac
const EnvPrefix = "LITEIAC"

// Keys shared by flags, env and config file
const (
	KeyAccountID   = "account-id"
	KeyRegion      = "region"
	KeyState       = "state"
	KeyParallelism = "parallelism"
	KeyLogLevel    = "log-level"
	KeyBackend     = "backend"
	KeyZones       = "zones"
	KeyImports     = "imports"
	KeyVars        = "vars"
)

// BackendLocal is the simulated backend
const BackendLocal = "local"

// Config is the resolved runtime configuration
type Config struct {
	AccountID   string            `mapstructure:"account-id"`
	Region      string            `mapstructure:"region"`
	StatePath   string            `mapstructure:"state"`
	Parallelism int               `mapstructure:"parallelism"`
	LogLevel    string            `mapstructure:"log-level"`
	Backend     string            `mapstructure:"backend"`
	Zones       map[string]string `mapstructure:"zones"`
	Imports     map[string]string `mapstructure:"imports"`
	Vars        map[string]string `mapstructure:"vars"`
}

// NewViper returns a viper instance reading LITEIAC_* env vars. The plain
// AWS_ACCOUNT_ID and AWS_REGION variables are honoured as fallbacks.
// configFile may be empty, in which case liteiac.yaml is searched in the
// working directory. Zone and import keys contain dots, so nested keys are
// delimited with "::".
func NewViper(configFile string) *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAccountID, EnvPrefix+"_ACCOUNT_ID", "AWS_ACCOUNT_ID")
	_ = v.BindEnv(KeyRegion, EnvPrefix+"_REGION", "AWS_REGION")

	v.SetDefault(KeyState, ".liteiac/state.sqlite")
	v.SetDefault(KeyParallelism, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBackend, BackendLocal)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("liteiac")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the config file (missing is fine unless it was named
// explicitly) and the .env file at envFile, then decodes the result.
// Values from .env only fill what nothing else set.
func Load(v *viper.Viper, envFile string) (*Config, error) {
	if err := readConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := loadDotEnv(v, envFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the decoded values
func (c *Config) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative, got %d", c.Parallelism)
	}
	switch c.Backend {
	case BackendLocal:
	default:
		return fmt.Errorf("unknown backend %q (supported: %s)", c.Backend, BackendLocal)
	}
	return nil
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) {
			return nil
		}
		return err
	}
	return nil
}

// loadDotEnv reads KEY=value pairs and uses AWS_ACCOUNT_ID, AWS_REGION and
// LITEIAC_* entries as defaults
func loadDotEnv(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fallbacks := map[string]string{
		"aws_account_id": KeyAccountID,
		"aws_region":     KeyRegion,
	}
	prefix := strings.ToLower(EnvPrefix) + "_"
	for _, key := range env.AllKeys() {
		target, ok := fallbacks[key]
		if !ok && strings.HasPrefix(key, prefix) {
			target = strings.ReplaceAll(strings.TrimPrefix(key, prefix), "_", "-")
			ok = true
		}
		if !ok {
			continue
		}
		// defaults rank below flags, env and the config file
		v.SetDefault(target, env.GetString(key))
	}
	return nil
}
