package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/quantkit/helix/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server                    `mapstructure:"server"`
	Data       Data                      `mapstructure:"data"`
	Backtest   Backtest                  `mapstructure:"backtest"`
	Optimize   Optimize                  `mapstructure:"optimize"`
	Storage    Storage                   `mapstructure:"storage"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Metrics    Metrics                   `mapstructure:"metrics"`
}

type Server struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// Data holds price-history acquisition settings.
type Data struct {
	Dir       string                    `mapstructure:"dir"`      // CSV cache directory
	Provider  string                    `mapstructure:"provider"` // default provider name
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Backtest holds simulation settings.
type Backtest struct {
	TransactionCost float64 `mapstructure:"transaction_cost"` // fraction per unit of position change
}

// Optimize holds grid-search settings.
type Optimize struct {
	Workers int    `mapstructure:"workers"` // 0 or 1 = sequential
	Target  string `mapstructure:"target"`  // metric the results are ranked by
	Top     int    `mapstructure:"top"`     // rows shown by the CLI
}

type Storage struct {
	Results ResultsStorage `mapstructure:"results"`
}

// ResultsStorage selects where backtest and optimization reports are archived.
type ResultsStorage struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// Metrics holds Prometheus exposition settings.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Data: Data{
			Dir:      "data",
			Provider: "glassnode",
		},
		Backtest: Backtest{
			TransactionCost: 0.001,
		},
		Optimize: Optimize{
			Workers: 1,
			Target:  "sharpe",
			Top:     10,
		},
		Storage: Storage{
			Results: ResultsStorage{
				Type: "localfs",
				Path: "results",
			},
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Backtest validation
	if c.Backtest.TransactionCost < 0 || c.Backtest.TransactionCost >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("transaction_cost must be in [0, 1), got %f", c.Backtest.TransactionCost))
	}

	// Optimize validation
	if c.Optimize.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Optimize.Workers))
	}
	if c.Optimize.Top < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("top cannot be negative, got %d", c.Optimize.Top))
	}

	// Storage validation
	switch c.Storage.Results.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Results.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Results.Type))
	}

	// Provider validation - glassnode needs an API key when enabled
	if p, ok := c.Data.Providers["glassnode"]; ok && p.Enabled && p.APIKey == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("glassnode api_key required when provider is enabled"))
	}

	return nil
}
