package config

import (
	"os"
	"path/filepath"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"github.com/spf13/viper"
)

const (
	DefaultInterval    = 1 // Minimum meaningful poll rate of the plug's power reading
	DefaultSamples     = 10
	DefaultWindow      = 100
	DefaultChartWidth  = 100
	DefaultChartHeight = 20
	DefaultLogLevel    = "info"
)

type Config struct {
	Interval    int    `mapstructure:"interval"`
	Samples     int    `mapstructure:"samples"`
	Window      int    `mapstructure:"window"`
	ChartWidth  int    `mapstructure:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height"`
	Record      bool   `mapstructure:"record"`
	Database    string `mapstructure:"database"`
	LogLevel    string `mapstructure:"log_level"`
}

// Load reads configuration from an optional TOML file and the environment.
// Command line flags are owned by the CLI layer and applied on top of the
// returned config. File resolution order: TAPOWATT_CONFIG, then
// ~/.config/tapowatt/, then /etc/tapowatt/.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("samples", DefaultSamples)
	v.SetDefault("window", DefaultWindow)
	v.SetDefault("chart_width", DefaultChartWidth)
	v.SetDefault("chart_height", DefaultChartHeight)
	v.SetDefault("record", false)
	v.SetDefault("database", defaultDatabasePath())
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetConfigName("tapowatt")
	v.SetConfigType("toml")

	explicit := os.Getenv("TAPOWATT_CONFIG")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tapowatt"))
		}
		v.AddConfigPath("/etc/tapowatt")
	}

	v.SetEnvPrefix("TAPOWATT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all configured values are usable
func (c *Config) Validate() error {
	if c.Interval < 1 {
		return errors.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Samples < 1 {
		return errors.WithData(errors.ErrInvalidConfig, "samples must be at least 1")
	}
	if c.Window < 2 {
		return errors.WithData(errors.ErrInvalidConfig, "window must be at least 2")
	}
	if c.ChartWidth < 1 || c.ChartHeight < 1 {
		return errors.WithData(errors.ErrInvalidConfig, "chart dimensions must be positive")
	}
	if !isValidLogLevel(c.LogLevel) {
		return errors.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}

func defaultDatabasePath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tapowatt", "readings.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tapowatt", "readings.db")
	}

	return filepath.Join(home, ".local", "share", "tapowatt", "readings.db")
}
