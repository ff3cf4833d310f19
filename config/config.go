// Package config provides a reusable loader for contractd's configuration
// files and environment variables. Grounded on
// synnergy-network/pkg/config/config.go and cmd/explorer/main.go's
// godotenv usage.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"contractvm/internal/errutil"
)

// Config is the unified runtime configuration for a contractd process.
type Config struct {
	Store struct {
		Dir      string `mapstructure:"dir" json:"dir"`
		Capacity int    `mapstructure:"capacity" json:"capacity"`
	} `mapstructure:"store" json:"store"`

	VM struct {
		HostMemory  bool `mapstructure:"host_memory" json:"host_memory"`
		MaxPages    int  `mapstructure:"max_pages" json:"max_pages"`
		InitialPage int  `mapstructure:"initial_pages" json:"initial_pages"`
	} `mapstructure:"vm" json:"vm"`

	Gateway struct {
		ListenAddr  string `mapstructure:"listen_addr" json:"listen_addr"`
		QueueLength int    `mapstructure:"queue_length" json:"queue_length"`
	} `mapstructure:"gateway" json:"gateway"`

	Logging struct {
		Level  string `mapstructure:"level" json:"level"`
		Format string `mapstructure:"format" json:"format"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads the default configuration file (and any env-specific overlay)
// from configPath, merges environment variable overrides, and populates
// AppConfig.
func Load(configPath, env string) (*Config, error) {
	_ = godotenv.Load(".env")

	viper.SetConfigName("default")
	viper.SetConfigType("yaml")
	if configPath != "" {
		viper.AddConfigPath(configPath)
	}
	viper.AddConfigPath("config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errutil.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, errutil.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("CONTRACTD")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, errutil.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the CONTRACTD_ENV environment
// variable to select an overlay file.
func LoadFromEnv() (*Config, error) {
	return Load("", errutil.EnvOrDefault("CONTRACTD_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("store.dir", "./data")
	viper.SetDefault("store.capacity", 512)
	viper.SetDefault("vm.host_memory", true)
	viper.SetDefault("vm.max_pages", 256)
	viper.SetDefault("vm.initial_pages", 20)
	viper.SetDefault("gateway.listen_addr", ":8080")
	viper.SetDefault("gateway.queue_length", 10)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
