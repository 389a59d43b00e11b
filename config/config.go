// Package config provides centralized configuration management using Viper.
// It supports loading configuration from files, environment variables, and
// command-line flags with a clear hierarchy: Flags > Env > Config File > Defaults.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultAPIBaseURL          = "https://lightmining-api.taker.xyz/"
	DefaultAPIInvitationCode   = "HZHGW1LS"
	DefaultAPITimeout          = 30 * time.Second
	DefaultChainRPCURL         = "https://rpc-mainnet.taker.xyz/"
	DefaultChainContract       = "0xB3eFE5105b835E5Dd9D206445Dbd66DF24b912AB"
	DefaultChainConfirmTimeout = 5 * time.Minute
	DefaultWalletsFile         = "wallets.json"
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "color"
	DefaultLoggingQuiet        = false
	DefaultLoggingVerbose      = false
)

const (
	configName = "taker-config"
	envPrefix  = "TAKER"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Wallets WalletsConfig `mapstructure:"wallets"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig points at the light-mining REST service.
//
// Timeout bounds a single HTTP attempt; the retry count and the delay
// between attempts are fixed by the api package.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	InvitationCode string        `mapstructure:"invitation_code"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ChainConfig defines the RPC node and the mining contract.
type ChainConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	ContractAddress string        `mapstructure:"contract_address"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
}

type WalletsConfig struct {
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`   // debug, info, warn, error
	Format  string `mapstructure:"format"`  // text, color, json
	Quiet   bool   `mapstructure:"quiet"`   // suppress all but errors
	Verbose bool   `mapstructure:"verbose"` // enable debug logs
}

func (c *Config) Validate() error {
	if err := c.validateAPIConfig(); err != nil {
		return err
	}
	if err := c.validateChainConfig(); err != nil {
		return err
	}
	if c.Wallets.File == "" {
		return fmt.Errorf("wallets.file cannot be empty")
	}
	return c.validateLoggingConfig()
}

func (c *Config) validateAPIConfig() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url %q: %w", c.API.BaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < time.Second {
		return fmt.Errorf("api.timeout too short (minimum 1s), got %v", c.API.Timeout)
	}
	return nil
}

func (c *Config) validateChainConfig() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url cannot be empty")
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("invalid chain.contract_address: %q", c.Chain.ContractAddress)
	}
	if c.Chain.ConfirmTimeout < time.Second {
		return fmt.Errorf("chain.confirm_timeout too short (minimum 1s), got %v", c.Chain.ConfirmTimeout)
	}
	return nil
}

func (c *Config) validateLoggingConfig() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %q (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "color": true, "json": true}
	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %q (must be text, color, or json)", c.Logging.Format)
	}
	return nil
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration sources are applied in the following precedence order (highest to lowest):
//  1. Command-line flags (handled by caller, not by this function)
//  2. Environment variables (TAKER_* prefix, e.g., TAKER_API_BASE_URL)
//  3. Configuration file (taker-config.yaml or specified path)
//  4. Default values
//
// Environment variables use the prefix TAKER_ followed by the nested config key
// with dots replaced by underscores:
//   - api.invitation_code  → TAKER_API_INVITATION_CODE
//   - chain.rpc_url        → TAKER_CHAIN_RPC_URL
//   - wallets.file         → TAKER_WALLETS_FILE
//
// If configPath is empty, "taker-config.yaml" is searched for in the current
// directory, ~/.taker and /etc/taker. Not finding it there is not an error.
// If configPath is specified but can't be read, an error is returned.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// Watch starts watching the configuration file and calls the callback with
// every valid reloaded configuration. Invalid reloads are logged and dropped.
// Returns immediately after starting the watcher, or an error if the initial
// read fails. If logger is nil, logging is disabled.
func Watch(ctx context.Context, configPath string, callback func(*Config), logger *slog.Logger) error {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// nothing on disk to watch
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if logger != nil {
			logger.Info("configuration file changed",
				"file", e.Name,
				"operation", e.Op.String())
		}

		cfg, err := decode(v)
		if err != nil {
			if logger != nil {
				logger.Error("ignoring configuration reload",
					"error", err,
					"file", e.Name)
			}
			return
		}

		if logger != nil {
			logger.Info("configuration reloaded successfully", "file", e.Name)
		}
		callback(cfg)
	})
	v.WatchConfig()

	return nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.taker")
		v.AddConfigPath("/etc/taker")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	v.SetDefault("api.invitation_code", DefaultAPIInvitationCode)
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("chain.rpc_url", DefaultChainRPCURL)
	v.SetDefault("chain.contract_address", DefaultChainContract)
	v.SetDefault("chain.confirm_timeout", DefaultChainConfirmTimeout)
	v.SetDefault("wallets.file", DefaultWalletsFile)
	v.SetDefault("logging.level", DefaultLoggingLevel)
	v.SetDefault("logging.format", DefaultLoggingFormat)
	v.SetDefault("logging.quiet", DefaultLoggingQuiet)
	v.SetDefault("logging.verbose", DefaultLoggingVerbose)
}
