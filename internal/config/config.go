// Package config layers the operator's YAML configuration on top of
// process secrets: a base config/default.yaml merged with an
// environment-specific config/production.yaml or config/staging.yaml
// (mirroring chainenv's environment switch), loaded via viper; secrets
// that must never live in a checked-in YAML file (custody service URL,
// chain RPC URL, bearer material for local development) are loaded
// separately from a .env file via godotenv and read as plain environment
// variables afterward.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/pkg/utils"
)

// Config is the unified operator configuration, populated from the layered
// YAML files plus environment overrides.
type Config struct {
	Environment string `mapstructure:"environment" json:"environment"`

	Node struct {
		Name string `mapstructure:"name" json:"name"`
	} `mapstructure:"node" json:"node"`

	Chain struct {
		RPCURL         string `mapstructure:"rpc_url" json:"rpc_url"`
		FirstBlock     uint64 `mapstructure:"first_block" json:"first_block"`
		ReorgDepth     uint64 `mapstructure:"reorg_depth" json:"reorg_depth"`
		CheckpointSecs int    `mapstructure:"checkpoint_interval_seconds" json:"checkpoint_interval_seconds"`
	} `mapstructure:"chain" json:"chain"`

	Store struct {
		Path string `mapstructure:"path" json:"path"`
	} `mapstructure:"store" json:"store"`

	Shim struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"shim" json:"shim"`

	Custody struct {
		BaseURL        string `mapstructure:"base_url" json:"base_url"`
		ProcessAddress string `mapstructure:"process_address" json:"process_address"`
	} `mapstructure:"custody" json:"custody"`

	Operator struct {
		TBAAddress  string `mapstructure:"tba_address" json:"tba_address"`
		HotWalletID string `mapstructure:"hot_wallet_id" json:"hot_wallet_id"`
	} `mapstructure:"operator" json:"operator"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads config/default.yaml, merges config/<env>.yaml on top of it,
// loads .env into the process environment, and unmarshals the result into
// AppConfig. env selects both the YAML override file and the chainenv
// constants (production or staging).
func Load(env chainenv.Name) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is normal in production where secrets are injected
		// directly into the environment; only a malformed file is fatal.
		if !os.IsNotExist(err) {
			return nil, utils.Wrap(err, "load .env")
		}
	}

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load default config")
	}

	if env != "" {
		viper.SetConfigName(string(env))
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	AppConfig.Environment = string(env)
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the HYPERGRID_ENV environment
// variable, defaulting to production.
func LoadFromEnv() (*Config, error) {
	name := chainenv.Name(utils.EnvOrDefault("HYPERGRID_ENV", string(chainenv.Production)))
	return Load(name)
}
