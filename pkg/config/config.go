// Package config provides a reusable loader for Daisy configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"daisy/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// InitialBlockReferenceKind selects how a node bootstraps its starting
// block — spec.md §6.
type InitialBlockReferenceKind string

const (
	InitialBlockGenesis InitialBlockReferenceKind = "genesis"
	InitialBlockResolve InitialBlockReferenceKind = "resolve"
	InitialBlockHash    InitialBlockReferenceKind = "block_hash"
)

// Config is the unified configuration for a Daisy node, enumerated exactly
// as spec.md §6 lists it.
type Config struct {
	RunAPI      bool   `mapstructure:"run_api" json:"run_api"`
	RunLeader   bool   `mapstructure:"run_leader" json:"run_leader"`
	RunFollower bool   `mapstructure:"run_follower" json:"run_follower"`
	APIPort     int    `mapstructure:"api_port" json:"api_port"`
	APIScheme   string `mapstructure:"api_scheme" json:"api_scheme"`

	Runner     string `mapstructure:"runner" json:"runner"`
	Reader     string `mapstructure:"reader" json:"reader"`
	Serializer string `mapstructure:"serializer" json:"serializer"`

	IPFSAPIURL string `mapstructure:"ipfs_api_url" json:"ipfs_api_url"`
	IPFSKey    string `mapstructure:"ipfs_key" json:"ipfs_key"`

	InitialBlockReferenceKind InitialBlockReferenceKind `mapstructure:"initial_block_reference_kind" json:"initial_block_reference_kind"`
	InitialBlockHash          string                     `mapstructure:"initial_block_hash" json:"initial_block_hash"`

	MiningIntervalMS  int `mapstructure:"mining_interval_ms" json:"mining_interval_ms"`
	PullingIntervalMS int `mapstructure:"pulling_interval_ms" json:"pulling_interval_ms"`

	CodeRootHash string `mapstructure:"code_root_hash" json:"code_root_hash"`
	CacheSize    int    `mapstructure:"cache_size" json:"cache_size"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

func setDefaults() {
	viper.SetDefault("run_api", false)
	viper.SetDefault("run_leader", false)
	viper.SetDefault("run_follower", false)
	viper.SetDefault("api_port", 2335)
	viper.SetDefault("api_scheme", "http")
	viper.SetDefault("runner", "wasm")
	viper.SetDefault("reader", "wasm")
	viper.SetDefault("serializer", "default")
	viper.SetDefault("ipfs_api_url", "http://127.0.0.1:5001")
	viper.SetDefault("ipfs_key", "daisy")
	viper.SetDefault("initial_block_reference_kind", string(InitialBlockGenesis))
	viper.SetDefault("mining_interval_ms", 10000)
	viper.SetDefault("pulling_interval_ms", 10000)
	viper.SetDefault("cache_size", 4096)
	viper.SetDefault("logging.level", "info")
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath(".")
	viper.AddConfigPath("cmd/daisy/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("daisy")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if AppConfig.RunLeader && AppConfig.RunFollower {
		return nil, fmt.Errorf("config: run_leader and run_follower are mutually exclusive")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the DAISY_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("DAISY_ENV", ""))
}
