package config

import (
	"time"

	redisclient "github.com/vietddude/bridge/internal/infra/redis"
	"github.com/vietddude/bridge/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Source      SourceConfig       `yaml:"source"`
	Destination DestinationConfig  `yaml:"destination"`
	Gateway     GatewayConfig      `yaml:"gateway"`
	Storage     StorageConfig      `yaml:"storage"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SourceConfig describes the EVM chain the native asset lives on.
type SourceConfig struct {
	ChainID         int64            `yaml:"chain_id"`
	ContractAddress string           `yaml:"contract_address"`
	BridgeAddress   string           `yaml:"bridge_address"` // spender and recipient, defaults to ContractAddress
	PrivateKey      string           `yaml:"private_key"`
	Confirmations   uint64           `yaml:"confirmations"`
	NativeDecimals  int32            `yaml:"native_decimals"`
	ConversionRate  int64            `yaml:"conversion_rate"`
	Providers       []ProviderConfig `yaml:"providers"`
}

// DestinationConfig describes the Sui package that mints bridged tokens.
type DestinationConfig struct {
	Chain      string           `yaml:"chain"` // wallet chain selector, e.g. sui:mainnet
	PackageID  string           `yaml:"package_id"`
	Module     string           `yaml:"module"`
	Function   string           `yaml:"function"`
	TokenType  string           `yaml:"token_type"`
	GasBudget  uint64           `yaml:"gas_budget"`
	PrivateKey string           `yaml:"private_key"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// GatewayConfig bounds confirmation waits.
type GatewayConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the run journal backend.
type StorageConfig struct {
	Driver    string        `yaml:"driver"`    // memory, postgres, redis
	Retention time.Duration `yaml:"retention"` // prune finished runs older than this, 0 disables
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name             string `yaml:"name"`
	URL              string `yaml:"url"`
	IntervalLimit    int    `yaml:"interval_limit"`
	IntervalDuration string `yaml:"interval_duration"`
}
