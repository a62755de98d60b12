package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/bridge/internal/core/amount"
	"github.com/vietddude/bridge/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}

	if c.Source.ChainID == 0 {
		c.Source.ChainID = 1
	}
	if c.Source.BridgeAddress == "" {
		c.Source.BridgeAddress = c.Source.ContractAddress
	}
	if c.Source.Confirmations == 0 {
		c.Source.Confirmations = 1
	}
	if c.Source.NativeDecimals == 0 {
		c.Source.NativeDecimals = amount.NativeDecimals
	}
	if c.Source.ConversionRate == 0 {
		c.Source.ConversionRate = amount.DefaultConversionRate
	}

	if c.Destination.Chain == "" {
		c.Destination.Chain = domain.SuiMainnet
	}
	if c.Destination.Module == "" {
		c.Destination.Module = "suipart"
	}
	if c.Destination.Function == "" {
		c.Destination.Function = "mint"
	}
	if c.Destination.TokenType == "" {
		c.Destination.TokenType = "SUIPART"
	}
	if c.Destination.GasBudget == 0 {
		c.Destination.GasBudget = 10_000_000
	}

	if c.Gateway.PollInterval == 0 {
		c.Gateway.PollInterval = 2 * time.Second
	}
	if c.Gateway.ConfirmationTimeout == 0 {
		c.Gateway.ConfirmationTimeout = 3 * time.Minute
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = 30 * time.Second
	}
}

// Validate checks the settings a bridge run cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Source.ContractAddress == "" {
		errs = append(errs, errors.New("source.contract_address is required"))
	}
	if len(c.Source.Providers) == 0 {
		errs = append(errs, errors.New("source.providers is empty"))
	}
	if c.Source.ConversionRate <= 0 {
		errs = append(errs, fmt.Errorf("source.conversion_rate must be positive, got %d", c.Source.ConversionRate))
	}
	if c.Source.NativeDecimals < 0 {
		errs = append(errs, fmt.Errorf("source.native_decimals must not be negative, got %d", c.Source.NativeDecimals))
	}
	if c.Destination.PackageID == "" {
		errs = append(errs, errors.New("destination.package_id is required"))
	}
	if len(c.Destination.Providers) == 0 {
		errs = append(errs, errors.New("destination.providers is empty"))
	}
	if c.Gateway.ConfirmationTimeout <= 0 {
		errs = append(errs, errors.New("gateway.confirmation_timeout must be finite and positive"))
	}
	switch c.Storage.Driver {
	case "memory", "postgres", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.Retention < 0 {
		errs = append(errs, errors.New("storage.retention must not be negative"))
	}
	return errors.Join(errs...)
}

// Interval parses the provider rate window, defaulting to one second.
func (p ProviderConfig) Interval() time.Duration {
	if p.IntervalDuration == "" {
		return time.Second
	}
	d, err := time.ParseDuration(p.IntervalDuration)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
