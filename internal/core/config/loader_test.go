package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_ETH_KEY", "0xabc")
	defer os.Unsetenv("TEST_ETH_KEY")

	path := writeTemp(t, `
source:
  private_key: ${TEST_ETH_KEY}
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.PrivateKey != "0xabc" {
		t.Errorf("Expected private key 0xabc, got %s", cfg.Source.PrivateKey)
	}
	if cfg.Source.BridgeAddress != cfg.Source.ContractAddress {
		t.Errorf("Expected bridge address to default to contract address, got %s", cfg.Source.BridgeAddress)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTemp(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Source.ConversionRate != 1000 {
		t.Errorf("expected rate 1000, got %d", cfg.Source.ConversionRate)
	}
	if cfg.Source.NativeDecimals != 18 {
		t.Errorf("expected 18 decimals, got %d", cfg.Source.NativeDecimals)
	}
	if cfg.Destination.Chain != "sui:mainnet" {
		t.Errorf("expected sui:mainnet, got %s", cfg.Destination.Chain)
	}
	if cfg.Gateway.ConfirmationTimeout != 3*time.Minute {
		t.Errorf("expected 3m timeout, got %v", cfg.Gateway.ConfirmationTimeout)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory storage, got %s", cfg.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	path := writeTemp(t, "storage:\n  driver: mongo\n  retention: -1h\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"contract_address", "package_id", "mongo", "source.providers", "retention"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestProviderConfig_Interval(t *testing.T) {
	if (ProviderConfig{}).Interval() != time.Second {
		t.Error("expected default interval of 1s")
	}
	if (ProviderConfig{IntervalDuration: "250ms"}).Interval() != 250*time.Millisecond {
		t.Error("expected 250ms interval")
	}
	if (ProviderConfig{IntervalDuration: "bogus"}).Interval() != time.Second {
		t.Error("expected fallback interval")
	}
}
