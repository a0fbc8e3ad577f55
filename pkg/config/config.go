package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const ConfigFileName = ".nftmarket.json"

// Config holds application settings.
type Config struct {
	RPCURL                 string `json:"rpc_url"`
	WalletRPCURL           string `json:"wallet_rpc_url,omitempty"`
	MarketAddress          string `json:"market_address"`
	RexAddress             string `json:"rex_address,omitempty"`
	IPFSGateway            string `json:"ipfs_gateway,omitempty"`
	RefreshIntervalSeconds int    `json:"refresh_interval_seconds"`
	RequestTimeoutSeconds  int    `json:"request_timeout_seconds"`
	ServerPort             int    `json:"server_port"`
	PriceDecimals          int    `json:"price_decimals"`
	CurrencySymbol         string `json:"currency_symbol"`
	LogFile                string `json:"log_file,omitempty"`
}

// Default returns the settings used for absent fields.
func Default() Config {
	return Config{
		RPCURL:                 "http://127.0.0.1:8545",
		RexAddress:             "0xFDFF13B8b4C3DD752A57fEC5dD4DC9E2f23EDE64",
		IPFSGateway:            "https://ipfs.io/ipfs/",
		RefreshIntervalSeconds: 30,
		RequestTimeoutSeconds:  15,
		ServerPort:             8080,
		PriceDecimals:          4,
		CurrencySymbol:         "ETH",
	}
}

// RefreshInterval returns the sync period.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-cycle collaborator timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate reports every structural problem of the config.
func (c Config) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.RPCURL) == "" {
		errs = append(errs, "rpc_url is empty")
	}
	if !common.IsHexAddress(c.MarketAddress) {
		errs = append(errs, fmt.Sprintf("market_address %q is not a valid address", c.MarketAddress))
	}
	if c.RexAddress != "" && !common.IsHexAddress(c.RexAddress) {
		errs = append(errs, fmt.Sprintf("rex_address %q is not a valid address", c.RexAddress))
	}
	if c.RefreshIntervalSeconds <= 0 {
		errs = append(errs, "refresh_interval_seconds must be positive")
	}
	if c.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "request_timeout_seconds must be positive")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Sprintf("server_port %d out of range", c.ServerPort))
	}
	return errs
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		RPCURL                 *string `json:"rpc_url"`
		WalletRPCURL           string  `json:"wallet_rpc_url"`
		MarketAddress          string  `json:"market_address"`
		RexAddress             *string `json:"rex_address"`
		IPFSGateway            *string `json:"ipfs_gateway"`
		RefreshIntervalSeconds *int    `json:"refresh_interval_seconds"`
		RequestTimeoutSeconds  *int    `json:"request_timeout_seconds"`
		ServerPort             *int    `json:"server_port"`
		PriceDecimals          *int    `json:"price_decimals"`
		CurrencySymbol         *string `json:"currency_symbol"`
		LogFile                string  `json:"log_file"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.WalletRPCURL = strings.TrimSpace(raw.WalletRPCURL)
	cfg.MarketAddress = strings.TrimSpace(raw.MarketAddress)
	cfg.LogFile = raw.LogFile
	if raw.RPCURL != nil {
		cfg.RPCURL = strings.TrimSpace(*raw.RPCURL)
	}
	if raw.RexAddress != nil {
		cfg.RexAddress = strings.TrimSpace(*raw.RexAddress)
	}
	if raw.IPFSGateway != nil {
		cfg.IPFSGateway = *raw.IPFSGateway
	}
	if raw.RefreshIntervalSeconds != nil {
		cfg.RefreshIntervalSeconds = *raw.RefreshIntervalSeconds
	}
	if raw.RequestTimeoutSeconds != nil {
		cfg.RequestTimeoutSeconds = *raw.RequestTimeoutSeconds
	}
	if raw.ServerPort != nil {
		cfg.ServerPort = *raw.ServerPort
	}
	if raw.PriceDecimals != nil {
		cfg.PriceDecimals = *raw.PriceDecimals
	}
	if raw.CurrencySymbol != nil {
		cfg.CurrencySymbol = *raw.CurrencySymbol
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
