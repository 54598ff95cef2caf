// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger state: the genesis allocation that seeds the UTXO pool
//   - Runtime settings: data directory, logging and epoch limits
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration.
type Config struct {
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	DB    DBConfig
	Epoch EpochConfig
	Log   LogConfig
}

// DBConfig selects the on-disk pool store.
type DBConfig struct {
	Backend string `conf:"db.backend"` // badger or leveldb
}

// EpochConfig limits what one epoch may carry.
type EpochConfig struct {
	MaxTxs int `conf:"epoch.max_txs"` // 0 = unlimited
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-ledger
//	macOS:   ~/Library/Application Support/KlingnetLedger
//	Windows: %APPDATA%\KlingnetLedger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-ledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetLedger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetLedger")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetLedger")
	default:
		return filepath.Join(home, ".klingnet-ledger")
	}
}

// DBRoot returns the directory holding one subdirectory per backend.
func (c *Config) DBRoot() string {
	return filepath.Join(c.DataDir, "db")
}

// DBDir returns the database directory of the configured backend, shared
// by all networks. Each network's pool lives under its own key prefix.
func (c *Config) DBDir() string {
	return filepath.Join(c.DBRoot(), c.DB.Backend)
}

// DBPrefix returns the key prefix of this network's pool.
func (c *Config) DBPrefix() []byte {
	return []byte(string(c.Network) + "/")
}

// WalletDir returns the keystore directory for this network.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, string(c.Network), "wallets")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ledger.conf")
}
