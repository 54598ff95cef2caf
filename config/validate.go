package config

import (
	"fmt"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}
	switch cfg.DB.Backend {
	case storage.BackendBadger, storage.BackendLevelDB:
	default:
		return fmt.Errorf("db.backend must be %q or %q", storage.BackendBadger, storage.BackendLevelDB)
	}
	if cfg.Epoch.MaxTxs < 0 {
		return fmt.Errorf("epoch.max_txs must be >= 0")
	}
	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}
