package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrHelp is returned by ParseFlags and Load when --help was requested.
var ErrHelp = flag.ErrHelp

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Storage
	DBBackend string

	// Epoch
	MaxTxs int

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the subcommand and its arguments.
	Args []string

	// Explicitly-set flags (for zero-value overrides).
	SetMaxTxs  bool
	SetLogJSON bool
}

// ParseFlags parses the global flags in args (without the program name).
// Parsing stops at the first positional argument, which is the subcommand.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("klingnet-ledger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	testnet := fs.Bool("testnet", false, "Shorthand for --network=testnet")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	fs.StringVar(&f.DBBackend, "db-backend", "", "Pool store backend (badger or leveldb)")
	fs.IntVar(&f.MaxTxs, "max-txs", 0, "Maximum transactions per epoch (0 = unlimited)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, ErrHelp
		}
		return nil, err
	}

	if *testnet {
		f.Network = string(Testnet)
	}
	f.SetMaxTxs = isFlagSet(fs, "max-txs")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.DBBackend != "" {
		cfg.DB.Backend = strings.ToLower(f.DBBackend)
	}
	if f.SetMaxTxs {
		cfg.Epoch.MaxTxs = f.MaxTxs
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the command-line help to w.
func PrintUsage(w io.Writer) {
	usage := `Klingnet Ledger - epoch transaction processor over a UTXO pool

Usage:
  klingnet-ledger [options] <command> [args]

Commands:
  keygen                    Create a mnemonic and print its public key
       [--wallet name] [--account n]
  derive                    Derive and record the next key of a wallet
       --wallet name [--account n] [--label text]
  build                     Assemble an unsigned transaction
       --in txid:index ... --out pubkey=amount ...
  init <genesis.json>       Seed the pool from a genesis allocation file
       [--force]
  sign <unsigned.json>      Sign every input of a transaction
       [--wallet name] [--account n] [--index n] [--gap n]
  epoch <txs.json>          Process a batch of proposed transactions
       [--metrics-file path]
  pool [--summary]          List unspent outputs and the pool commitment

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.klingnet-ledger)
  --config, -c    Config file path (default: <datadir>/ledger.conf)
  --db-backend    Pool store: badger (default) or leveldb
  --max-txs       Maximum transactions per epoch (0 = unlimited)

Logging Options:
  --log-level     Log level: trace, debug, info, warn, error (default: info)
  --log-file      Also write logs to this file
  --log-json      Output logs as JSON

Environment:
  KLINGNET_MNEMONIC   Mnemonic used by "sign" instead of prompting
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, flags, err
	}
	if flags.Help {
		return nil, flags, ErrHelp
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.DBRoot(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
