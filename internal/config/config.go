package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/invoicegen/internal/invoice"
	"github.com/a3tai/invoicegen/internal/sequence"
)

const (
	// Mode constants
	ModeServer = "server"
	ModeStdio  = "stdio"
	ModeCLI    = "cli"

	// Default values
	DefaultPort        = 5000
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 20 * 1024 * 1024 // 20MB
	DefaultStart       = 312
	DefaultDirectory   = "invoices"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "INVOICEGEN"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for invoicegen
type Config struct {
	// Server configuration
	Mode string // "server", "stdio" or "cli"
	Host string
	Port int

	// Output configuration
	Directory   string
	MaxFileSize int64 // Maximum invoice size accepted for inspection

	// Invoice numbering
	Sequence  string // "memory", "file" or "redis"
	Start     int64
	RedisAddr string
	RedisKey  string

	// Fixed parties printed on every invoice
	BillTo    string
	PayableTo string
	Item      string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Args holds positional arguments left after flag parsing.
	Args []string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	parties := invoice.DefaultParties()

	return &Config{
		Mode:        ModeServer,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   DefaultDirectory,
		MaxFileSize: DefaultMaxFileSize,
		Sequence:    sequence.KindFile,
		Start:       DefaultStart,
		RedisKey:    sequence.DefaultRedisKey,
		BillTo:      parties.BillTo,
		PayableTo:   parties.PayableTo,
		Item:        parties.Item,
		Version:     "1.0.0",
		ServerName:  "invoicegen",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.Args = pflag.Args()

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, environment and viper.
var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "maxfilesize",
	"sequence", "start", "redis-addr", "redis-key",
	"bill-to", "payable-to", "item",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// redis-addr is read from INVOICEGEN_REDIS_ADDR
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("sequence", cfg.Sequence)
	viper.SetDefault("start", cfg.Start)
	viper.SetDefault("redis-addr", cfg.RedisAddr)
	viper.SetDefault("redis-key", cfg.RedisKey)
	viper.SetDefault("bill-to", cfg.BillTo)
	viper.SetDefault("payable-to", cfg.PayableTo)
	viper.SetDefault("item", cfg.Item)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the web UI and JSON API, 'stdio' for MCP, 'cli' for the interactive prompt")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory invoices are written to")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum invoice file size read by inspect, in bytes")
	pflag.String("sequence", cfg.Sequence, "Invoice number store: 'memory', 'file' or 'redis'")
	pflag.Int64("start", cfg.Start, "First invoice number for a fresh sequence")
	pflag.String("redis-addr", cfg.RedisAddr, "Redis address (redis sequence only)")
	pflag.String("redis-key", cfg.RedisKey, "Redis key holding the last issued number")
	pflag.String("bill-to", cfg.BillTo, "Customer printed under BILL TO")
	pflag.String("payable-to", cfg.PayableTo, "Supplier printed under PAYABLE TO")
	pflag.String("item", cfg.Item, "Item description printed in the line item")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s [flags] inspect <Invoice_N.pdf>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ninvoicegen - generates numbered PDF invoices\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                       # web UI on 127.0.0.1:5000\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli                            # interactive prompt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/srv/invoices      # MCP over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --sequence=redis --redis-addr=:6379   # shared numbering\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every flag can be set as %s_<FLAG>, with dashes as underscores\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  (for example %s_REDIS_ADDR).\n", envPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Sequence = viper.GetString("sequence")
	cfg.Start = viper.GetInt64("start")
	cfg.RedisAddr = viper.GetString("redis-addr")
	cfg.RedisKey = viper.GetString("redis-key")
	cfg.BillTo = viper.GetString("bill-to")
	cfg.PayableTo = viper.GetString("payable-to")
	cfg.Item = viper.GetString("item")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeServer && c.Mode != ModeStdio && c.Mode != ModeCLI {
		return errors.New("mode must be one of 'server', 'stdio' or 'cli'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("invoice directory cannot be empty")
	}

	// Create the output directory if it doesn't exist
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create invoice directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access invoice directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	switch c.Sequence {
	case sequence.KindMemory, sequence.KindFile:
	case sequence.KindRedis:
		if c.RedisAddr == "" {
			return errors.New("redis-addr is required for the redis sequence")
		}
		if c.RedisKey == "" {
			return errors.New("redis-key cannot be empty")
		}
	default:
		return fmt.Errorf("invalid sequence: %s (must be one of: memory, file, redis)", c.Sequence)
	}

	if c.Start < 1 {
		return errors.New("start must be a positive invoice number")
	}

	if strings.TrimSpace(c.BillTo) == "" || strings.TrimSpace(c.PayableTo) == "" || strings.TrimSpace(c.Item) == "" {
		return errors.New("bill-to, payable-to and item cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Parties returns the names printed on every invoice.
func (c *Config) Parties() invoice.Parties {
	return invoice.Parties{
		BillTo:    strings.TrimSpace(c.BillTo),
		PayableTo: strings.TrimSpace(c.PayableTo),
		Item:      strings.TrimSpace(c.Item),
	}
}

// SequenceOptions returns the options for building the invoice number store.
// The file ledger lives next to the invoices.
func (c *Config) SequenceOptions() sequence.Options {
	return sequence.Options{
		Kind:      c.Sequence,
		Start:     c.Start,
		LedgerDir: c.Directory,
		RedisAddr: c.RedisAddr,
		RedisKey:  c.RedisKey,
	}
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, Sequence: %s, Start: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.Directory, c.Sequence, c.Start, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running the HTTP server
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running the MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsCLIMode returns true if running the interactive prompt
func (c *Config) IsCLIMode() bool {
	return c.Mode == ModeCLI
}
