package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/compdb/pkg/cmdline"
)

// Diagnostics modes.
const (
	// DiagnosticsLog reports per-command failures only on the log, keeping the
	// output strict JSON.
	DiagnosticsLog = "log"
	// DiagnosticsInline additionally writes /* ERROR: ... */ markers into the
	// output where the failed entry would have been.
	DiagnosticsInline = "inline"
)

// FileName is the optional config file looked up in the working directory.
const FileName = "compdb.toml"

// EnvPrefix prefixes environment overrides, e.g. COMPDB_OUTPUT.
const EnvPrefix = "COMPDB_"

// Config holds all configuration for the application
type Config struct {
	Output      string        `koanf:"output"`
	Jobs        int           `koanf:"jobs"`
	Diagnostics string        `koanf:"diagnostics"`
	Compilers   []string      `koanf:"compilers"`
	Extensions  []string      `koanf:"extensions"`
	Verbosity   string        `koanf:"verbosity"`
	VerboseCnt  int           `koanf:"verbose"`
	JSONLogs    bool          `koanf:"json"`
	Listen      string        `koanf:"listen"`
	Quiet       time.Duration `koanf:"quiet"`
	MaxWait     time.Duration `koanf:"maxwait"`
	Workspace   string        `koanf:"workspace"`
	DB          string        `koanf:"db"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"output":      "compile_commands.json",
		"jobs":        runtime.NumCPU(),
		"diagnostics": DiagnosticsLog,
		"compilers":   cmdline.DefaultCompilers,
		"extensions":  cmdline.DefaultExtensions,
		"verbosity":   "",
		"verbose":     0,
		"json":        false,
		"listen":      "127.0.0.1:8080",
		"quiet":       "100ms",
		"maxwait":     "1s",
		"workspace":   ".",
		"db":          "compile_commands.json",
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, FileName)
}

func load(f *pflag.FlagSet, configFile string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional); a missing file is not an error
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", configFile, err)
		}
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the collector cannot run with.
func (c *Config) Validate() error {
	switch c.Diagnostics {
	case DiagnosticsLog, DiagnosticsInline:
	default:
		return fmt.Errorf("invalid diagnostics mode %q (want %q or %q)", c.Diagnostics, DiagnosticsLog, DiagnosticsInline)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if len(c.Compilers) == 0 {
		return fmt.Errorf("at least one compiler name is required")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one source extension is required")
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
