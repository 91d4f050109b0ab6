// Package config provides configuration management for the call-graph tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	CallGraph CallGraphConfig `mapstructure:"callgraph"`
	Store     StoreConfig     `mapstructure:"store"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Export    ExportConfig    `mapstructure:"export"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// CallGraphConfig describes where processes, threads and call stacks live
// in the interval store's attribute tree.
type CallGraphConfig struct {
	ProcessesPattern []string `mapstructure:"processes_pattern"`
	ThreadsPattern   []string `mapstructure:"threads_pattern"`
	CallStackPath    []string `mapstructure:"callstack_path"`
}

// StoreConfig selects and connects the interval store.
type StoreConfig struct {
	Type     string `mapstructure:"type"` // memory, sqlite, mysql or postgres
	Path     string `mapstructure:"path"` // json dump for memory, db file for sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
}

// ExportConfig controls which artifacts a build produces.
type ExportConfig struct {
	Formats    []string `mapstructure:"formats"` // json, folded, pprof, graph
	OutputDir  string   `mapstructure:"output_dir"`
	Gzip       bool     `mapstructure:"gzip"`
	MinPercent float64  `mapstructure:"min_percent"`
	TopN       int      `mapstructure:"top_n"`
}

// BatchConfig holds settings for building many traces at once.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
	// Timeout bounds the whole batch. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/trace-callgraph")
	}

	// A missing file falls back to defaults.
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an in-memory document (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	cfg, _ := LoadFromReader("yaml", nil)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TRACEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("callgraph.processes_pattern", []string{"Processes", "*"})
	v.SetDefault("callgraph.threads_pattern", []string{"*"})
	v.SetDefault("callgraph.callstack_path", []string{"CallStack"})

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.max_conns", 10)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	v.SetDefault("export.formats", []string{"json"})
	v.SetDefault("export.output_dir", "./output")
	v.SetDefault("export.min_percent", 0.0)
	v.SetDefault("export.top_n", 20)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.timeout", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.CallGraph.ProcessesPattern) == 0 || len(c.CallGraph.ThreadsPattern) == 0 {
		return fmt.Errorf("process and thread patterns are required")
	}
	if len(c.CallGraph.CallStackPath) == 0 {
		return fmt.Errorf("callstack path is required")
	}

	switch c.Store.Type {
	case "memory", "sqlite":
	case "mysql", "postgres":
		if c.Store.Host == "" {
			return fmt.Errorf("store host is required for %s", c.Store.Type)
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	for _, f := range c.Export.Formats {
		switch f {
		case "json", "folded", "pprof", "graph":
		default:
			return fmt.Errorf("unsupported export format: %s", f)
		}
	}
	if c.Export.MinPercent < 0 || c.Export.MinPercent > 100 {
		return fmt.Errorf("min percent must be within [0, 100]")
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Batch.Timeout < 0 {
		return fmt.Errorf("batch timeout must not be negative")
	}

	return nil
}

// EnsureOutputDir creates the output directory if it doesn't exist.
func (c *Config) EnsureOutputDir() error {
	if c.Export.OutputDir == "" {
		return nil
	}
	return os.MkdirAll(c.Export.OutputDir, 0755)
}
