// Package config provides YAML-based configuration loading for ecomm hosts.
// Everything here is resolved once at startup; a value outside its valid
// range is a fatal configuration error, never a runtime condition.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    // AppName optional logical name of the host/application
    AppName string `mapstructure:"app_name"`

    // Protocol holds the deployment-wide wire parameters
    Protocol ProtocolConfig `mapstructure:"protocol"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Links configures the transport instances the hub owns. All entries
    // must share one kind.
    Links []LinkConfig `mapstructure:"links"`

    // PollIntervalMS is the idle sleep between hub poll passes.
    PollIntervalMS int `mapstructure:"poll_interval_ms"`
}

// ProtocolConfig mirrors the compile-time configuration surface of the
// firmware side: protocol version, device count, local board id, plus the
// checksum policy and payload size that fix the frame geometry.
type ProtocolConfig struct {
    Version     int    `mapstructure:"version"`      // range [0,3]
    Devices     int    `mapstructure:"devices"`      // range [1,255]
    BoardID     int    `mapstructure:"board_id"`     // range [0,devices)
    Checksum    string `mapstructure:"checksum"`     // crc32 | crc16 | sum16
    PayloadSize int    `mapstructure:"payload_size"` // fixed payload bytes
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// LinkConfig describes one transport instance.
type LinkConfig struct {
    // Kind: mem, serial, udp, quic, winpipe
    Kind string `mapstructure:"kind"`

    // Local/Remote addresses for udp links
    Local  string `mapstructure:"local"`
    Remote string `mapstructure:"remote"`

    // Address for quic/winpipe links; Listen selects the accepting side
    Address string `mapstructure:"address"`
    Listen  bool   `mapstructure:"listen"`

    // Device and Baud for serial links
    Device string `mapstructure:"device"`
    Baud   int    `mapstructure:"baud"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName: "ecomm-bridge",
        Protocol: ProtocolConfig{
            Version:     0,
            Devices:     2,
            BoardID:     0,
            Checksum:    "crc32",
            PayloadSize: 32,
        },
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/ecomm.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Links: []LinkConfig{
            {Kind: "udp", Local: ":7707", Remote: "127.0.0.1:7708"},
        },
        PollIntervalMS: 1,
    }
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides. The
// environment prefix is ECOMM and `.`/`-` are replaced with `_`.
// Example: ECOMM_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("ECOMM")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("protocol.version", cfg.Protocol.Version)
    v.SetDefault("protocol.devices", cfg.Protocol.Devices)
    v.SetDefault("protocol.board_id", cfg.Protocol.BoardID)
    v.SetDefault("protocol.checksum", cfg.Protocol.Checksum)
    v.SetDefault("protocol.payload_size", cfg.Protocol.PayloadSize)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("links", cfg.Links)
    v.SetDefault("poll_interval_ms", cfg.PollIntervalMS)

    if path == "" {
        if envPath := os.Getenv("ECOMM_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `ecomm`
        v.SetConfigName("ecomm")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".ecomm"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    p := &c.Protocol
    if p.Version < 0 || p.Version > 3 {
        return fmt.Errorf("invalid protocol.version: %d (must be in [0,3])", p.Version)
    }
    if p.Devices < 1 || p.Devices > 255 {
        return fmt.Errorf("invalid protocol.devices: %d (must be in [1,255])", p.Devices)
    }
    if p.BoardID < 0 || p.BoardID >= p.Devices {
        return fmt.Errorf("invalid protocol.board_id: %d (must be in [0,%d))", p.BoardID, p.Devices)
    }
    switch p.Checksum {
    case "crc32", "crc16", "sum16":
        // ok
    default:
        return fmt.Errorf("invalid protocol.checksum: %q", p.Checksum)
    }
    if p.PayloadSize < 1 || p.PayloadSize > 1024 {
        return fmt.Errorf("invalid protocol.payload_size: %d", p.PayloadSize)
    }

    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }
    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }

    if len(c.Links) == 0 {
        return fmt.Errorf("at least one link is required")
    }
    kind := strings.ToLower(strings.TrimSpace(c.Links[0].Kind))
    for i := range c.Links {
        c.Links[i].Kind = strings.ToLower(strings.TrimSpace(c.Links[i].Kind))
        switch c.Links[i].Kind {
        case "mem", "serial", "udp", "quic", "winpipe":
            // ok
        default:
            return fmt.Errorf("invalid links[%d].kind: %q", i, c.Links[i].Kind)
        }
        if c.Links[i].Kind != kind {
            return fmt.Errorf("links[%d].kind %q differs from %q; a hub owns one kind", i, c.Links[i].Kind, kind)
        }
    }
    if c.PollIntervalMS < 0 {
        return fmt.Errorf("invalid poll_interval_ms: %d", c.PollIntervalMS)
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
