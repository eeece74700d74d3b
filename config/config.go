// Package config loads the service configuration from a TOML file.
//
// Example (~/.mora/config.toml):
//
//	[banxico]
//	token    = "your-sie-token"
//	base_url = "https://www.banxico.org.mx/SieAPIRest/service/v1"
//
//	[server]
//	port = 8080
//
//	[database]
//	path = "mora.db"
//
// Every field has a working default; a missing file is not an error so the
// CLI and server run out of the box. Command-line flags override the file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full service configuration.
type Config struct {
	Banxico  BanxicoConfig  `toml:"banxico"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

// BanxicoConfig configures the SIE API client.
type BanxicoConfig struct {
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `toml:"port"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Banxico: BanxicoConfig{
			BaseURL: "https://www.banxico.org.mx/SieAPIRest/service/v1",
		},
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "mora.db"},
	}
}

// Load reads the TOML file at path over the defaults. A missing file
// returns the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Banxico.BaseURL == "" {
		cfg.Banxico.BaseURL = Default().Banxico.BaseURL
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = Default().Server.Port
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = Default().Database.Path
	}
	return cfg, nil
}
