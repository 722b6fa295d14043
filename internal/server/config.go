package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete host configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Match  MatchSettings  `hcl:"match,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// MatchSettings bounds the match the host will run.
type MatchSettings struct {
	MinPlayers int `hcl:"min_players,optional"`
	MaxPlayers int `hcl:"max_players,optional"`
	// Seed makes shuffles reproducible when non-zero. Leave zero in
	// production so every match draws from OS entropy.
	Seed int64 `hcl:"seed,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Match: MatchSettings{
			MinPlayers: 2,
			MaxPlayers: 8,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Match.MinPlayers == 0 {
		config.Match.MinPlayers = 2
	}
	if config.Match.MaxPlayers == 0 {
		config.Match.MaxPlayers = 8
	}

	return &config, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Match.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2, got %d", c.Match.MinPlayers)
	}
	if c.Match.MaxPlayers > 8 {
		return fmt.Errorf("max_players must be at most 8, got %d", c.Match.MaxPlayers)
	}
	if c.Match.MinPlayers > c.Match.MaxPlayers {
		return fmt.Errorf("min_players %d exceeds max_players %d", c.Match.MinPlayers, c.Match.MaxPlayers)
	}
	return nil
}

// ListenAddress returns the full host:port address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
