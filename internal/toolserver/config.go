// Package toolserver manages external data tool servers: subprocesses
// speaking line-delimited JSON over stdio, used as fallbacks when the
// primary market data provider fails.
package toolserver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes a single external tool server.
type ServerConfig struct {
	Name         string            `yaml:"name"`
	Enabled      *bool             `yaml:"enabled"` // nil means enabled
	Command      string            `yaml:"command"`
	Args         []string          `yaml:"args"`
	Env          map[string]string `yaml:"env"`
	Capabilities []string          `yaml:"capabilities"`
	// ToolMappings maps canonical operation keys (get_quote,
	// get_price_history, ...) to this server's tool names.
	ToolMappings map[string]string `yaml:"tool_mappings"`
	// ParamMappings maps canonical argument names to this server's
	// parameter names. Unmapped arguments pass through unchanged.
	ParamMappings map[string]string `yaml:"param_mappings"`
}

// IsEnabled reports whether the server should be started.
func (c ServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Config is the top-level tool-server registry.
type Config struct {
	Servers map[string]ServerConfig `yaml:"tool_servers"`
	// FallbackPriority orders server IDs per capability.
	FallbackPriority map[string][]string `yaml:"fallback_priority"`
}

// LoadConfig reads the registry YAML. A missing file yields an empty
// registry, not an error, so deployments without fallback servers need no
// config file at all.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tool server config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tool server config: %w", err)
	}

	// Expand ${VAR} references in server env blocks from the process
	// environment.
	for id, server := range cfg.Servers {
		for key, value := range server.Env {
			server.Env[key] = expandEnvRef(value)
		}
		cfg.Servers[id] = server
	}

	return &cfg, nil
}

func expandEnvRef(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}
