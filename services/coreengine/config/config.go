// Package config loads whirlpoold's runtime settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the lending engine daemon.
type Config struct {
	ListenAddress string     `yaml:"listen"`
	Env           string     `yaml:"env"`
	LogLevel      string     `yaml:"log_level"`
	Auth          AuthConfig `yaml:"auth"`
	MarketSeed    string     `yaml:"market_seed"`
}

// AuthConfig lists the authenticators accepted by the service.
type AuthConfig struct {
	APITokens []string `yaml:"api_tokens"`
	JWT       JWTConfig `yaml:"jwt"`
}

// JWTConfig configures bearer-token verification via HMAC-signed JWTs.
type JWTConfig struct {
	SigningKey string `yaml:"signing_key"`
	Issuer     string `yaml:"issuer"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8080",
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	cfg.Env = strings.TrimSpace(cfg.Env)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.MarketSeed = strings.TrimSpace(cfg.MarketSeed)
	cfg.Auth.normalize()
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if err := cfg.Auth.validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

func (cfg *AuthConfig) normalize() {
	if cfg == nil {
		return
	}
	tokens := make([]string, 0, len(cfg.APITokens))
	for _, token := range cfg.APITokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	cfg.APITokens = tokens
	cfg.JWT.SigningKey = strings.TrimSpace(cfg.JWT.SigningKey)
	cfg.JWT.Issuer = strings.TrimSpace(cfg.JWT.Issuer)
}

func (cfg AuthConfig) validate() error {
	hasTokens := len(cfg.APITokens) > 0
	hasJWT := cfg.JWT.SigningKey != ""
	if !hasTokens && !hasJWT {
		return fmt.Errorf("at least one api token or a jwt signing key must be configured")
	}
	return nil
}
