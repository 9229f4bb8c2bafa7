package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
	"github.com/Hanaasagi/shibuichi/pkg/ps1parser"
)

// noConfig as --config value skips the config file entirely
const noConfig = "NONE"

type Config struct {
	Core    CoreConfig        `toml:"core"`
	Git     GitConfig         `toml:"git"`
	Domains map[string]string `toml:"domains"`
}

type CoreConfig struct {
	Separator string `toml:"separator"`
	LogLevel  string `toml:"log_level"`
	MaxDepth  int    `toml:"max_depth"` // conditional nesting cap, zero is unlimited
}

type GitConfig struct {
	Binary  string        `toml:"binary"`
	Timeout time.Duration `toml:"timeout"` // "500ms", zero disables
}

func NewDefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Separator: "\n",
			LogLevel:  "warn",
		},
		Git: GitConfig{
			Binary:  "git",
			Timeout: 2 * time.Second,
		},
		Domains: map[string]string{},
	}
}

func LoadConfigFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path == noConfig {
		return config, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // no config file, return defaults
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks values that TOML decoding alone cannot
func (c *Config) Validate() error {
	if _, err := parseSeparator(c.Core.Separator); err != nil {
		return fmt.Errorf("core.separator: %w", err)
	}
	if c.Core.MaxDepth < 0 {
		return fmt.Errorf("core.max_depth: must not be negative")
	}
	if c.Git.Timeout < 0 {
		return fmt.Errorf("git.timeout: must not be negative")
	}
	if _, err := c.DomainMap(); err != nil {
		return err
	}
	return nil
}

// Parser returns the prompt parser configured by [core]
func (c *Config) Parser() *ps1parser.Parser {
	return ps1parser.NewParser(ps1parser.ParserOptions{MaxDepth: c.Core.MaxDepth})
}

// DomainMap resolves the [domains] table to lower-cased hosts
func (c *Config) DomainMap() (map[string]expand.Domain, error) {
	domains := make(map[string]expand.Domain, len(c.Domains))
	for host, name := range c.Domains {
		d, err := expand.ParseDomain(name)
		if err != nil {
			return nil, fmt.Errorf("domains.%s: %w", host, err)
		}
		domains[strings.ToLower(host)] = d
	}
	return domains, nil
}

// parseSeparator accepts exactly one character
func parseSeparator(s string) (string, error) {
	if utf8.RuneCountInString(s) != 1 {
		return "", fmt.Errorf("separator must be a single character, got %q", s)
	}
	return s, nil
}
