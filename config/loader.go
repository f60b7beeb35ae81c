// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Surface field defaults applied when a file leaves them empty.
const (
	DefaultLayer    = "top"
	DefaultKeyboard = "none"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/layershell/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "layershell", "config.yaml"), nil
}

// LoadFromPath reads the file at path over DefaultConfig and validates the
// result. A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.ClearColor == "" {
		c.ClearColor = def.ClearColor
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	for i := range c.Surfaces {
		s := &c.Surfaces[i]
		if s.Layer == "" {
			s.Layer = DefaultLayer
		}
		if s.Keyboard == "" {
			s.Keyboard = DefaultKeyboard
		}
	}
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
