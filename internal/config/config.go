// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jalberss/shpool/internal/client"
)

// SocketEnv overrides the configured socket path.
const SocketEnv = "SHPOOL_SOCKET"

type Config struct {
	Socket     string   `toml:"socket,omitempty"`
	BufSize    int      `toml:"buf_size,omitempty"`
	PipePollMs int      `toml:"pipe_poll_ms,omitempty"`
	ForwardEnv []string `toml:"forward_env,omitempty"`
}

// Load reads the config file. A missing file is not an error and yields
// the zero Config, which resolves to defaults.
func Load() (Config, string, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, "", err
	}
	cfg, err := loadToml(path)
	if err == nil {
		return cfg, path, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, path, nil
	}
	return Config{}, path, err
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if c.BufSize < 0 {
		return fmt.Errorf("buf_size must be positive, got %d", c.BufSize)
	}
	if c.PipePollMs < 0 {
		return fmt.Errorf("pipe_poll_ms must be positive, got %d", c.PipePollMs)
	}
	return nil
}

// SocketPath resolves the daemon socket: $SHPOOL_SOCKET, then the config
// file, then $XDG_RUNTIME_DIR/shpool/shpool.socket, then
// ~/.local/run/shpool/shpool.socket.
func (c Config) SocketPath() (string, error) {
	if path := os.Getenv(SocketEnv); path != "" {
		return path, nil
	}
	if c.Socket != "" {
		return expandHome(c.Socket)
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "shpool", "shpool.socket"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating socket: %w", err)
	}
	return filepath.Join(home, ".local", "run", "shpool", "shpool.socket"), nil
}

func (c Config) Tunables() client.Tunables {
	t := client.DefaultTunables()
	if c.BufSize > 0 {
		t.BufSize = c.BufSize
	}
	if c.PipePollMs > 0 {
		t.PipePollDuration = time.Duration(c.PipePollMs) * time.Millisecond
	}
	return t
}

// ForwardEnvKeys is the attach environment allow-list.
func (c Config) ForwardEnvKeys() []string {
	if c.ForwardEnv == nil {
		return client.DefaultForwardEnv
	}
	return c.ForwardEnv
}

func configPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		var err error
		configHome, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(configHome, "shpool", "config.toml"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && path[1] == '/'
}

func loadToml(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// RemoveConfigFile deletes the config file if it exists.
func RemoveConfigFile() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
