package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL  = "http://localhost:3001"
	DefaultListenAddr = ":3001"
	DefaultDebounce   = 500 * time.Millisecond
)

type Config struct {
	ServerURL     string        `yaml:"server_url"`
	ListenAddr    string        `yaml:"listen_addr"`
	DataDir       string        `yaml:"data_dir"`
	Debounce      time.Duration `yaml:"debounce"`
	RetentionDays int           `yaml:"retention_days"`
}

func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "minicalen.log")
}

// Load reads an optional .env, then the YAML config file if present,
// then applies MINICALEN_* environment overrides on top.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServerURL:  DefaultServerURL,
		ListenAddr: DefaultListenAddr,
		Debounce:   DefaultDebounce,
	}
	home, err := os.UserHomeDir()
	if err == nil {
		cfg.DataDir = filepath.Join(home, ".minicalen")
	} else {
		cfg.DataDir = ".minicalen"
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}

	if v := os.Getenv("MINICALEN_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("MINICALEN_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MINICALEN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MINICALEN_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid MINICALEN_DEBOUNCE_MS: %q", v)
		}
		cfg.Debounce = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("MINICALEN_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return Config{}, fmt.Errorf("invalid MINICALEN_RETENTION_DAYS: %q", v)
		}
		cfg.RetentionDays = days
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return cfg, nil
}
