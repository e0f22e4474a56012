package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/songseeker/internal/shared"
)

const (
	defaultHost         = "127.0.0.1"
	defaultPort         = 8081
	defaultHtpasswdFile = "/etc/nginx/.htpasswd"
	defaultSecretFile   = "/etc/nginx/.cookie_secret"
)

// Config holds the auth server settings.
//
// Fields are seeded from the [server] TOML table; environment variables override them when set.
type Config struct {
	Host             string `env:"HOST"`
	Port             int    `env:"PORT"`
	StaticDir        string `env:"STATIC_DIR"`
	HtpasswdFile     string `env:"HTPASSWD_FILE"`
	CookieSecretFile string `env:"COOKIE_SECRET_FILE"`
	LogFile          string `env:"LOG_FILE"`
}

// LoadConfig layers environment variables over the TOML server config and fills defaults.
func LoadConfig(base shared.ServerConfig) (Config, error) {
	cfg := Config{
		Host:             base.Host,
		Port:             base.Port,
		StaticDir:        base.StaticDir,
		HtpasswdFile:     base.HtpasswdFile,
		CookieSecretFile: base.CookieSecretFile,
		LogFile:          base.LogFile,
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", shared.ErrInvalidConfig, err)
	}

	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.HtpasswdFile == "" {
		cfg.HtpasswdFile = defaultHtpasswdFile
	}
	if cfg.CookieSecretFile == "" {
		cfg.CookieSecretFile = defaultSecretFile
	}
	return cfg, nil
}

// LoadSecret reads the cookie signing secret from path.
//
// A missing or blank file yields a random 32-byte hex secret and a warning;
// sessions then do not survive a restart.
func LoadSecret(path string, logger *log.Logger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read cookie secret: %w", err)
	}

	if secret := strings.TrimSpace(string(data)); secret != "" {
		return []byte(secret), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate cookie secret: %w", err)
	}
	logger.Warn("cookie secret not found, using a random secret", "path", path)
	return []byte(hex.EncodeToString(buf)), nil
}
