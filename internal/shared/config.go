package shared

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Plex        PlexConfig        `toml:"plex"`
	Paths       PathsConfig       `toml:"paths"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	MusicBrainz MusicBrainzConfig `toml:"musicbrainz"`
}

// PlexConfig contains the Plex server location and token.
type PlexConfig struct {
	ServerURL         string  `toml:"server_url"`
	Token             string  `toml:"token"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	LegacyConfig      string  `toml:"legacy_config"`
}

// Timeout returns the per-request timeout, defaulting to 30 seconds.
func (p PlexConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// PathsConfig contains the locations of mapping, remapper and manifest files.
type PathsConfig struct {
	MappingsDir  string `toml:"mappings_dir"`
	Remapper     string `toml:"remapper"`
	Manifest     string `toml:"manifest"`
	DownloadsDir string `toml:"downloads_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains auth server settings.
type ServerConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	StaticDir        string `toml:"static_dir"`
	HtpasswdFile     string `toml:"htpasswd_file"`
	CookieSecretFile string `toml:"cookie_secret_file"`
	LogFile          string `toml:"log_file"`
}

// MusicBrainzConfig contains MusicBrainz API settings.
type MusicBrainzConfig struct {
	BaseURL           string `toml:"base_url"`
	UserAgent         string `toml:"user_agent"`
	RequestIntervalMS int    `toml:"request_interval_ms"`
}

// RequestInterval returns the minimum spacing between MusicBrainz requests.
func (m MusicBrainzConfig) RequestInterval() time.Duration {
	if m.RequestIntervalMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(m.RequestIntervalMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigOrDefault loads the config at path, falling back to defaults when the file does not exist.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// legacyPlexConfig is the shape of plex-config.json shared with the web front end.
type legacyPlexConfig struct {
	ServerURL string `json:"serverUrl"`
	Token     string `json:"token"`
}

// LoadPlexConfig reads server URL and token from a plex-config.json file.
func LoadPlexConfig(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read plex config: %w", err)
	}

	var cfg legacyPlexConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", "", fmt.Errorf("%w: failed to parse plex config: %v", ErrInvalidConfig, err)
	}
	return cfg.ServerURL, cfg.Token, nil
}

// ResolvePlex picks the Plex server URL and token.
//
// Explicit values win, then the TOML config, then the legacy JSON file.
// The returned server URL never has a trailing slash.
func (c *Config) ResolvePlex(server, token string) (string, string, error) {
	if server == "" {
		server = c.Plex.ServerURL
	}
	if token == "" {
		token = c.Plex.Token
	}

	if (server == "" || token == "") && c.Plex.LegacyConfig != "" {
		if legacyServer, legacyToken, err := LoadPlexConfig(c.Plex.LegacyConfig); err == nil {
			if server == "" {
				server = legacyServer
			}
			if token == "" {
				token = legacyToken
			}
		}
	}

	if server == "" || token == "" {
		return "", "", fmt.Errorf("%w: Plex server and token are required; pass --server and --token or set [plex] in config.toml", ErrMissingCredentials)
	}

	return strings.TrimRight(server, "/"), token, nil
}

// ResolvePath returns name as is when it exists, otherwise joined onto dir.
func ResolvePath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) || dir == "" {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(dir, name)
}
