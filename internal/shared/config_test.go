package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./songseeker.db" {
			t.Errorf("expected database path ./songseeker.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8081 {
			t.Errorf("expected server port 8081, got %d", config.Server.Port)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected server host 127.0.0.1, got %s", config.Server.Host)
		}
		if config.Plex.Timeout() != 30*time.Second {
			t.Errorf("expected 30s Plex timeout, got %v", config.Plex.Timeout())
		}
		if config.MusicBrainz.RequestInterval() != 1500*time.Millisecond {
			t.Errorf("expected 1.5s MusicBrainz interval, got %v", config.MusicBrainz.RequestInterval())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		content := `
[plex]
server_url = "http://plex.local:32400"
token = "abc"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Plex.ServerURL != "http://plex.local:32400" {
			t.Errorf("unexpected server url %s", config.Plex.ServerURL)
		}
		if config.Server.Port != 8081 {
			t.Errorf("expected default port to survive, got %d", config.Server.Port)
		}
	})

	t.Run("LoadConfig rejects invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[plex\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Server.Port != 8081 {
			t.Errorf("expected defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Plex.Token = "saved-token"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}
		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if loaded.Plex.Token != "saved-token" {
			t.Errorf("expected saved-token, got %s", loaded.Plex.Token)
		}
	})
}

func TestResolvePlex(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "plex-config.json")
	if err := os.WriteFile(legacy, []byte(`{"serverUrl":"http://legacy:32400/","token":"legacy-token"}`), 0644); err != nil {
		t.Fatalf("failed to write legacy config: %v", err)
	}

	t.Run("flags win", func(t *testing.T) {
		config := DefaultConfig()
		config.Plex.ServerURL = "http://toml:32400"
		config.Plex.Token = "toml-token"

		server, token, err := config.ResolvePlex("http://flag:32400/", "flag-token")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server != "http://flag:32400" || token != "flag-token" {
			t.Errorf("got %s %s", server, token)
		}
	})

	t.Run("toml before legacy", func(t *testing.T) {
		config := DefaultConfig()
		config.Plex.ServerURL = "http://toml:32400"
		config.Plex.Token = "toml-token"
		config.Plex.LegacyConfig = legacy

		server, token, err := config.ResolvePlex("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server != "http://toml:32400" || token != "toml-token" {
			t.Errorf("got %s %s", server, token)
		}
	})

	t.Run("legacy fallback trims slash", func(t *testing.T) {
		config := DefaultConfig()
		config.Plex.LegacyConfig = legacy

		server, token, err := config.ResolvePlex("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server != "http://legacy:32400" || token != "legacy-token" {
			t.Errorf("got %s %s", server, token)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		config := DefaultConfig()
		config.Plex.LegacyConfig = filepath.Join(dir, "absent.json")

		if _, _, err := config.ResolvePlex("", ""); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()

	if got := ResolvePath(dir, "plex-mapping-de.json"); got != filepath.Join(dir, "plex-mapping-de.json") {
		t.Errorf("expected path joined onto dir, got %s", got)
	}
	if got := ResolvePath(dir, "/abs/file.json"); got != "/abs/file.json" {
		t.Errorf("absolute paths stay, got %s", got)
	}
	if got := ResolvePath("", "file.json"); got != "file.json" {
		t.Errorf("empty dir keeps name, got %s", got)
	}
}
