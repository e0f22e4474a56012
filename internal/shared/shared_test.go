package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFoldAccents(t *testing.T) {
	tt := []struct {
		in, want string
	}{
		{"Beyoncé", "Beyonce"},
		{"Motörhead", "Motorhead"},
		{"Straße", "Strasse"},
		{"Ænima", "AEnima"},
		{"Sigur Rós", "Sigur Ros"},
		{"plain", "plain"},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			if got := FoldAccents(tc.in); got != tc.want {
				t.Errorf("FoldAccents(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestJSONFiles(t *testing.T) {
	t.Run("MarshalJSON keeps non-ASCII and ampersands", func(t *testing.T) {
		data, err := MarshalJSON(map[string]string{"artist": "Simon & Garfunkel", "title": "Für Elise"}, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := string(data)
		if !strings.Contains(s, "Simon & Garfunkel") || !strings.Contains(s, "Für Elise") {
			t.Errorf("expected unescaped output, got %s", s)
		}
		if !strings.Contains(s, "\n    \"") {
			t.Errorf("expected four-space indent, got %s", s)
		}
		if !strings.HasSuffix(s, "}\n") {
			t.Errorf("expected trailing newline")
		}
	})

	t.Run("Write and read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		if err := WriteJSONFile(path, []int{1, 2, 3}, 2); err != nil {
			t.Fatalf("failed to write: %v", err)
		}

		var got []int
		if err := ReadJSONFile(path, &got); err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if len(got) != 3 || got[2] != 3 {
			t.Errorf("unexpected round trip %v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		var v any
		err := ReadJSONFile(filepath.Join(t.TempDir(), "absent.json"), &v)
		if !errors.Is(err, ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte("{"), 0644)

		var v any
		if err := ReadJSONFile(path, &v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, closer, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("started", "port", 8081)
	closer.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(content), "port=8081") {
		t.Errorf("expected logfmt output, got %s", content)
	}
}

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name       string
		curlCmd    string
		wantServer string
		wantToken  string
		wantErr    error
	}{
		{
			name:       "token in query string",
			curlCmd:    `curl 'http://192.168.1.10:32400/library/sections?X-Plex-Product=Plex%20Web&X-Plex-Token=abc123' -H 'Accept: application/json'`,
			wantServer: "http://192.168.1.10:32400",
			wantToken:  "abc123",
		},
		{
			name: "token in header across continuation lines",
			curlCmd: "curl \"https://plex.example.com/hubs\" \\\n" +
				"  -H \"Accept: application/json\" \\\n" +
				"  -H \"X-Plex-Token: tok-456\"",
			wantServer: "https://plex.example.com",
			wantToken:  "tok-456",
		},
		{
			name:    "no token",
			curlCmd: `curl 'http://plex.local:32400/identity'`,
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "no URL",
			curlCmd: `curl -H 'X-Plex-Token: abc'`,
			wantErr: ErrInvalidInput,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseCurlCommand([]byte(tc.curlCmd))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ServerURL != tc.wantServer {
				t.Errorf("server = %s, want %s", result.ServerURL, tc.wantServer)
			}
			if result.Token != tc.wantToken {
				t.Errorf("token = %s, want %s", result.Token, tc.wantToken)
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plex.sh")
		os.WriteFile(path, []byte(`curl 'http://plex:32400/?X-Plex-Token=file-token'`), 0644)

		result, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Token != "file-token" {
			t.Errorf("unexpected token %s", result.Token)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "absent.sh")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestOpenPathUnsupported(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()
	getRuntime = func() string { return "plan9" }

	if err := OpenPath("cards.pdf"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
