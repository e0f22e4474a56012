// Utilities for parsing cURL commands copied from Plex Web.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	curlURLPattern    = regexp.MustCompile(`'(https?://[^']+)'|"(https?://[^"]+)"|(https?://[^\s'"]+)`)
	curlHeaderPattern = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
)

// PlexCurl holds what a "Copy as cURL" of a Plex Web request reveals.
type PlexCurl struct {
	ServerURL string
	Token     string
	Headers   map[string]string
}

// ParseCurlFile reads a file containing a cURL command and extracts the Plex server and token.
func ParseCurlFile(path string) (*PlexCurl, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the server origin and X-Plex-Token from a cURL command.
//
// The token is taken from the query string first, then from an X-Plex-Token header.
func ParseCurlCommand(data []byte) (*PlexCurl, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "^\n", " ")

	m := curlURLPattern.FindStringSubmatch(cmd)
	if m == nil {
		return nil, fmt.Errorf("%w: no URL found in curl command", ErrInvalidInput)
	}
	raw := firstNonEmpty(m[1:]...)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: malformed URL %q", ErrInvalidInput, raw)
	}

	result := &PlexCurl{
		ServerURL: u.Scheme + "://" + u.Host,
		Token:     u.Query().Get("X-Plex-Token"),
		Headers:   make(map[string]string),
	}

	for _, hm := range curlHeaderPattern.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstNonEmpty(hm[1:]...), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		result.Headers[key] = value
		if result.Token == "" && strings.EqualFold(key, "X-Plex-Token") {
			result.Token = value
		}
	}

	if result.Token == "" {
		return nil, fmt.Errorf("%w: no X-Plex-Token in curl command", ErrMissingCredentials)
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
