// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/songseeker/internal/models"
)

var errNotFound = errors.New("not found")

// ScanCall records one [MockLibrary.Scan] invocation.
type ScanCall struct {
	SectionID string
	Path      string
	Force     bool
}

// MockLibrary is an in-memory test double for services.Library.
//
// Lookups of unknown rating keys fail with NotFoundErr (default a plain "not found" error).
type MockLibrary struct {
	mu sync.Mutex

	Info          models.ServerInfo
	InfoErr       error
	Tracks        map[string]*models.Track
	SearchResults map[string][]models.Track
	SearchErr     error
	SectionList   []models.Section
	PlaylistList  []models.Playlist
	Items         map[string][]string
	NotFoundErr   error

	Queries    []string
	Fetched    []string
	ScanCalls  []ScanCall
	ScanSignal chan ScanCall
}

// NewMockLibrary returns an empty mock.
func NewMockLibrary() *MockLibrary {
	return &MockLibrary{
		Info:          models.ServerInfo{FriendlyName: "mock", Version: "1.0"},
		Tracks:        map[string]*models.Track{},
		SearchResults: map[string][]models.Track{},
		Items:         map[string][]string{},
	}
}

// AddTrack registers t for lookups by rating key.
func (m *MockLibrary) AddTrack(t models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tracks[t.RatingKey] = &t
}

func (m *MockLibrary) notFound(key string) error {
	if m.NotFoundErr != nil {
		return fmt.Errorf("%w: %s", m.NotFoundErr, key)
	}
	return fmt.Errorf("%w: %s", errNotFound, key)
}

func (m *MockLibrary) ServerInfo(ctx context.Context) (*models.ServerInfo, error) {
	if m.InfoErr != nil {
		return nil, m.InfoErr
	}
	info := m.Info
	return &info, nil
}

func (m *MockLibrary) Search(ctx context.Context, query string) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchResults[query], nil
}

func (m *MockLibrary) Track(ctx context.Context, ratingKey string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched = append(m.Fetched, ratingKey)
	t, ok := m.Tracks[ratingKey]
	if !ok {
		return nil, m.notFound(ratingKey)
	}
	copied := *t
	copied.AlternativeKeys = append([]string(nil), t.AlternativeKeys...)
	return &copied, nil
}

func (m *MockLibrary) Sections(ctx context.Context) ([]models.Section, error) {
	return m.SectionList, nil
}

func (m *MockLibrary) Scan(ctx context.Context, sectionID, path string, force bool) error {
	call := ScanCall{SectionID: sectionID, Path: path, Force: force}
	m.mu.Lock()
	m.ScanCalls = append(m.ScanCalls, call)
	signal := m.ScanSignal
	m.mu.Unlock()

	if signal != nil {
		select {
		case signal <- call:
		case <-ctx.Done():
		}
	}
	return nil
}

func (m *MockLibrary) Playlists(ctx context.Context) ([]models.Playlist, error) {
	return m.PlaylistList, nil
}

func (m *MockLibrary) PlaylistItems(ctx context.Context, ratingKey string) ([]string, error) {
	items, ok := m.Items[ratingKey]
	if !ok {
		return nil, m.notFound(ratingKey)
	}
	return items, nil
}

// Scans returns a copy of the recorded scan calls.
func (m *MockLibrary) Scans() []ScanCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ScanCall(nil), m.ScanCalls...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
