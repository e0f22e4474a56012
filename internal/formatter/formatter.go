// package formatter reads card CSVs and writes mappings, missing-song lists and
// year reports in the formats the other tools consume (CSV, Markdown, plain text, JSON, YAML)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/songseeker/internal/matching"
	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

var requiredCardColumns = []string{"Card#", "Artist", "Title", "Year"}

// ReadCards parses a card CSV. Card#, Artist, Title and Year columns are required, URL is optional.
func ReadCards(r io.Reader) ([]models.Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV: %v", shared.ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV is empty", shared.ErrInvalidInput)
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}

	idx := make(map[string]int, len(requiredCardColumns))
	for _, col := range requiredCardColumns {
		i := slices.Index(headers, col)
		if i < 0 {
			return nil, fmt.Errorf("%w: CSV must have Card#, Artist, Title, and Year columns; found headers %q", shared.ErrInvalidArgument, headers)
		}
		idx[col] = i
	}
	urlIdx := slices.Index(headers, "URL")

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	cards := make([]models.Card, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 1 && row[0] == "" {
			continue
		}
		cards = append(cards, models.Card{
			ID:     cell(row, idx["Card#"]),
			Artist: cell(row, idx["Artist"]),
			Title:  cell(row, idx["Title"]),
			Year:   cell(row, idx["Year"]),
			URL:    cell(row, urlIdx),
		})
	}
	return cards, nil
}

// ReadCardsFile opens path and parses it with [ReadCards].
func ReadCardsFile(path string) ([]models.Card, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCards(f)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return buf.Bytes(), nil
}

// MissingSoundiizCSV lists missing cards in the Soundiiz playlist import format.
func MissingSoundiizCSV(missing []models.Card) ([]byte, error) {
	records := make([][]string, 0, len(missing))
	for _, c := range missing {
		records = append(records, []string{c.Title, c.Artist, ""})
	}
	return writeCSV([]string{"Track Name", "Artist Name", "Album Name"}, records)
}

// MissingFullCSV lists missing cards with their YouTube Music links.
func MissingFullCSV(missing []models.Card) ([]byte, error) {
	records := make([][]string, 0, len(missing))
	for _, c := range missing {
		records = append(records, []string{c.Artist, c.Title, c.Year, matching.YouTubeMusicURL(c.URL)})
	}
	return writeCSV([]string{"Artist", "Title", "Year", "YouTube Music URL"}, records)
}

// MissingFiles holds the paths written by [WriteMissingCSVs].
type MissingFiles struct {
	Soundiiz string
	Full     string
}

// WriteMissingCSVs writes <stem>-missing-soundiiz.csv and <stem>-missing-full.csv next to mappingPath.
func WriteMissingCSVs(mappingPath string, missing []models.Card) (*MissingFiles, error) {
	stem := strings.TrimSuffix(mappingPath, filepath.Ext(mappingPath))
	files := &MissingFiles{
		Soundiiz: stem + "-missing-soundiiz.csv",
		Full:     stem + "-missing-full.csv",
	}

	soundiiz, err := MissingSoundiizCSV(missing)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(files.Soundiiz, soundiiz, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", files.Soundiiz, err)
	}

	full, err := MissingFullCSV(missing)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(files.Full, full, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", files.Full, err)
	}
	return files, nil
}

// ExportToCSV writes a mapping as Card#, Artist, Title, Year, Album, RatingKey rows. Unmatched cards keep empty columns.
func ExportToCSV(m models.Mapping) ([]byte, error) {
	records := make([][]string, 0, len(m))
	for _, id := range m.Keys() {
		t := m[id]
		if t == nil {
			records = append(records, []string{id, "", "", "", "", ""})
			continue
		}
		records = append(records, []string{id, t.Artist, t.Title, strconv.Itoa(t.Year), t.Album, t.RatingKey})
	}
	return writeCSV([]string{"Card#", "Artist", "Title", "Year", "Album", "RatingKey"}, records)
}

// ExportToMarkdown renders a mapping as a Markdown card list.
func ExportToMarkdown(name string, m models.Mapping) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", name)
	fmt.Fprintf(&buf, "**Cards**: %d\n", len(m))
	fmt.Fprintf(&buf, "**Matched**: %d\n\n", m.Found())

	buf.WriteString("## Cards\n\n")
	for _, id := range m.Keys() {
		t := m[id]
		if t == nil {
			fmt.Fprintf(&buf, "- **%s**: _not in Plex_\n", id)
			continue
		}
		fmt.Fprintf(&buf, "- **%s**: %s - %s (%d) [%s]\n", id, t.Artist, t.Title, t.Year, FormatDuration(t.Duration))
	}
	return buf.Bytes(), nil
}

// ExportToText renders a mapping as plain text.
func ExportToText(name string, m models.Mapping) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Mapping: %s\n", name)
	fmt.Fprintf(&buf, "Cards: %d (matched %d)\n\n", len(m), m.Found())
	for _, id := range m.Keys() {
		if t := m[id]; t != nil {
			fmt.Fprintf(&buf, "%s. %s - %s (%d)\n", id, t.Artist, t.Title, t.Year)
		} else {
			fmt.Fprintf(&buf, "%s. -\n", id)
		}
	}
	return buf.Bytes(), nil
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// EncodeReport serializes a discrepancy report as "json" (two-space indent) or "yaml".
func EncodeReport(report []models.Discrepancy, format string) ([]byte, error) {
	if report == nil {
		report = []models.Discrepancy{}
	}

	switch strings.ToLower(format) {
	case "", "json":
		return shared.MarshalJSON(report, 2)
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		enc.Close()
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported report format %q", shared.ErrInvalidArgument, format)
	}
}

// ReadReport loads a report written by [EncodeReport], choosing the decoder by extension.
func ReadReport(path string) ([]models.Discrepancy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, path)
	}

	var report []models.Discrepancy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &report)
	default:
		err = json.Unmarshal(data, &report)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse report %s: %v", shared.ErrInvalidInput, path, err)
	}
	return report, nil
}

// DownloadImage fetches url and returns the raw bytes.
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}
