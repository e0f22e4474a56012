package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Track is one playable Plex track as stored in a mapping file.
type Track struct {
	RatingKey       string   `json:"ratingKey"`
	Title           string   `json:"title"`
	Artist          string   `json:"artist"`
	Album           string   `json:"album"`
	Year            int      `json:"year"`
	Duration        int64    `json:"duration"`
	PartKey         string   `json:"partKey"`
	GUID            string   `json:"guid,omitempty"`
	MBID            string   `json:"mbid,omitempty"`
	AlternativeKeys []string `json:"alternativeKeys,omitempty"`
}

// Card is one row of a printed card deck CSV.
type Card struct {
	ID     string
	Artist string
	Title  string
	Year   string
	URL    string
}

// YearInt parses the card year, returning 0 when it is not a number.
func (c Card) YearInt() int {
	year, err := strconv.Atoi(strings.TrimSpace(c.Year))
	if err != nil {
		return 0
	}
	return year
}

// Mapping maps card IDs to tracks. A nil track marks a card with no match.
type Mapping map[string]*Track

// Keys returns the card IDs in natural order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareNatural)
	return keys
}

// Found counts the cards with a track.
func (m Mapping) Found() int {
	n := 0
	for _, t := range m {
		if t != nil {
			n++
		}
	}
	return n
}

// Entries returns card IDs with a non-nil track that has a rating key, in natural order.
func (m Mapping) Entries() []string {
	var keys []string
	for _, k := range m.Keys() {
		if t := m[k]; t != nil && t.RatingKey != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// MarshalJSON writes the mapping with keys in natural order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, m[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeRaw writes v as compact JSON without HTML escaping or a trailing newline.
func encodeRaw(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// CompareNatural orders strings so embedded numbers compare by value ("2" < "10").
func CompareNatural(a, b string) int {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, restA := leadingDigits(a)
			nb, restB := leadingDigits(b)
			if c := compareDigits(na, nb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func compareDigits(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		return len(ta) - len(tb)
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return len(a) - len(b)
}

// Manifest lists the mapping files the front end offers.
type Manifest struct {
	Mappings   []string           `json:"mappings"`
	Games      map[string]string  `json:"games"`
	MatchRates map[string]float64 `json:"matchRates"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Mappings: []string{}, Games: map[string]string{}, MatchRates: map[string]float64{}}
}

// Add records a mapping with its match rate. A non-empty game name marks a custom game.
func (m *Manifest) Add(name, game string, matchRate float64) {
	if m.Games == nil {
		m.Games = map[string]string{}
	}
	if m.MatchRates == nil {
		m.MatchRates = map[string]float64{}
	}
	if !slices.Contains(m.Mappings, name) {
		m.Mappings = append(m.Mappings, name)
		slices.Sort(m.Mappings)
	}
	if game != "" {
		m.Games[name] = game
	}
	m.MatchRates[name] = matchRate
}
