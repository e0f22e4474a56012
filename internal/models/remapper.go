package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// Extra holds object keys a remapper struct does not model. They are written
// back after the known fields so hand edits survive a rewrite.
type Extra map[string]json.RawMessage

// TrackRef is the artist/title pair a remapper entry was written for.
type TrackRef struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Extra  Extra  `json:"-"`
}

// ReplaceData holds the fields a remapper entry overrides.
type ReplaceData struct {
	Year   int    `json:"year,omitempty"`
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`
	Extra  Extra  `json:"-"`
}

// RemapperEntry is one correction in plex-date-remapper.json.
type RemapperEntry struct {
	RatingKey       string      `json:"ratingKey"`
	Metadata        TrackRef    `json:"metadata"`
	ReplaceData     ReplaceData `json:"replaceData"`
	AlternativeKeys []string    `json:"alternativeKeys,omitempty"`
	Extra           Extra       `json:"-"`
}

func (t *TrackRef) UnmarshalJSON(data []byte) error {
	type plain TrackRef
	return decodeWithExtra(data, (*plain)(t), &t.Extra, "artist", "title")
}

func (t TrackRef) MarshalJSON() ([]byte, error) {
	type plain TrackRef
	return encodeWithExtra(plain(t), t.Extra)
}

func (d *ReplaceData) UnmarshalJSON(data []byte) error {
	type plain ReplaceData
	return decodeWithExtra(data, (*plain)(d), &d.Extra, "year", "artist", "title")
}

func (d ReplaceData) MarshalJSON() ([]byte, error) {
	type plain ReplaceData
	return encodeWithExtra(plain(d), d.Extra)
}

func (e *RemapperEntry) UnmarshalJSON(data []byte) error {
	type plain RemapperEntry
	return decodeWithExtra(data, (*plain)(e), &e.Extra, "ratingKey", "metadata", "replaceData", "alternativeKeys")
}

func (e RemapperEntry) MarshalJSON() ([]byte, error) {
	type plain RemapperEntry
	return encodeWithExtra(plain(e), e.Extra)
}

func decodeWithExtra(data []byte, v any, extra *Extra, known ...string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range known {
		delete(fields, k)
	}
	*extra = nil
	if len(fields) > 0 {
		*extra = Extra(fields)
	}
	return nil
}

func encodeWithExtra(v any, extra Extra) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimSpace(buf.Bytes())
	if len(extra) == 0 {
		return out, nil
	}

	out = out[:len(out)-1]
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !bytes.HasSuffix(out, []byte("{")) {
			out = append(out, ',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, strings.TrimSpace(string(extra[k]))...)
	}
	return append(out, '}'), nil
}

// Remapper is the whole remapper file.
type Remapper []RemapperEntry

// Find returns the entry for ratingKey, or nil.
func (r Remapper) Find(ratingKey string) *RemapperEntry {
	for i := range r {
		if r[i].RatingKey == ratingKey {
			return &r[i]
		}
	}
	return nil
}

// Apply overrides t with the matching entry and reports whether one was found.
func (r Remapper) Apply(t *Track) bool {
	if t == nil {
		return false
	}
	e := r.Find(t.RatingKey)
	if e == nil {
		return false
	}

	if e.ReplaceData.Year != 0 {
		t.Year = e.ReplaceData.Year
	}
	if e.ReplaceData.Artist != "" {
		t.Artist = e.ReplaceData.Artist
	}
	if e.ReplaceData.Title != "" {
		t.Title = e.ReplaceData.Title
	}
	if len(e.AlternativeKeys) > 0 {
		t.AlternativeKeys = append([]string(nil), e.AlternativeKeys...)
	}
	return true
}

// Discrepancy is a track whose Plex year disagrees with MusicBrainz.
type Discrepancy struct {
	RatingKey       string `json:"ratingKey" yaml:"ratingKey"`
	Artist          string `json:"artist" yaml:"artist"`
	Title           string `json:"title" yaml:"title"`
	Album           string `json:"album" yaml:"album"`
	PlexYear        int    `json:"plex_year" yaml:"plex_year"`
	MusicBrainzYear int    `json:"musicbrainz_year" yaml:"musicbrainz_year"`
	Difference      int    `json:"difference" yaml:"difference"`
	MusicBrainzDate string `json:"musicbrainz_date" yaml:"musicbrainz_date"`
	MusicBrainzMBID string `json:"musicbrainz_mbid" yaml:"musicbrainz_mbid"`
}

// Track converts the discrepancy back into a track carrying the Plex year.
func (d Discrepancy) Track() *Track {
	return &Track{RatingKey: d.RatingKey, Artist: d.Artist, Title: d.Title, Album: d.Album, Year: d.PlexYear}
}
