package models

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func TestCompareNatural(t *testing.T) {
	keys := []string{"10", "2", "1", "b2", "b10", "a", "002", "100"}
	slices.SortFunc(keys, CompareNatural)

	want := []string{"1", "2", "002", "10", "100", "a", "b2", "b10"}
	if !slices.Equal(keys, want) {
		t.Errorf("got %v, want %v", keys, want)
	}
}

func TestMapping(t *testing.T) {
	m := Mapping{
		"10": {RatingKey: "500", Artist: "Simon & Garfunkel", Title: "The Boxer", Year: 1969},
		"2":  nil,
		"1":  {RatingKey: "12", Artist: "ABBA", Title: "Waterloo", Year: 1974},
		"3":  {Artist: "No Key"},
	}

	t.Run("MarshalJSON orders keys naturally", func(t *testing.T) {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := string(data)
		i1, i2, i10 := strings.Index(s, `"1":`), strings.Index(s, `"2":null`), strings.Index(s, `"10":`)
		if i1 < 0 || i2 < 0 || i10 < 0 || !(i1 < i2 && i2 < i10) {
			t.Errorf("unexpected order: %s", s)
		}
		if !strings.Contains(s, "Simon & Garfunkel") {
			t.Errorf("expected unescaped ampersand: %s", s)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		data, _ := json.MarshalIndent(m, "", "  ")
		var back Mapping
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back["2"] != nil {
			t.Error("expected null entry to stay nil")
		}
		if back["10"].Year != 1969 {
			t.Errorf("unexpected year %d", back["10"].Year)
		}
	})

	t.Run("counts", func(t *testing.T) {
		if m.Found() != 3 {
			t.Errorf("expected 3 found, got %d", m.Found())
		}
		if got := m.Entries(); !slices.Equal(got, []string{"1", "10"}) {
			t.Errorf("unexpected entries %v", got)
		}
	})
}

func TestManifestAdd(t *testing.T) {
	m := NewManifest()
	m.Add("plex-mapping-de", "", 87.5)
	m.Add("plex-mapping-80s", "80s Classics", 100)
	m.Add("plex-mapping-de", "", 90)

	if !slices.Equal(m.Mappings, []string{"plex-mapping-80s", "plex-mapping-de"}) {
		t.Errorf("unexpected mappings %v", m.Mappings)
	}
	if m.MatchRates["plex-mapping-de"] != 90 {
		t.Errorf("expected updated match rate, got %v", m.MatchRates["plex-mapping-de"])
	}
	if m.Games["plex-mapping-80s"] != "80s Classics" {
		t.Errorf("unexpected games %v", m.Games)
	}
	if _, ok := m.Games["plex-mapping-de"]; ok {
		t.Error("card decks should not be listed as games")
	}
}

func TestRemapperApply(t *testing.T) {
	r := Remapper{
		{
			RatingKey:       "42",
			ReplaceData:     ReplaceData{Year: 1975, Title: "Bohemian Rhapsody"},
			AlternativeKeys: []string{"17"},
		},
	}

	t.Run("matching key", func(t *testing.T) {
		track := &Track{RatingKey: "42", Title: "Bohemian Rhapsody (Remastered)", Artist: "Queen", Year: 2011}
		if !r.Apply(track) {
			t.Fatal("expected entry to apply")
		}
		if track.Year != 1975 || track.Title != "Bohemian Rhapsody" || track.Artist != "Queen" {
			t.Errorf("unexpected track %+v", track)
		}
		if !slices.Equal(track.AlternativeKeys, []string{"17"}) {
			t.Errorf("unexpected alternative keys %v", track.AlternativeKeys)
		}
	})

	t.Run("other key", func(t *testing.T) {
		track := &Track{RatingKey: "43", Year: 2011}
		if r.Apply(track) || track.Year != 2011 {
			t.Errorf("unexpected change %+v", track)
		}
	})
}

func TestRemapperKeepsUnknownKeys(t *testing.T) {
	input := `[{"ratingKey":"42","note":"checked by hand",` +
		`"metadata":{"artist":"Simon & Garfunkel","title":"Mrs. Robinson","album":"Bookends"},` +
		`"replaceData":{"year":1968,"genre":["Folk"]}}]`

	var r Remapper
	if err := json.Unmarshal([]byte(input), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := r.Find("42")
	if e == nil || e.ReplaceData.Year != 1968 || e.Metadata.Artist != "Simon & Garfunkel" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if string(e.Extra["note"]) != `"checked by hand"` || string(e.Metadata.Extra["album"]) != `"Bookends"` {
		t.Errorf("unknown keys not kept: %v %v", e.Extra, e.Metadata.Extra)
	}

	e.ReplaceData.Year = 1967
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`"note":"checked by hand"`,
		`"album":"Bookends"`,
		`"replaceData":{"year":1967,"genre":["Folk"]}`,
		`"artist":"Simon & Garfunkel"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}

	t.Run("no unknown keys", func(t *testing.T) {
		data, err := json.Marshal(RemapperEntry{RatingKey: "1", ReplaceData: ReplaceData{Year: 1970}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := `{"ratingKey":"1","metadata":{"artist":"","title":""},"replaceData":{"year":1970}}`; string(data) != want {
			t.Errorf("got %s, want %s", data, want)
		}
	})
}

func TestCardYearInt(t *testing.T) {
	if (Card{Year: " 1984 "}).YearInt() != 1984 {
		t.Error("expected 1984")
	}
	if (Card{Year: "unknown"}).YearInt() != 0 {
		t.Error("expected 0 for non-numeric year")
	}
}
