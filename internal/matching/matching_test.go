package matching

import (
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/songseeker/internal/models"
)

func TestCleanup(t *testing.T) {
	t.Run("CleanArtist", func(t *testing.T) {
		tt := []struct{ in, want string }{
			{"Calvin Harris feat. Rihanna", "Calvin Harris"},
			{"Calvin Harris FEAT. Rihanna", "Calvin Harris"},
			{"Simon, Garfunkel", "Simon"},
			{"  ABBA  ", "ABBA"},
		}
		for _, tc := range tt {
			if got := CleanArtist(tc.in); got != tc.want {
				t.Errorf("CleanArtist(%q) = %q, want %q", tc.in, got, tc.want)
			}
		}
	})

	t.Run("CleanTitle", func(t *testing.T) {
		tt := []struct{ in, want string }{
			{"Yesterday (Remastered 2009)", "Yesterday"},
			{"Song [Live]", "Song"},
			{"(I Can't Get No) Satisfaction", "Satisfaction"},
			{"A (x) B (y)", "A"},
		}
		for _, tc := range tt {
			if got := CleanTitle(tc.in); got != tc.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		}
	})

	t.Run("SearchQueries", func(t *testing.T) {
		got := SearchQueries("Queen feat. David Bowie", "Under Pressure (Remastered)")
		want := []string{"Under Pressure", "Queen Under Pressure", "Queen"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}

		if got := SearchQueries("", "Intro"); !slices.Equal(got, []string{"Intro"}) {
			t.Errorf("expected duplicates and empties skipped, got %v", got)
		}
	})
}

func TestIsCandidate(t *testing.T) {
	tt := []struct {
		name                   string
		artist, title          string
		trackArtist, trackTitl string
		want                   bool
	}{
		{"exact", "ABBA", "Waterloo", "ABBA", "Waterloo", true},
		{"case", "abba", "waterloo", "ABBA", "WATERLOO", true},
		{"track title longer", "Queen", "Bohemian Rhapsody", "Queen", "Bohemian Rhapsody - Remastered", true},
		{"card artist longer", "The Beatles", "Help", "Beatles", "Help!", true},
		{"wrong artist", "ABBA", "Waterloo", "Kinks", "Waterloo Sunset", false},
		{"wrong title", "ABBA", "SOS", "ABBA", "Fernando", false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCandidate(tc.artist, tc.title, tc.trackArtist, tc.trackTitl); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBestMatch(t *testing.T) {
	results := map[string][]models.Track{
		"Waterloo": {
			{RatingKey: "1", Artist: "ABBA", Title: "Waterloo", Year: 1976},
			{RatingKey: "2", Artist: "Kinks", Title: "Waterloo Sunset", Year: 1967},
		},
		"ABBA Waterloo": {
			{RatingKey: "3", Artist: "ABBA", Title: "Waterloo", Year: 1974},
		},
	}

	t.Run("exact year across queries", func(t *testing.T) {
		var queried []string
		search := func(q string) ([]models.Track, error) {
			queried = append(queried, q)
			return results[q], nil
		}

		got := BestMatch("ABBA", "Waterloo", 1974, search)
		if got == nil || got.RatingKey != "3" {
			t.Fatalf("expected rating key 3, got %+v", got)
		}
		if len(queried) != 2 {
			t.Errorf("expected early stop after exact match, queried %v", queried)
		}
	})

	t.Run("year mismatch rejected", func(t *testing.T) {
		search := func(q string) ([]models.Track, error) {
			return results["Waterloo"], nil
		}
		if got := BestMatch("ABBA", "Waterloo", 1974, search); got != nil {
			t.Errorf("expected no match, got %+v", got)
		}
	})

	t.Run("search errors skip query", func(t *testing.T) {
		search := func(q string) ([]models.Track, error) {
			if q == "Waterloo" {
				return nil, errors.New("boom")
			}
			return results[q], nil
		}
		if got := BestMatch("ABBA", "Waterloo", 1974, search); got == nil {
			t.Error("expected match from second query")
		}
	})

	t.Run("closest candidate is kept", func(t *testing.T) {
		m := NewMatcher("ABBA", "Waterloo", 1975)
		for _, tr := range results["Waterloo"] {
			m.Consider(tr)
		}
		best, diff := m.Closest()
		if best == nil || best.RatingKey != "1" || diff != 1 {
			t.Errorf("unexpected closest %+v diff %d", best, diff)
		}
		if m.Result() != nil {
			t.Error("non-exact candidate must not be a result")
		}
	})
}

func TestNormalize(t *testing.T) {
	tt := []struct{ in, want string }{
		{"Simon & Garfunkel", "simonandgarfunkel"},
		{"Beyoncé", "beyonce"},
		{"Die Ärzte", "diearzte"},
		{"Straße", "strasse"},
		{"AC/DC", "acdc"},
		{"", ""},
	}
	for _, tc := range tt {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOverlap(t *testing.T) {
	t.Run("TitleOverlap", func(t *testing.T) {
		tt := []struct {
			plex, mb string
			want     bool
		}{
			{"Satisfaction", "(I Can't Get No) Satisfaction", true},
			{"Reborn", "Queen of Hearts Reborn", false},
			{"Hello", "hello!", true},
			{"Hello", "Goodbye", false},
		}
		for _, tc := range tt {
			if got := TitleOverlap(tc.plex, tc.mb); got != tc.want {
				t.Errorf("TitleOverlap(%q, %q) = %v, want %v", tc.plex, tc.mb, got, tc.want)
			}
		}
	})

	t.Run("ArtistOverlap", func(t *testing.T) {
		tt := []struct {
			plex, mb string
			want     bool
		}{
			{"Queen", "Queen & David Bowie", true},
			{"Simon & Garfunkel", "Simon and Garfunkel", true},
			{"Falco Österreich", "Falco", true},
			{"ABBA", "Kinks", false},
			{"The Beatles", "The Rolling Stones", false},
			{"Simon & Garfunkel", "Sandra", false},
			{"Earth, Wind & Fire", "Andy Williams", false},
		}
		for _, tc := range tt {
			if got := ArtistOverlap(tc.plex, tc.mb); got != tc.want {
				t.Errorf("ArtistOverlap(%q, %q) = %v, want %v", tc.plex, tc.mb, got, tc.want)
			}
		}
	})
}

func TestEscapeLucene(t *testing.T) {
	if got := EscapeLucene(`AC/DC: "Live" (1991)`); got != `AC\/DC\: \"Live\" \(1991\)` {
		t.Errorf("unexpected escape %s", got)
	}
	if got := EscapeLucene(`a\b`); got != `a\\b` {
		t.Errorf("backslash must be escaped once, got %s", got)
	}
}

func TestYouTubeMusicURL(t *testing.T) {
	tt := []struct{ in, want string }{
		{"", ""},
		{"https://youtu.be/dQw4w9WgXcQ", "https://music.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=abc", "https://music.youtube.com/watch?v=abc"},
		{"https://youtube.com/watch?v=abc", "https://music.youtube.com/watch?v=abc"},
		{"https://example.com/x", "https://example.com/x"},
	}
	for _, tc := range tt {
		if got := YouTubeMusicURL(tc.in); got != tc.want {
			t.Errorf("YouTubeMusicURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	if got := SafeFilename(` AC/DC: Who? `); got != "ACDC Who" {
		t.Errorf("unexpected %q", got)
	}
}
