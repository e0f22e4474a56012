package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
	tu "github.com/desertthunder/songseeker/internal/testing"
)

func storedMapping() models.Mapping {
	return models.Mapping{
		"1": {RatingKey: "101", Artist: "ABBA", Title: "Waterloo", Year: 1974},
		"2": {RatingKey: "102", Artist: "Van Halen", Title: "Jump", Year: 1984},
		"3": nil,
		"4": {RatingKey: "104", Artist: "Nena", Title: "99 Luftballons", Year: 1983, AlternativeKeys: []string{"4004"}},
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	lib := tu.NewMockLibrary()
	lib.AddTrack(models.Track{RatingKey: "101", Artist: "ABBA", Title: "Waterloo"})
	lib.AddTrack(models.Track{RatingKey: "104", Artist: "Nena", Title: "99 Luftballons"})

	t.Run("ReportsMissing", func(t *testing.T) {
		e := quietEngine(EngineOpts{Library: lib})
		m := storedMapping()

		result, err := e.Check(ctx, nil, m, false)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if result.Checked != 3 {
			t.Errorf("expected 3 checked entries, got %d", result.Checked)
		}
		if len(result.Missing) != 1 || result.Missing[0].CardID != "2" {
			t.Fatalf("expected card 2 missing, got %+v", result.Missing)
		}
		if m["2"] == nil {
			t.Error("without fix the mapping must not change")
		}
	})

	t.Run("FixNullsMissing", func(t *testing.T) {
		e := quietEngine(EngineOpts{Library: lib})
		m := storedMapping()

		result, err := e.Check(ctx, nil, m, true)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Fixed {
			t.Error("expected Fixed to be set")
		}
		if v, ok := m["2"]; !ok || v != nil {
			t.Error("card 2 should be kept with a nil track")
		}
		if m["1"] == nil {
			t.Error("existing entries must be kept")
		}
	})

	t.Run("NothingMissing", func(t *testing.T) {
		e := quietEngine(EngineOpts{Library: lib})
		m := models.Mapping{"1": {RatingKey: "101"}}
		result, err := e.Check(ctx, nil, m, true)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if result.Fixed || len(result.Missing) != 0 {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()

	lib := tu.NewMockLibrary()
	lib.AddTrack(models.Track{RatingKey: "101", Artist: "ABBA", Title: "Waterloo", Year: 2001, GUID: "plex://track/1", MBID: "mb-1"})
	lib.AddTrack(models.Track{RatingKey: "104", Artist: "Nena", Title: "99 Luftballons", Year: 1983, AlternativeKeys: []string{"4004"}})

	remapper := models.Remapper{{
		RatingKey:       "101",
		Metadata:        models.TrackRef{Artist: "ABBA", Title: "Waterloo"},
		ReplaceData:     models.ReplaceData{Year: 1974},
		AlternativeKeys: []string{"5001"},
	}}

	e := quietEngine(EngineOpts{Library: lib})
	m := storedMapping()

	result, err := e.Enrich(ctx, nil, m, remapper)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	t.Run("Counts", func(t *testing.T) {
		if len(result.Enriched) != 1 || result.Unchanged != 1 || len(result.Missing) != 1 {
			t.Errorf("unexpected counts: enriched=%d unchanged=%d missing=%d",
				len(result.Enriched), result.Unchanged, len(result.Missing))
		}
	})

	t.Run("AppliesRemapper", func(t *testing.T) {
		got := m["1"]
		if got.Year != 1974 || got.GUID == "" || !slices.Equal(got.AlternativeKeys, []string{"5001"}) {
			t.Errorf("unexpected enriched entry %+v", got)
		}
		want := []string{"guid", "mbid", "alternativeKeys: [5001]"}
		if !slices.Equal(result.Enriched[0].Changes, want) {
			t.Errorf("changes = %v, want %v", result.Enriched[0].Changes, want)
		}
	})

	t.Run("MissingUntouched", func(t *testing.T) {
		if m["2"] == nil || m["2"].RatingKey != "102" {
			t.Errorf("missing entry should stay as it was, got %+v", m["2"])
		}
	})
}

func TestTrackChanges(t *testing.T) {
	old := &models.Track{Artist: "A", Title: "T", Year: 1990, GUID: "g"}

	tests := []struct {
		name  string
		fresh models.Track
		want  []string
	}{
		{"Unchanged", models.Track{Artist: "A", Title: "T", Year: 1990, GUID: "g2"}, nil},
		{"Year", models.Track{Artist: "A", Title: "T", Year: 1985, GUID: "g"}, []string{"year:1990->1985"}},
		{"ArtistTitle", models.Track{Artist: "B", Title: "U", Year: 1990}, []string{"artist", "title"}},
		{"MBID", models.Track{Artist: "A", Title: "T", Year: 1990, MBID: "m"}, []string{"mbid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrackChanges(old, &tt.fresh); !slices.Equal(got, tt.want) {
				t.Errorf("TrackChanges = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	ctx := context.Background()
	lib := tu.NewMockLibrary()
	lib.PlaylistList = []models.Playlist{
		{RatingKey: "900", Title: "Hitster DE", LeafCount: 2},
	}
	lib.Items["900"] = []string{"101", "104"}

	e := quietEngine(EngineOpts{Library: lib})

	t.Run("ByName", func(t *testing.T) {
		gap, err := e.Missing(ctx, storedMapping(), "hitster de")
		if err != nil {
			t.Fatalf("Missing failed: %v", err)
		}
		if gap.MappingKeys != 3 || gap.PlaylistLen != 2 {
			t.Errorf("unexpected sizes: mapping=%d playlist=%d", gap.MappingKeys, gap.PlaylistLen)
		}
		if len(gap.Missing) != 1 || gap.Missing[0].RatingKey != "102" {
			t.Errorf("expected 102 missing, got %+v", gap.Missing)
		}
	})

	t.Run("UnknownPlaylist", func(t *testing.T) {
		if _, err := e.Missing(ctx, storedMapping(), "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	m := storedMapping()

	tests := []struct {
		name     string
		code     string
		wantCard string
		wantErr  error
	}{
		{"CardID", "1", "1", nil},
		{"PlexPrefixedRatingKey", "plex:102", "2", nil},
		{"BareRatingKey", "104", "4", nil},
		{"AlternativeKey", "plex:4004", "4", nil},
		{"NullCard", "3", "", shared.ErrTrackNotFound},
		{"Unknown", "plex:777", "", shared.ErrTrackNotFound},
		{"Empty", "plex:", "", shared.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, track, err := Resolve(m, tt.code)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if id != tt.wantCard || track == nil {
				t.Errorf("Resolve(%q) = %q, want %q", tt.code, id, tt.wantCard)
			}
		})
	}
}
