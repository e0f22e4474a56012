package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/services"
	"github.com/desertthunder/songseeker/internal/shared"
)

// MissingEntry is a mapping entry whose track could not be fetched.
type MissingEntry struct {
	CardID string
	Track  models.Track
	Err    error
}

// CheckResult reports which mapping entries still exist in Plex.
type CheckResult struct {
	Checked int
	Missing []MissingEntry
	Fixed   bool
}

// Check fetches every entry with a rating key. With fix, missing entries are set to nil
// in m; the caller writes the file.
func (e *Engine) Check(ctx context.Context, prog chan<- ProgressUpdate, m models.Mapping, fix bool) (*CheckResult, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}

	entries := m.Entries()
	result := &CheckResult{Checked: len(entries)}

	for i, id := range entries {
		entry := m[id]
		t, err := e.plex.Track(ctx, entry.RatingKey)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil && t == nil {
			err = shared.ErrTrackNotFound
		}

		e.sendProgress(prog, checkTrackUpdate(i+1, len(entries), id, entry, err == nil))
		if err != nil {
			result.Missing = append(result.Missing, MissingEntry{CardID: id, Track: *entry, Err: err})
		}
	}

	if fix && len(result.Missing) > 0 {
		for _, miss := range result.Missing {
			m[miss.CardID] = nil
		}
		result.Fixed = true
	}
	return result, nil
}

// EnrichedEntry lists what changed for one card.
type EnrichedEntry struct {
	CardID  string
	Before  models.Track
	After   *models.Track
	Changes []string
}

// EnrichResult counts the outcome of [Engine.Enrich].
type EnrichResult struct {
	Enriched  []EnrichedEntry
	Unchanged int
	Missing   []MissingEntry
}

// Enrich re-fetches every entry by rating key and applies the remapper.
// Fetched tracks replace the entries in m; entries that cannot be fetched stay untouched.
func (e *Engine) Enrich(ctx context.Context, prog chan<- ProgressUpdate, m models.Mapping, remapper models.Remapper) (*EnrichResult, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}

	entries := m.Entries()
	result := &EnrichResult{}

	for i, id := range entries {
		old := m[id]
		fresh, err := e.plex.Track(ctx, old.RatingKey)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil && fresh == nil {
			err = shared.ErrTrackNotFound
		}
		if err != nil {
			result.Missing = append(result.Missing, MissingEntry{CardID: id, Track: *old, Err: err})
			e.sendProgress(prog, enrichTrackUpdate(i+1, len(entries), old, fmt.Sprintf("MISSING (ratingKey: %s)", old.RatingKey)))
			continue
		}

		remapper.Apply(fresh)
		changes := TrackChanges(old, fresh)
		m[id] = fresh

		if len(changes) == 0 {
			result.Unchanged++
			e.sendProgress(prog, enrichTrackUpdate(i+1, len(entries), old, "unchanged"))
			continue
		}
		result.Enriched = append(result.Enriched, EnrichedEntry{CardID: id, Before: *old, After: fresh, Changes: changes})
		e.sendProgress(prog, enrichTrackUpdate(i+1, len(entries), old, fmt.Sprintf("UPDATED (%s)", strings.Join(changes, ", "))))
	}
	return result, nil
}

// TrackChanges labels the differences between a stored entry and a fresh fetch.
// Identifiers only count when they were absent before.
func TrackChanges(old, fresh *models.Track) []string {
	var changes []string
	if fresh.GUID != "" && old.GUID == "" {
		changes = append(changes, "guid")
	}
	if fresh.MBID != "" && old.MBID == "" {
		changes = append(changes, "mbid")
	}
	if len(fresh.AlternativeKeys) > 0 && len(old.AlternativeKeys) == 0 {
		changes = append(changes, fmt.Sprintf("alternativeKeys: [%s]", strings.Join(fresh.AlternativeKeys, ", ")))
	}
	if fresh.Year != old.Year {
		changes = append(changes, fmt.Sprintf("year:%d->%d", old.Year, fresh.Year))
	}
	if fresh.Artist != old.Artist {
		changes = append(changes, "artist")
	}
	if fresh.Title != old.Title {
		changes = append(changes, "title")
	}
	return changes
}

// PlaylistGap lists mapping tracks absent from a playlist.
type PlaylistGap struct {
	Playlist    models.Playlist
	MappingKeys int
	PlaylistLen int
	Missing     []models.Track
}

// Missing finds mapping tracks whose rating key is not in the playlist named by nameOrKey.
func (e *Engine) Missing(ctx context.Context, m models.Mapping, nameOrKey string) (*PlaylistGap, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}

	pl, err := services.FindPlaylist(ctx, e.plex, nameOrKey)
	if err != nil {
		return nil, err
	}
	items, err := e.plex.PlaylistItems(ctx, pl.RatingKey)
	if err != nil {
		return nil, err
	}

	gap := &PlaylistGap{Playlist: *pl, PlaylistLen: len(items)}
	seen := map[string]bool{}
	for _, id := range m.Entries() {
		t := m[id]
		if seen[t.RatingKey] {
			continue
		}
		seen[t.RatingKey] = true
		gap.MappingKeys++
		if !slices.Contains(items, t.RatingKey) {
			gap.Missing = append(gap.Missing, *t)
		}
	}
	return gap, nil
}

// Resolve finds the track for a scanned card code, either "plex:<key>" or a bare key.
// The key is tried as a card ID, then as a rating key, then against alternative keys.
func Resolve(m models.Mapping, code string) (string, *models.Track, error) {
	key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(code), "plex:"))
	if key == "" {
		return "", nil, fmt.Errorf("%w: empty card code", shared.ErrInvalidArgument)
	}

	if t, ok := m[key]; ok && t != nil {
		return key, t, nil
	}

	ids := m.Entries()
	for _, id := range ids {
		if m[id].RatingKey == key {
			return id, m[id], nil
		}
	}
	for _, id := range ids {
		if slices.Contains(m[id].AlternativeKeys, key) {
			return id, m[id], nil
		}
	}
	return "", nil, fmt.Errorf("%w: no card for %q", shared.ErrTrackNotFound, code)
}
