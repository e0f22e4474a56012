package tasks

import (
	"fmt"

	"github.com/desertthunder/songseeker/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ConnectionTest Phase = iota
	SearchCards
	DownloadSongs
	CheckTracks
	EnrichTracks
	ValidateYears
	FetchKeys
	ScanLibrary
)

func (p Phase) String() string {
	switch p {
	case ConnectionTest:
		return "connection_test"
	case SearchCards:
		return "search_cards"
	case DownloadSongs:
		return "download_songs"
	case CheckTracks:
		return "check_tracks"
	case EnrichTracks:
		return "enrich_tracks"
	case ValidateYears:
		return "validate_years"
	case FetchKeys:
		return "fetch_keys"
	case ScanLibrary:
		return "scan_library"
	default:
		return ""
	}
}

func connectionUpdate(msg string) ProgressUpdate {
	return ProgressUpdate{Phase: ConnectionTest, Step: 1, Total: 1, Message: msg}
}

func searchCardUpdate(step, total int, res CardResult) ProgressUpdate {
	status := "NOT FOUND"
	switch {
	case res.Track != nil && res.Cached:
		status = fmt.Sprintf("CACHED (%s)", res.Track.RatingKey)
	case res.Track != nil:
		status = fmt.Sprintf("FOUND (%s)", res.Track.RatingKey)
	}
	return ProgressUpdate{
		Phase:   SearchCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] #%s %s - %s: %s", step, total, res.Card.ID, res.Card.Artist, res.Card.Title, status),
		Data:    res,
	}
}

func downloadUpdate(step, total int, card models.Card, status string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s: %s", step, total, card.Artist, card.Title, status),
	}
}

func checkTrackUpdate(step, total int, cardID string, t *models.Track, ok bool) ProgressUpdate {
	status := "OK"
	if !ok {
		status = "MISSING"
	}
	return ProgressUpdate{
		Phase:   CheckTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] #%s %s: %s - %s: %s", step, total, cardID, t.RatingKey, t.Artist, t.Title, status),
	}
}

func enrichTrackUpdate(step, total int, old *models.Track, status string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s: %s", step, total, old.Artist, old.Title, status),
	}
}

func validateUpdate(step, total int, t *models.Track, d *models.Discrepancy) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s - %s (%d)", step, total, t.Artist, t.Title, t.Year)
	if d != nil {
		msg = fmt.Sprintf("%s MISMATCH: MusicBrainz %d (diff: %+d)", msg, d.MusicBrainzYear, d.Difference)
	}
	return ProgressUpdate{Phase: ValidateYears, Step: step, Total: total, Message: msg, Data: d}
}

func fetchKeyUpdate(step, total int, key string, t *models.Track) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: not found, skipped", step, total, key)
	if t != nil {
		msg = fmt.Sprintf("[%d/%d] %s: %s - %s (%d)", step, total, key, t.Artist, t.Title, t.Year)
	}
	return ProgressUpdate{Phase: FetchKeys, Step: step, Total: total, Message: msg}
}

func scanUpdate(section models.Section, path string) ProgressUpdate {
	msg := fmt.Sprintf("Scanning section %s", section)
	if path != "" {
		msg = fmt.Sprintf("Scanning %s in section %s", path, section)
	}
	return ProgressUpdate{Phase: ScanLibrary, Step: 1, Total: 1, Message: msg}
}
