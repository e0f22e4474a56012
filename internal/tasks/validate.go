package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/songseeker/internal/matching"
	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/services"
	"github.com/desertthunder/songseeker/internal/shared"
)

// ValidateOpts configures [Engine.Validate].
type ValidateOpts struct {
	Tolerance int    // Allowed year difference
	Limit     int    // Max tracks to check when > 0
	Filter    string // Case-insensitive artist/title substring
}

// ValidateResult contains the discrepancies of a validation run.
type ValidateResult struct {
	Checked       int
	NotFound      int
	Discrepancies []models.Discrepancy
}

// FilterMapping keeps entries whose artist or title contains filter, ignoring case.
func FilterMapping(m models.Mapping, filter string) models.Mapping {
	if filter == "" {
		return m
	}
	needle := strings.ToLower(filter)
	out := models.Mapping{}
	for k, t := range m {
		if t == nil {
			continue
		}
		if strings.Contains(strings.ToLower(t.Artist), needle) || strings.Contains(strings.ToLower(t.Title), needle) {
			out[k] = t
		}
	}
	return out
}

// BestRecording picks the recording most likely to be the original release.
//
// Candidates must overlap in title and artist. Among those with a year the earliest wins,
// ties going to the higher score; without years the highest score wins.
func BestRecording(artist, title string, recs []services.Recording) *services.Recording {
	var best, bestAny *services.Recording
	for i := range recs {
		r := &recs[i]
		if !matching.TitleOverlap(title, r.Title) || !matching.ArtistOverlap(artist, r.Artist) {
			continue
		}
		if bestAny == nil || r.Score > bestAny.Score {
			bestAny = r
		}
		if r.FirstReleaseYear == 0 {
			continue
		}
		if best == nil || r.FirstReleaseYear < best.FirstReleaseYear ||
			(r.FirstReleaseYear == best.FirstReleaseYear && r.Score > best.Score) {
			best = r
		}
	}
	if best != nil {
		return best
	}
	return bestAny
}

// Validate compares each track's year with the earliest MusicBrainz release.
// Entries missing artist, title or year are skipped and do not count towards the limit.
func (e *Engine) Validate(ctx context.Context, prog chan<- ProgressUpdate, m models.Mapping, opts ValidateOpts) (*ValidateResult, error) {
	if e.mb == nil {
		return nil, fmt.Errorf("%w: MusicBrainz service not initialized", shared.ErrServiceUnavailable)
	}

	m = FilterMapping(m, opts.Filter)
	total := len(m)
	if opts.Limit > 0 && opts.Limit < total {
		total = opts.Limit
	}

	result := &ValidateResult{Discrepancies: []models.Discrepancy{}}
	for _, key := range m.Keys() {
		if opts.Limit > 0 && result.Checked >= opts.Limit {
			break
		}
		t := m[key]
		if t == nil || t.Artist == "" || t.Title == "" || t.Year == 0 {
			continue
		}
		result.Checked++

		recs, err := e.mb.SearchRecordings(ctx, t.Artist, t.Title)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			e.logger.Warn("MusicBrainz search failed", "artist", t.Artist, "title", t.Title, "error", err)
		}

		best := BestRecording(t.Artist, t.Title, recs)
		if best == nil || best.FirstReleaseYear == 0 {
			result.NotFound++
			e.sendProgress(prog, validateUpdate(result.Checked, total, t, nil))
			continue
		}

		var d *models.Discrepancy
		if matching.YearDiff(t.Year, best.FirstReleaseYear) > opts.Tolerance {
			ratingKey := t.RatingKey
			if ratingKey == "" {
				ratingKey = key
			}
			result.Discrepancies = append(result.Discrepancies, models.Discrepancy{
				RatingKey:       ratingKey,
				Artist:          t.Artist,
				Title:           t.Title,
				Album:           t.Album,
				PlexYear:        t.Year,
				MusicBrainzYear: best.FirstReleaseYear,
				Difference:      best.FirstReleaseYear - t.Year,
				MusicBrainzDate: best.FirstReleaseDate,
				MusicBrainzMBID: best.MBID,
			})
			d = &result.Discrepancies[len(result.Discrepancies)-1]
		}
		e.sendProgress(prog, validateUpdate(result.Checked, total, t, d))
	}
	return result, nil
}

// ReportToMapping turns a previous report back into a mapping keyed by rating key.
func ReportToMapping(report []models.Discrepancy) models.Mapping {
	m := make(models.Mapping, len(report))
	for _, d := range report {
		m[d.RatingKey] = d.Track()
	}
	return m
}

// ApplyResult counts remapper changes.
type ApplyResult struct {
	Added     int
	Updated   int
	Unchanged int
}

// ApplyReport writes the MusicBrainz years of report into remapper.
// Existing entries get the year when it differs; unknown rating keys are appended.
func ApplyReport(report []models.Discrepancy, remapper models.Remapper) (models.Remapper, ApplyResult) {
	var res ApplyResult
	for _, d := range report {
		if existing := remapper.Find(d.RatingKey); existing != nil {
			if existing.ReplaceData.Year != d.MusicBrainzYear {
				existing.ReplaceData.Year = d.MusicBrainzYear
				res.Updated++
			} else {
				res.Unchanged++
			}
			continue
		}
		remapper = append(remapper, models.RemapperEntry{
			RatingKey:   d.RatingKey,
			Metadata:    models.TrackRef{Artist: d.Artist, Title: d.Title},
			ReplaceData: models.ReplaceData{Year: d.MusicBrainzYear},
		})
		res.Added++
	}
	return remapper, res
}
