package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/services"
	"github.com/desertthunder/songseeker/internal/shared"
)

// SongDownload is the outcome of downloading one missing card.
type SongDownload struct {
	Card   models.Card
	Result services.DownloadResult
	Err    error
}

// DownloadSummary counts download outcomes.
type DownloadSummary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Downloads []SongDownload
}

func (s DownloadSummary) String() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", s.Succeeded, s.Skipped, s.Failed)
}

// DownloadMissing downloads missing cards one after another. Cards without a URL count as failed.
func (e *Engine) DownloadMissing(ctx context.Context, prog chan<- ProgressUpdate, missing []models.Card) (*DownloadSummary, error) {
	if e.downloader == nil {
		return nil, fmt.Errorf("%w: downloader not initialized", shared.ErrServiceUnavailable)
	}

	summary := &DownloadSummary{Downloads: make([]SongDownload, 0, len(missing))}
	total := len(missing)

	for i, card := range missing {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		d := SongDownload{Card: card}
		if card.URL == "" {
			d.Result = services.DownloadResult{Status: services.DownloadFailed}
			d.Err = fmt.Errorf("%w: no URL for %s - %s", shared.ErrDownloadFailed, card.Artist, card.Title)
		} else {
			d.Result, d.Err = e.downloader.Download(ctx, services.Song{
				URL:    card.URL,
				Artist: card.Artist,
				Title:  card.Title,
				Year:   card.Year,
			})
			if d.Err != nil {
				d.Result.Status = services.DownloadFailed
			}
		}

		switch d.Result.Status {
		case services.DownloadOK:
			summary.Succeeded++
		case services.DownloadSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			e.logger.Warn("download failed", "artist", card.Artist, "title", card.Title, "error", d.Err)
		}
		summary.Downloads = append(summary.Downloads, d)
		e.sendProgress(prog, downloadUpdate(i+1, total, card, d.Result.Status.String()))
	}
	return summary, nil
}
