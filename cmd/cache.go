package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/repositories"
	"github.com/desertthunder/songseeker/internal/shared"
)

// cachedMatch is the JSON form of one cached card search.
type cachedMatch struct {
	CardID    string `json:"cardId"`
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	RatingKey string `json:"ratingKey,omitempty"`
	MatchedAt string `json:"matchedAt"`
}

// requireStore opens the match cache, failing when the database is disabled.
func (r *Runner) requireStore(ctx context.Context) (*sql.DB, *repositories.MatchRepository, *repositories.RunRepository, error) {
	db, matches, runs, err := r.openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if db == nil {
		return nil, nil, nil, fmt.Errorf("%w: database.path is empty", shared.ErrMissingConfig)
	}
	return db, matches, runs, nil
}

// cacheSource is the key map cards stores matches under: the deck's file name.
func cacheSource(cmd *cli.Command) (string, error) {
	csvPath := cmd.StringArg("csv")
	if csvPath == "" {
		return "", fmt.Errorf("%w: cards CSV", shared.ErrMissingArgument)
	}
	return filepath.Base(csvPath), nil
}

// CacheList prints the cached card searches of a deck.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	source, err := cacheSource(cmd)
	if err != nil {
		return err
	}
	db, matches, _, err := r.requireStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := matches.List(ctx, source)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]cachedMatch, 0, len(list))
		for _, m := range list {
			c := cachedMatch{CardID: m.CardID, Artist: m.Artist, Title: m.Title, Year: m.Year, MatchedAt: m.MatchedAt.UTC().Format(time.RFC3339)}
			if m.Track != nil {
				c.RatingKey = m.Track.RatingKey
			}
			out = append(out, c)
		}
		return r.writeJSON(out, true)
	}

	r.writePlainHeader(fmt.Sprintf("Cached matches for %s", source))
	found := 0
	for _, m := range list {
		key := "not found"
		if m.Found() {
			key = "ratingKey " + m.Track.RatingKey
			found++
		}
		r.writePlain("  card %s: %s - %s (%s) -> %s\n", m.CardID, m.Artist, m.Title, m.Year, key)
	}
	r.writePlainln("Cached: %d (%d found)", len(list), found)
	return nil
}

// CacheClear drops the cached card searches of a deck so the next run searches again.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	source, err := cacheSource(cmd)
	if err != nil {
		return err
	}
	db, matches, _, err := r.requireStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := matches.Clear(ctx, source)
	if err != nil {
		return err
	}
	r.logger.Info("cleared match cache", "source", source, "rows", n)
	r.writePlain("✓ Cleared %d cached matches for %s\n", n, source)
	return nil
}

// CacheRuns prints the most recent map cards runs, optionally for one deck.
func (r *Runner) CacheRuns(ctx context.Context, cmd *cli.Command) error {
	source := ""
	if csvPath := cmd.StringArg("csv"); csvPath != "" {
		source = filepath.Base(csvPath)
	}
	db, _, runs, err := r.requireStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := runs.List(ctx, source, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		r.writePlain("No mapping runs recorded.\n")
		return nil
	}

	r.writePlainHeader("Mapping runs")
	for _, run := range list {
		status := "unfinished"
		if run.FinishedAt != nil {
			status = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		r.writePlain("  %s  %s: %d/%d found (%.1f%%), %d cached, %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.Source, run.Found, run.Total, run.MatchRate(), run.Cached, status)
		if run.Output != "" {
			r.writePlain("    -> %s\n", run.Output)
		}
	}
	return nil
}
