package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

// MatchRepository stores [models.CardMatch] rows.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Lookup returns the cached match for a card, or nil when there is none.
func (r *MatchRepository) Lookup(ctx context.Context, source, cardID string) (*models.CardMatch, error) {
	query := `
		SELECT id, source, card_id, artist, title, year, found, track_json, matched_at
		FROM card_matches
		WHERE source = ? AND card_id = ?
	`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, source, cardID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// Save inserts or replaces the cached match for (source, card id).
func (r *MatchRepository) Save(ctx context.Context, m *models.CardMatch) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.ID == "" {
		m.ID = shared.GenerateID()
	}
	if m.MatchedAt.IsZero() {
		m.MatchedAt = time.Now().UTC()
	}

	var trackJSON sql.NullString
	if m.Track != nil {
		data, err := json.Marshal(m.Track)
		if err != nil {
			return fmt.Errorf("failed to encode track: %w", err)
		}
		trackJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO card_matches (id, source, card_id, artist, title, year, found, track_json, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, card_id) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			year = excluded.year,
			found = excluded.found,
			track_json = excluded.track_json,
			matched_at = excluded.matched_at
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Source, m.CardID, m.Artist, m.Title, m.Year, m.Found(), trackJSON, m.MatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save card match: %w", err)
	}
	return nil
}

// List returns every cached match of source ordered by card id.
func (r *MatchRepository) List(ctx context.Context, source string) ([]*models.CardMatch, error) {
	query := `
		SELECT id, source, card_id, artist, title, year, found, track_json, matched_at
		FROM card_matches
		WHERE source = ?
		ORDER BY card_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query card matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.CardMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return matches, nil
}

// Clear drops the cache for source and returns how many rows were removed.
func (r *MatchRepository) Clear(ctx context.Context, source string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM card_matches WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to clear card matches: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*models.CardMatch, error) {
	var (
		m         models.CardMatch
		found     bool
		trackJSON sql.NullString
	)

	err := s.Scan(&m.ID, &m.Source, &m.CardID, &m.Artist, &m.Title, &m.Year, &found, &trackJSON, &m.MatchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card match: %w", err)
	}

	if found && trackJSON.Valid {
		var t models.Track
		if err := json.Unmarshal([]byte(trackJSON.String), &t); err != nil {
			return nil, fmt.Errorf("failed to decode cached track: %w", err)
		}
		m.Track = &t
	}
	return &m, nil
}

// RunRepository stores [models.MappingRun] rows.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run, assigning its ID.
func (r *RunRepository) Create(ctx context.Context, run *models.MappingRun) error {
	if run.Source == "" {
		return fmt.Errorf("validation failed: run requires a source")
	}
	run.ID = shared.GenerateID()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO mapping_runs (id, source, output, total, found, cached, match_rate, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Source, run.Output, run.Total, run.Found, run.Cached, run.MatchRate(), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mapping run: %w", err)
	}
	return nil
}

// Finish stores the final counters of run and stamps it finished.
func (r *RunRepository) Finish(ctx context.Context, run *models.MappingRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	query := `
		UPDATE mapping_runs
		SET output = ?, total = ?, found = ?, cached = ?, match_rate = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		run.Output, run.Total, run.Found, run.Cached, run.MatchRate(), now, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mapping run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mapping run not found: %s", run.ID)
	}
	return nil
}

// List returns the most recent runs, newest first. An empty source lists all sources.
func (r *RunRepository) List(ctx context.Context, source string, limit int) ([]*models.MappingRun, error) {
	query := `
		SELECT id, source, output, total, found, cached, started_at, finished_at
		FROM mapping_runs
	`
	args := []any{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MappingRun
	for rows.Next() {
		var (
			run      models.MappingRun
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Output, &run.Total, &run.Found, &run.Cached, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan mapping run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}
