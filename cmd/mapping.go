package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/formatter"
	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
)

// MappingCheck verifies that every mapped rating key still exists.
func (r *Runner) MappingCheck(ctx context.Context, cmd *cli.Command) error {
	path, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	prog, wait := r.progress()
	result, err := engine.Check(ctx, prog, m, cmd.Bool("fix"))
	wait()
	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Mapping Check")
	r.writePlain("Checked: %d\n", result.Checked)
	r.writePlain("Missing: %d\n", len(result.Missing))
	for _, miss := range result.Missing {
		r.writePlain("  card %s: %s - %s (ratingKey: %s)\n", miss.CardID, miss.Track.Artist, miss.Track.Title, miss.Track.RatingKey)
		r.logger.Debug("missing entry", "card", miss.CardID, "error", miss.Err)
	}

	if result.Fixed {
		if err := r.saveMapping(path, m); err != nil {
			return err
		}
		r.writePlain("\nRemoved %d missing entries from %s\n", len(result.Missing), path)
	} else if len(result.Missing) > 0 {
		r.writePlain("\nRun with --fix to set them to null.\n")
	}
	return nil
}

// MappingEnrich re-fetches every entry, applies the remapper and rewrites the file.
func (r *Runner) MappingEnrich(ctx context.Context, cmd *cli.Command) error {
	path, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}

	remapperPath := cmd.String("remapper")
	if remapperPath == "" {
		remapperPath = r.config.Paths.Remapper
	}
	remapper, err := loadRemapper(remapperPath)
	if err != nil {
		return err
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	prog, wait := r.progress()
	result, err := engine.Enrich(ctx, prog, m, remapper)
	wait()
	if err != nil {
		return err
	}

	if err := r.saveMapping(path, m); err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Enrichment Complete")
	for _, e := range result.Enriched {
		r.writePlain("  %s: %s - %s (%s)\n", e.CardID, e.After.Artist, e.After.Title, strings.Join(e.Changes, ", "))
	}
	r.writePlain("Updated:   %d\n", len(result.Enriched))
	r.writePlain("Unchanged: %d\n", result.Unchanged)
	r.writePlain("Missing:   %d\n", len(result.Missing))
	r.writePlain("\nSaved: %s\n", path)
	return nil
}

// MappingMissing lists mapped tracks that are absent from a playlist.
func (r *Runner) MappingMissing(ctx context.Context, cmd *cli.Command) error {
	_, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	gap, err := engine.Missing(ctx, m, cmd.String("playlist"))
	if err != nil {
		return err
	}

	r.writePlain("Playlist %q: %d tracks\n", gap.Playlist.Title, gap.PlaylistLen)
	r.writePlain("Mapping: %d unique rating keys\n", gap.MappingKeys)
	if len(gap.Missing) == 0 {
		r.writePlain("All mapped tracks are in the playlist.\n")
		return nil
	}

	r.writePlainln("Missing from playlist (%d):", len(gap.Missing))
	for _, t := range gap.Missing {
		r.writePlain("  [%s] %s - %s (%d)\n", t.RatingKey, t.Artist, t.Title, t.Year)
	}
	return nil
}

type resolvedCard struct {
	CardID string        `json:"cardId"`
	Track  *models.Track `json:"track"`
}

// MappingResolve looks up the track for a scanned card code.
func (r *Runner) MappingResolve(ctx context.Context, cmd *cli.Command) error {
	_, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}
	code := cmd.StringArg("code")
	if code == "" {
		return fmt.Errorf("%w: card code", shared.ErrMissingArgument)
	}

	id, t, err := tasks.Resolve(m, code)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resolvedCard{CardID: id, Track: t}, true)
	}

	r.writePlain("Card:      %s\n", id)
	r.writePlain("Artist:    %s\n", t.Artist)
	r.writePlain("Title:     %s\n", t.Title)
	r.writePlain("Year:      %d\n", t.Year)
	if t.Album != "" {
		r.writePlain("Album:     %s\n", t.Album)
	}
	r.writePlain("RatingKey: %s\n", t.RatingKey)
	if t.Duration > 0 {
		r.writePlain("Duration:  %s\n", formatter.FormatDuration(t.Duration))
	}
	return nil
}

// MappingExport writes a mapping as csv, markdown or txt.
func (r *Runner) MappingExport(ctx context.Context, cmd *cli.Command) error {
	path, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var data []byte
	switch format := strings.ToLower(cmd.String("format")); format {
	case "", "csv":
		data, err = formatter.ExportToCSV(m)
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(name, m)
	case "txt", "text":
		data, err = formatter.ExportToText(name, m)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	r.logger.Info("exported mapping", "file", output, "entries", len(m.Entries()))
	return nil
}
