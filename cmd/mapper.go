package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/formatter"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
)

// manifestName turns "plex-mapping-de_2025.json" into "de_2025".
func manifestName(mappingPath string) string {
	name := strings.TrimSuffix(filepath.Base(mappingPath), filepath.Ext(mappingPath))
	return strings.TrimPrefix(name, "plex-mapping-")
}

// MapCards searches Plex for every card of a CSV deck and writes the mapping,
// missing-song CSVs and optionally downloads what is missing.
func (r *Runner) MapCards(ctx context.Context, cmd *cli.Command) error {
	csvPath := cmd.StringArg("csv")
	if csvPath == "" {
		return fmt.Errorf("%w: cards CSV", shared.ErrMissingArgument)
	}

	cards, err := formatter.ReadCardsFile(csvPath)
	if err != nil {
		return err
	}
	r.logger.Info("loaded cards", "file", csvPath, "count", len(cards))

	opts, err := r.engineOpts(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("no-cache") {
		db, matches, runs, err := r.openStore(ctx)
		if err != nil {
			r.logger.Warn("match cache unavailable, searching every card", "error", err)
		} else if db != nil {
			defer db.Close()
			opts.Cache = matches
			opts.Runs = runs
		}
	}

	downloadDir := cmd.String("download-dir")
	if downloadDir == "" {
		downloadDir = r.config.Paths.DownloadsDir
	}
	if cmd.Bool("download") {
		opts.Downloader = r.youtube(downloadDir, cmd.String("cookies"))
	}
	engine := tasks.NewEngine(opts)

	output := cmd.String("output")
	if output == "" {
		output = filepath.Join(r.config.Paths.MappingsDir, tasks.MappingName(csvPath, r.now()))
	}

	prog, wait := r.progress()
	info, err := engine.TestConnection(ctx, prog)
	if err != nil {
		wait()
		return err
	}
	r.logger.Info("connected", "server", info.FriendlyName)

	result, err := engine.MapCards(ctx, prog, cards, tasks.MapOpts{
		Source:     filepath.Base(csvPath),
		Output:     output,
		Limit:      cmd.Int("limit"),
		Refresh:    cmd.Bool("refresh"),
		NumWorkers: cmd.Int("workers"),
	})
	wait()
	if err != nil {
		return err
	}

	if err := r.saveMapping(output, result.Mapping); err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Mapping Complete")
	r.writePlain("Found:     %d\n", result.Found)
	r.writePlain("Not found: %d\n", result.NotFound)
	r.writePlain("Total:     %d\n", result.Total)
	if result.Cached > 0 {
		r.writePlain("Cached:    %d\n", result.Cached)
	}
	r.writePlain("Match rate: %.1f%%\n", result.MatchRate())
	r.writePlain("\nMapping saved to: %s\n", output)

	if len(result.Missing) > 0 {
		files, err := formatter.WriteMissingCSVs(output, result.Missing)
		if err != nil {
			return err
		}
		r.writePlain("Missing songs (Soundiiz): %s\n", files.Soundiiz)
		r.writePlain("Missing songs (full):     %s\n", files.Full)
	}

	if cmd.Bool("manifest") {
		manifestPath := r.config.Paths.Manifest
		if _, err := tasks.UpdateManifest(manifestPath, manifestName(output), "", result.MatchRate()); err != nil {
			return err
		}
		r.writePlain("Manifest updated: %s\n", manifestPath)
	}

	if cmd.Bool("download") && len(result.Missing) > 0 {
		r.writePlainln("Downloading %d missing songs to %s", len(result.Missing), downloadDir)
		prog, wait := r.progress()
		summary, err := engine.DownloadMissing(ctx, prog, result.Missing)
		wait()
		if summary != nil {
			for _, d := range summary.Downloads {
				if d.Err != nil {
					r.logger.Warn("download failed", "card", d.Card.ID, "error", d.Err)
				}
			}
			r.writePlain("\nDownloads: %s\n", summary)
		}
		if err != nil {
			return err
		}
	}

	return nil
}
