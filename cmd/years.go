package main

import (
	"context"
	"errors"
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

// errDiscrepancies makes validate and recheck exit with status 1.
var errDiscrepancies = errors.New("year discrepancies found")

// RemapperFile is the remapper written next to a report by years apply.
const RemapperFile = "plex-date-remapper.json"

// YearsValidate compares every mapped year with MusicBrainz.
func (r *Runner) YearsValidate(ctx context.Context, cmd *cli.Command) error {
	_, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}
	return r.validate(ctx, cmd, m, cmd.String("output"))
}

// YearsRecheck validates only the tracks of a previous report.
// Without --output or --filter the report is overwritten.
func (r *Runner) YearsRecheck(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("report")
	if path == "" {
		return fmt.Errorf("%w: report file", shared.ErrMissingArgument)
	}
	report, err := formatter.ReadReport(path)
	if err != nil {
		return err
	}
	r.logger.Info("loaded report", "file", path, "discrepancies", len(report))

	output := cmd.String("output")
	if output == "" && cmd.String("filter") == "" {
		output = path
	}
	return r.validate(ctx, cmd, tasks.ReportToMapping(report), output)
}

func (r *Runner) validate(ctx context.Context, cmd *cli.Command, m models.Mapping, output string) error {
	opts, err := r.engineOpts(cmd)
	if err != nil {
		return err
	}
	opts.Recordings = r.recordings()
	engine := tasks.NewEngine(opts)

	prog, wait := r.progress()
	result, err := engine.Validate(ctx, prog, m, tasks.ValidateOpts{
		Tolerance: cmd.Int("tolerance"),
		Limit:     cmd.Int("limit"),
		Filter:    cmd.String("filter"),
	})
	wait()
	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Year Validation")
	r.writePlain("Checked:       %d\n", result.Checked)
	r.writePlain("Not found:     %d\n", result.NotFound)
	r.writePlain("Discrepancies: %d\n", len(result.Discrepancies))
	for _, d := range result.Discrepancies {
		r.writePlain("  %s - %s: Plex=%d, MB=%d (%+d)\n", d.Artist, d.Title, d.PlexYear, d.MusicBrainzYear, d.Difference)
	}

	if output != "" {
		format := cmd.String("format")
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(output), ".")
		}
		data, err := formatter.EncodeReport(result.Discrepancies, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		r.writePlain("\nReport saved to: %s\n", output)
	}

	if len(result.Discrepancies) > 0 {
		return errDiscrepancies
	}
	return nil
}

// YearsApply writes the MusicBrainz years of a report into the remapper next to it.
func (r *Runner) YearsApply(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("report")
	if path == "" {
		return fmt.Errorf("%w: report file", shared.ErrMissingArgument)
	}
	report, err := formatter.ReadReport(path)
	if err != nil {
		return err
	}
	if len(report) == 0 {
		r.writePlain("Report is empty, nothing to apply.\n")
		return nil
	}

	remapperPath := filepath.Join(filepath.Dir(path), RemapperFile)
	remapper, err := loadRemapper(remapperPath)
	if err != nil {
		return err
	}

	remapper, res := tasks.ApplyReport(report, remapper)
	if err := shared.WriteJSONFile(remapperPath, remapper, 4); err != nil {
		return err
	}

	r.writePlain("Added:     %d\n", res.Added)
	r.writePlain("Updated:   %d\n", res.Updated)
	r.writePlain("Unchanged: %d\n", res.Unchanged)
	r.writePlain("Remapper saved to: %s\n", remapperPath)
	return nil
}
