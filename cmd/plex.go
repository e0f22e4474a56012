package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/formatter"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
	"github.com/desertthunder/songseeker/internal/watcher"
)

// PlexInfo tests the connection to the Plex server.
func (r *Runner) PlexInfo(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	prog, wait := r.progress()
	info, err := engine.TestConnection(ctx, prog)
	wait()
	if err != nil {
		return err
	}

	r.writePlain("✓ %s (version %s)\n", info.FriendlyName, info.Version)
	return nil
}

// PlexSections lists the library sections.
func (r *Runner) PlexSections(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(cmd)
	if err != nil {
		return err
	}

	sections, err := lib.Sections(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(sections, true)
	}

	r.writePlainHeader(fmt.Sprintf("Library sections (%d)", len(sections)))
	for _, s := range sections {
		r.writePlain("%s\n", s)
		if s.Root != "" {
			r.writePlain("    root: %s\n", s.Root)
		}
	}
	return nil
}

// PlexScan triggers a section scan for each path argument, or the whole section without arguments.
func (r *Runner) PlexScan(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	prog, wait := r.progress()
	section, outcomes, err := engine.Scan(ctx, prog, cmd.String("section"), cmd.Args().Slice(), cmd.Bool("force"))
	wait()
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		target := o.Path
		if target == "" {
			target = "(entire section)"
		}
		if o.Err != nil {
			failed++
			r.writePlain("✗ %s: %v\n", target, o.Err)
			continue
		}
		r.writePlain("✓ scan started for %s in %s\n", target, section.Title)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d scans failed", shared.ErrAPIRequest, failed, len(outcomes))
	}
	return nil
}

// PlexWatch scans directories of the downloads folder as new songs arrive, until interrupted.
func (r *Runner) PlexWatch(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Paths.DownloadsDir
	}
	if dir == "" {
		return fmt.Errorf("%w: --dir or paths.downloads_dir", shared.ErrMissingArgument)
	}
	choice := cmd.String("section")

	lib, _ := r.library(cmd)
	sections, err := lib.Sections(ctx)
	if err != nil {
		return err
	}
	section, err := tasks.SelectSection(sections, choice)
	if err != nil {
		return err
	}
	choice = section.ID

	svc := watcher.NewService(dir, func(ctx context.Context, rel string) error {
		_, outcomes, err := engine.Scan(ctx, nil, choice, []string{rel}, false)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			if o.Err != nil {
				return o.Err
			}
			r.writePlain("✓ scan started for %s\n", o.Path)
		}
		return nil
	}, shared.WithLogger(r.logger, "section", section.Title))
	svc.SetDebounce(cmd.Duration("debounce"))

	r.writePlain("Watching %s for %s (ctrl+c to stop)\n", dir, section.Title)
	return svc.Start(ctx)
}

// PlexTrack prints one track.
func (r *Runner) PlexTrack(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimPrefix(cmd.StringArg("key"), "plex:")
	if key == "" {
		return fmt.Errorf("%w: rating key", shared.ErrMissingArgument)
	}

	lib, err := r.library(cmd)
	if err != nil {
		return err
	}
	track, err := lib.Track(ctx, key)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", track.Artist, track.Title))
	r.writePlain("Rating key: %s\n", track.RatingKey)
	r.writePlain("Album:      %s\n", track.Album)
	r.writePlain("Year:       %d\n", track.Year)
	r.writePlain("Duration:   %s\n", formatter.FormatDuration(track.Duration))
	if track.MBID != "" {
		r.writePlain("MBID:       %s\n", track.MBID)
	}
	if track.PartKey != "" {
		r.writePlain("Part:       %s\n", track.PartKey)
	}
	return nil
}

// PlexPlaylists lists the audio playlists.
func (r *Runner) PlexPlaylists(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(cmd)
	if err != nil {
		return err
	}

	playlists, err := lib.Playlists(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlainHeader(fmt.Sprintf("Audio playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("[%s] %s (%d tracks)\n", p.RatingKey, p.Title, p.LeafCount)
	}
	return nil
}
