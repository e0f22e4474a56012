package main

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/cards"
	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
	"github.com/desertthunder/songseeker/internal/ui"
)

// GameCreate fetches rating keys into a custom game mapping and optionally prints its cards.
func (r *Runner) GameCreate(ctx context.Context, cmd *cli.Command) error {
	keys, err := tasks.ParseKeys(cmd.String("keys"))
	if err != nil {
		return err
	}
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	outputDir := cmd.String("output-dir")
	if outputDir == "" {
		outputDir = r.config.Paths.MappingsDir
	}

	name := cmd.String("name")
	prog, wait := r.progress()
	result, err := engine.CreateGame(ctx, prog, tasks.GameOpts{
		Name:      name,
		MappingID: cmd.String("mapping"),
		Keys:      keys,
		OutputDir: outputDir,
	})
	wait()
	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader(fmt.Sprintf("Game Created: %s", name))
	r.writePlain("Tracks:   %d\n", len(result.Tracks))
	if len(result.Skipped) > 0 {
		r.writePlain("Skipped:  %d (%s)\n", len(result.Skipped), strings.Join(result.Skipped, ", "))
	}
	r.writePlain("Mapping:  %s\n", result.MappingPath)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if pdfPath := cmd.String("cards-pdf"); pdfPath != "" {
		if err := r.writeCards(ctx, pdfPath, result.Tracks, name, cmd.String("icon")); err != nil {
			return err
		}
		r.writePlain("Cards:    %s\n", pdfPath)
	}
	return nil
}

// GameCards prints cards for every entry of an existing mapping.
func (r *Runner) GameCards(ctx context.Context, cmd *cli.Command) error {
	path, m, err := r.loadMapping(cmd.StringArg("mapping"))
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = manifestName(path)
	}

	ids := m.Entries()
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, *m[id])
	}

	output := cmd.String("output")
	if err := r.writeCards(ctx, output, tracks, name, cmd.String("icon")); err != nil {
		return err
	}
	r.writePlain("Wrote %d cards to %s\n", len(tracks), output)

	if cmd.Bool("open") {
		if err := shared.OpenPath(output); err != nil {
			r.logger.Warn("could not open PDF", "file", output, "error", err)
		}
	}
	return nil
}

func (r *Runner) writeCards(ctx context.Context, path string, tracks []models.Track, name, iconSrc string) error {
	var icon image.Image
	if iconSrc != "" {
		img, err := cards.LoadIcon(ctx, iconSrc)
		if err != nil {
			return err
		}
		icon = img
	}
	r.logger.Debug("rendering cards", "file", path, "tracks", len(tracks), "icon", iconSrc != "")
	return cards.WriteFile(path, tracks, cards.Options{GameName: name, Icon: icon})
}

// GamePlay runs the terminal guessing game over a mapping.
func (r *Runner) GamePlay(ctx context.Context, cmd *cli.Command) error {
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
	for _, t := range m {
		if t != nil {
			remapper.Apply(t)
		}
	}

	seed := uint64(r.now().UnixNano())
	game, err := ui.NewGame(m, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p := tea.NewProgram(ui.NewModel(name, game), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("game failed: %w", err)
	}
	return nil
}
