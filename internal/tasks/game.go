package tasks

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

// ParseKeys reads rating keys from a file (one per line, blank and # lines skipped)
// or, when arg is not a file, from a comma-separated list.
func ParseKeys(arg string) ([]string, error) {
	var keys []string

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		f, err := os.Open(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to open keys file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			keys = append(keys, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read keys file: %w", err)
		}
	} else {
		for k := range strings.SplitSeq(arg, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no rating keys provided", shared.ErrMissingArgument)
	}
	return keys, nil
}

// GameOpts configures [Engine.CreateGame].
type GameOpts struct {
	Name      string // Display name
	MappingID string // Identifier used in file names and the manifest
	Keys      []string
	OutputDir string
}

// GameResult describes a created custom game.
type GameResult struct {
	Mapping      models.Mapping
	Tracks       []models.Track // In key order, for card printing
	Skipped      []string
	MappingPath  string
	ManifestPath string
}

// CreateGame fetches every key, writes plex-mapping-<id>.json and registers it in plex-manifest.json.
// Keys that cannot be fetched are skipped.
func (e *Engine) CreateGame(ctx context.Context, prog chan<- ProgressUpdate, opts GameOpts) (*GameResult, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}
	if opts.Name == "" || opts.MappingID == "" {
		return nil, fmt.Errorf("%w: game name and mapping identifier are required", shared.ErrMissingArgument)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	result := &GameResult{Mapping: models.Mapping{}}
	for i, key := range opts.Keys {
		t, err := e.plex.Track(ctx, key)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil || t == nil {
			e.logger.Debug("skipping rating key", "key", key, "error", err)
			result.Skipped = append(result.Skipped, key)
			e.sendProgress(prog, fetchKeyUpdate(i+1, len(opts.Keys), key, nil))
			continue
		}
		result.Mapping[key] = t
		result.Tracks = append(result.Tracks, *t)
		e.sendProgress(prog, fetchKeyUpdate(i+1, len(opts.Keys), key, t))
	}

	if len(result.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no valid tracks found, cannot create game", shared.ErrTrackNotFound)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result.MappingPath = filepath.Join(opts.OutputDir, fmt.Sprintf("plex-mapping-%s.json", opts.MappingID))
	if err := shared.WriteJSONFile(result.MappingPath, result.Mapping, 2); err != nil {
		return nil, err
	}

	result.ManifestPath = filepath.Join(opts.OutputDir, "plex-manifest.json")
	if _, err := UpdateManifest(result.ManifestPath, opts.MappingID, opts.Name, 100); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateManifest records a mapping in the manifest at path, creating the file when absent.
// A non-empty game name marks a custom game.
func UpdateManifest(path, mappingName, gameName string, matchRate float64) (*models.Manifest, error) {
	manifest := models.NewManifest()
	if err := shared.ReadJSONFile(path, manifest); err != nil && !errors.Is(err, shared.ErrFileNotFound) {
		return nil, err
	}

	manifest.Add(mappingName, gameName, matchRate)
	if err := shared.WriteJSONFile(path, manifest, 2); err != nil {
		return nil, err
	}
	return manifest, nil
}
