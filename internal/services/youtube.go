// YouTube audio [Downloader] backed by the yt-dlp binary
//
// yt-dlp and ffmpeg must be on PATH. Files are laid out the way Plex scans
// single tracks: <dir>/<artist>/<title>/<title> (<year>).mp3
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songseeker/internal/matching"
	"github.com/desertthunder/songseeker/internal/shared"
)

var cookieBrowsers = map[string]bool{
	"chrome": true, "firefox": true, "edge": true, "safari": true, "opera": true, "brave": true,
}

// Song is a download request for one missing card.
type Song struct {
	URL    string
	Artist string
	Title  string
	Year   string
}

// DownloadStatus reports what happened to a [Song].
type DownloadStatus int

const (
	DownloadOK DownloadStatus = iota
	DownloadSkipped
	DownloadFailed
)

func (s DownloadStatus) String() string {
	switch s {
	case DownloadOK:
		return "OK"
	case DownloadSkipped:
		return "SKIPPED (already exists)"
	default:
		return "FAILED"
	}
}

// DownloadResult is the outcome of one download.
type DownloadResult struct {
	Status DownloadStatus
	Path   string
}

// YouTubeOptions configures [YouTubeDownloader].
type YouTubeOptions struct {
	// Dir is the root download directory.
	Dir string
	// Cookies is a browser name (chrome, firefox, edge, safari, opera, brave) or a cookies.txt path.
	Cookies string
	// Binary overrides the yt-dlp executable.
	Binary string
	Logger *log.Logger
}

// YouTubeDownloader implements [Downloader].
type YouTubeDownloader struct {
	dir     string
	cookies string
	binary  string
	logger  *log.Logger
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYouTubeDownloader creates a downloader writing below opts.Dir.
func NewYouTubeDownloader(opts YouTubeOptions) *YouTubeDownloader {
	binary := opts.Binary
	if binary == "" {
		binary = "yt-dlp"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &YouTubeDownloader{
		dir:     opts.Dir,
		cookies: opts.Cookies,
		binary:  binary,
		logger:  logger.WithPrefix("yt-dlp"),
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Path returns where song will be stored.
func (y *YouTubeDownloader) Path(song Song) string {
	artist, title := matching.SafeFilename(song.Artist), matching.SafeFilename(song.Title)
	return filepath.Join(y.dir, artist, title, fmt.Sprintf("%s (%s).mp3", title, song.Year))
}

// Download fetches song unless its file already exists.
func (y *YouTubeDownloader) Download(ctx context.Context, song Song) (DownloadResult, error) {
	target := y.Path(song)
	if shared.FileExists(target) {
		return DownloadResult{Status: DownloadSkipped, Path: target}, nil
	}
	if song.URL == "" {
		return DownloadResult{Status: DownloadFailed}, fmt.Errorf("%w: no URL for %s - %s", shared.ErrDownloadFailed, song.Artist, song.Title)
	}

	songDir := filepath.Dir(target)
	if err := os.MkdirAll(songDir, 0755); err != nil {
		return DownloadResult{Status: DownloadFailed}, fmt.Errorf("failed to create %s: %w", songDir, err)
	}
	defer y.cleanup(songDir)

	out, err := y.run(ctx, y.binary, y.args(song, songDir)...)
	if err != nil {
		if ctx.Err() != nil {
			return DownloadResult{Status: DownloadFailed}, ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return DownloadResult{Status: DownloadFailed}, fmt.Errorf("%w: %s not found on PATH", shared.ErrDownloadFailed, y.binary)
		}
		y.logger.Debug("download failed", "url", song.URL, "output", string(out))
		return DownloadResult{Status: DownloadFailed}, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	return DownloadResult{Status: DownloadOK, Path: target}, nil
}

// args builds the yt-dlp command line for song.
func (y *YouTubeDownloader) args(song Song, songDir string) []string {
	title := matching.SafeFilename(song.Title)
	template := filepath.Join(songDir, fmt.Sprintf("%s (%s).%%(ext)s", title, song.Year))

	args := []string{
		"-f", "bestaudio/best",
		"--extractor-args", "youtube:player_client=web_creator,mweb,ios;formats=missing_pot",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--embed-metadata",
		"--postprocessor-args", fmt.Sprintf("ffmpeg:-metadata artist=%q -metadata title=%q -metadata date=%q", song.Artist, song.Title, song.Year),
		"--retries", "3",
		"--fragment-retries", "3",
		"--skip-unavailable-fragments",
		"--no-playlist",
		"--quiet", "--no-warnings",
		"-o", template,
	}

	switch {
	case y.cookies == "":
	case cookieBrowsers[y.cookies]:
		args = append(args, "--cookies-from-browser", y.cookies)
	default:
		args = append(args, "--cookies", y.cookies)
	}

	return append(args, song.URL)
}

// cleanup removes partial downloads yt-dlp leaves behind on failure.
func (y *YouTubeDownloader) cleanup(songDir string) {
	for _, pattern := range []string{"*.part", "*.ytdl"} {
		matches, _ := filepath.Glob(filepath.Join(songDir, pattern))
		for _, m := range matches {
			if err := os.Remove(m); err == nil {
				y.logger.Debug("removed leftover", "file", m)
			}
		}
	}
}
