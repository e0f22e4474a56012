package services

import (
	"context"

	"github.com/desertthunder/songseeker/internal/models"
)

// Library is the subset of the Plex API used by mapping, game and scan tasks.
type Library interface {
	// ServerInfo fetches the server's name and version; used as a connection test.
	ServerInfo(ctx context.Context) (*models.ServerInfo, error)

	// Search runs a track search (type 10) and returns every hit.
	Search(ctx context.Context, query string) ([]models.Track, error)

	// Track fetches a single track by rating key.
	Track(ctx context.Context, ratingKey string) (*models.Track, error)

	// Sections lists the library sections.
	Sections(ctx context.Context) ([]models.Section, error)

	// Scan asks Plex to refresh part of a section.
	Scan(ctx context.Context, sectionID, path string, force bool) error

	// Playlists lists audio playlists.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistItems returns the rating keys of a playlist in order.
	PlaylistItems(ctx context.Context, ratingKey string) ([]string, error)
}

// RecordingSearcher looks up recordings for an artist and title.
type RecordingSearcher interface {
	SearchRecordings(ctx context.Context, artist, title string) ([]Recording, error)
}

// Downloader fetches a song's audio into a directory tree.
type Downloader interface {
	Download(ctx context.Context, song Song) (DownloadResult, error)
}
