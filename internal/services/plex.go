// Plex Media Server [Library] implementation
//
// Every request is a GET with Accept: application/json and the X-Plex-Token
// query parameter.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

const (
	defaultPlexTimeout = 30 * time.Second
	trackSearchType    = "10"
	mbidGUIDPrefix     = "mbid://"
)

type plexContainer struct {
	MediaContainer struct {
		FriendlyName string          `json:"friendlyName"`
		Version      string          `json:"version"`
		Size         int             `json:"size"`
		Metadata     []plexMetadata  `json:"Metadata"`
		Directory    []plexDirectory `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey        string `json:"ratingKey"`
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparentTitle"`
	OriginalTitle    string `json:"originalTitle"`
	ParentTitle      string `json:"parentTitle"`
	ParentYear       int    `json:"parentYear"`
	Year             int    `json:"year"`
	Duration         int64  `json:"duration"`
	GUID             string `json:"guid"`
	LeafCount        int    `json:"leafCount"`
	GUIDs            []struct {
		ID string `json:"id"`
	} `json:"Guid"`
	Media []struct {
		Part []struct {
			Key string `json:"key"`
		} `json:"Part"`
	} `json:"Media"`
}

// track maps Plex metadata onto a mapping entry. Album artist wins over track artist,
// album year over track year.
func (m plexMetadata) track() models.Track {
	t := models.Track{
		RatingKey: m.RatingKey,
		Title:     m.Title,
		Artist:    m.GrandparentTitle,
		Album:     m.ParentTitle,
		Year:      m.ParentYear,
		Duration:  m.Duration,
		GUID:      m.GUID,
	}
	if t.Artist == "" {
		t.Artist = m.OriginalTitle
	}
	if t.Year == 0 {
		t.Year = m.Year
	}
	if len(m.Media) > 0 && len(m.Media[0].Part) > 0 {
		t.PartKey = m.Media[0].Part[0].Key
	}
	for _, g := range m.GUIDs {
		if id, ok := strings.CutPrefix(g.ID, mbidGUIDPrefix); ok {
			t.MBID = id
			break
		}
	}
	return t
}

type plexDirectory struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Location []struct {
		Path string `json:"path"`
	} `json:"Location"`
}

// PlexOptions tunes the HTTP behavior of [PlexService].
type PlexOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// PlexService implements [Library] against a Plex server.
type PlexService struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewPlexService creates a client for the server at baseURL.
func NewPlexService(baseURL, token string, opts PlexOptions) *PlexService {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultPlexTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &PlexService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.WithPrefix("plex"),
	}
}

// Name returns the service name.
func (p *PlexService) Name() string {
	return "Plex"
}

// doRequest performs a GET on endpoint with params and decodes the body into result.
//
// Errors never include the request URL, which carries the token.
func (p *PlexService) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", p.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	p.logger.Debug("requesting", "endpoint", endpoint)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned 404", shared.ErrTrackNotFound, endpoint)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s: token rejected", shared.ErrAuthFailed, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	if result == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// ServerInfo fetches the root container.
func (p *PlexService) ServerInfo(ctx context.Context) (*models.ServerInfo, error) {
	var c plexContainer
	if err := p.doRequest(ctx, "/", nil, &c); err != nil {
		return nil, err
	}
	return &models.ServerInfo{FriendlyName: c.MediaContainer.FriendlyName, Version: c.MediaContainer.Version}, nil
}

// Search calls /search?query=..&type=10.
func (p *PlexService) Search(ctx context.Context, query string) ([]models.Track, error) {
	var c plexContainer
	params := url.Values{"query": {query}, "type": {trackSearchType}}
	if err := p.doRequest(ctx, "/search", params, &c); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(c.MediaContainer.Metadata))
	for _, m := range c.MediaContainer.Metadata {
		tracks = append(tracks, m.track())
	}
	return tracks, nil
}

// Track fetches /library/metadata/{ratingKey} including external GUIDs.
func (p *PlexService) Track(ctx context.Context, ratingKey string) (*models.Track, error) {
	var c plexContainer
	endpoint := "/library/metadata/" + url.PathEscape(ratingKey)
	if err := p.doRequest(ctx, endpoint, url.Values{"includeGuids": {"1"}}, &c); err != nil {
		return nil, err
	}

	if len(c.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, ratingKey)
	}
	t := c.MediaContainer.Metadata[0].track()
	return &t, nil
}

// Sections lists /library/sections.
func (p *PlexService) Sections(ctx context.Context) ([]models.Section, error) {
	var c plexContainer
	if err := p.doRequest(ctx, "/library/sections", nil, &c); err != nil {
		return nil, err
	}

	sections := make([]models.Section, 0, len(c.MediaContainer.Directory))
	for _, d := range c.MediaContainer.Directory {
		s := models.Section{ID: d.Key, Title: d.Title, Type: d.Type}
		if len(d.Location) > 0 {
			s.Root = d.Location[0].Path
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// Scan triggers /library/sections/{id}/refresh, limited to path when set.
func (p *PlexService) Scan(ctx context.Context, sectionID, path string, force bool) error {
	params := url.Values{}
	if path != "" {
		params.Set("path", path)
	}
	if force {
		params.Set("force", "1")
	}

	endpoint := "/library/sections/" + url.PathEscape(sectionID) + "/refresh"
	err := p.doRequest(ctx, endpoint, params, nil)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrSectionNotFound, sectionID)
	}
	return err
}

// Playlists lists audio playlists.
func (p *PlexService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var c plexContainer
	if err := p.doRequest(ctx, "/playlists", url.Values{"playlistType": {"audio"}}, &c); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(c.MediaContainer.Metadata))
	for _, m := range c.MediaContainer.Metadata {
		playlists = append(playlists, models.Playlist{RatingKey: m.RatingKey, Title: m.Title, LeafCount: m.LeafCount})
	}
	return playlists, nil
}

// PlaylistItems returns the rating keys in playlist ratingKey.
func (p *PlexService) PlaylistItems(ctx context.Context, ratingKey string) ([]string, error) {
	var c plexContainer
	endpoint := "/playlists/" + url.PathEscape(ratingKey) + "/items"
	if err := p.doRequest(ctx, endpoint, nil, &c); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ratingKey)
		}
		return nil, err
	}

	keys := make([]string, 0, len(c.MediaContainer.Metadata))
	for _, m := range c.MediaContainer.Metadata {
		keys = append(keys, m.RatingKey)
	}
	return keys, nil
}

// FindPlaylist picks a playlist by rating key, then by case-insensitive title.
func FindPlaylist(ctx context.Context, lib Library, nameOrKey string) (*models.Playlist, error) {
	playlists, err := lib.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	for _, pl := range playlists {
		if pl.RatingKey == nameOrKey {
			return &pl, nil
		}
	}
	for _, pl := range playlists {
		if strings.EqualFold(pl.Title, nameOrKey) {
			return &pl, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, nameOrKey)
}
