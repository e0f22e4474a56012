// MusicBrainz recording search used for year validation
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/songseeker/internal/matching"
	"github.com/desertthunder/songseeker/internal/shared"
)

const (
	defaultMusicBrainzURL = "https://musicbrainz.org/ws/2"
	defaultUserAgent      = "SongSeeker-YearValidator/1.0 (https://github.com/andygruber/songseeker)"
	maxRetries            = 3
	retryBaseDelay        = 2 * time.Second
	// Recordings first released after this year trigger a search for older releases.
	olderSearchCutoff = 1950
)

// Recording is a MusicBrainz recording reduced to what year validation needs.
type Recording struct {
	MBID             string
	Title            string
	Artist           string
	FirstReleaseYear int
	FirstReleaseDate string
	Score            int
}

type mbRecordingResponse struct {
	Recordings []struct {
		ID               string `json:"id"`
		Title            string `json:"title"`
		Score            int    `json:"score"`
		FirstReleaseDate string `json:"first-release-date"`
		ArtistCredit     []struct {
			Name       string `json:"name"`
			JoinPhrase string `json:"joinphrase"`
		} `json:"artist-credit"`
	} `json:"recordings"`
}

// MusicBrainzOptions configures [MusicBrainzService].
type MusicBrainzOptions struct {
	BaseURL         string
	UserAgent       string
	RequestInterval time.Duration
	HTTPClient      *http.Client
	Logger          *log.Logger
}

// MusicBrainzService implements [RecordingSearcher] with rate limiting and retries.
type MusicBrainzService struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	newBackOff func() backoff.BackOff
}

// NewMusicBrainzService creates a client. Requests are spaced by opts.RequestInterval (default 1.5s).
func NewMusicBrainzService(opts MusicBrainzOptions) *MusicBrainzService {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultMusicBrainzURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	interval := opts.RequestInterval
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &MusicBrainzService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger.WithPrefix("musicbrainz"),
		newBackOff: retryBackOff,
	}
}

// retryBackOff doubles from 2s without jitter: 2s, 4s.
func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}

// Name returns the service name.
func (m *MusicBrainzService) Name() string {
	return "MusicBrainz"
}

// SearchRecordings combines up to three queries, deduplicated by MBID:
// official singles and albums without live or compilation releases, a general
// artist+recording query and, when every year found is after 1950, a query
// restricted to releases before the earliest one.
func (m *MusicBrainzService) SearchRecordings(ctx context.Context, artist, title string) ([]Recording, error) {
	base := fmt.Sprintf(`artist:"%s" AND recording:"%s"`, matching.EscapeLucene(artist), matching.EscapeLucene(title))

	var results []Recording
	seen := make(map[string]bool)
	add := func(recs []Recording) {
		for _, r := range recs {
			if !seen[r.MBID] {
				seen[r.MBID] = true
				results = append(results, r)
			}
		}
	}

	official := base + ` AND status:official AND (primarytype:single OR primarytype:album)` +
		` AND NOT secondarytype:live AND NOT secondarytype:compilation`

	for _, q := range []string{official, base} {
		recs, err := m.search(ctx, q)
		if err != nil {
			return nil, err
		}
		add(recs)
	}

	earliest := EarliestYear(results)
	if earliest > olderSearchCutoff {
		older := fmt.Sprintf("%s AND firstreleasedate:[1900 TO %d]", base, earliest-1)
		recs, err := m.search(ctx, older)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			m.logger.Debug("found older recordings", "count", len(recs), "before", earliest)
		}
		add(recs)
	}

	return results, nil
}

// EarliestYear returns the smallest known first-release year, or 0.
func EarliestYear(recs []Recording) int {
	earliest := 0
	for _, r := range recs {
		if r.FirstReleaseYear > 0 && (earliest == 0 || r.FirstReleaseYear < earliest) {
			earliest = r.FirstReleaseYear
		}
	}
	return earliest
}

// search runs one query, retrying any failure with exponential backoff.
// Exhausted retries are logged and yield an empty result.
func (m *MusicBrainzService) search(ctx context.Context, query string) ([]Recording, error) {
	params := url.Values{"query": {query}, "fmt": {"json"}, "limit": {"100"}}
	reqURL := m.baseURL + "/recording?" + params.Encode()

	attempt := 0
	op := func() ([]Recording, error) {
		attempt++
		recs, err := m.doRequest(ctx, reqURL)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return recs, err
	}
	notify := func(err error, delay time.Duration) {
		m.logger.Warn("retrying", "attempt", attempt, "of", maxRetries, "delay", delay, "err", err)
	}

	recs, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxTries(maxRetries),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return recs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.logger.Error("giving up after retries", "retries", maxRetries, "err", err)
	return nil, nil
}

func (m *MusicBrainzService) doRequest(ctx context.Context, reqURL string) ([]Recording, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: rate limited (503)", shared.ErrServiceUnavailable)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: musicbrainz returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body mbRecordingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	recs := make([]Recording, 0, len(body.Recordings))
	for _, r := range body.Recordings {
		var artist strings.Builder
		for _, c := range r.ArtistCredit {
			artist.WriteString(c.Name)
			artist.WriteString(c.JoinPhrase)
		}
		rec := Recording{
			MBID:             r.ID,
			Title:            r.Title,
			Artist:           artist.String(),
			FirstReleaseDate: r.FirstReleaseDate,
			Score:            r.Score,
		}
		if len(r.FirstReleaseDate) >= 4 {
			rec.FirstReleaseYear, _ = strconv.Atoi(r.FirstReleaseDate[:4])
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
