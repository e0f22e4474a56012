package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/services"
	"github.com/desertthunder/songseeker/internal/shared"
)

// MatchCache persists card search results between mapper runs.
type MatchCache interface {
	Lookup(ctx context.Context, source, cardID string) (*models.CardMatch, error)
	Save(ctx context.Context, m *models.CardMatch) error
}

// RunRecorder stores mapper run statistics.
type RunRecorder interface {
	Create(ctx context.Context, run *models.MappingRun) error
	Finish(ctx context.Context, run *models.MappingRun) error
}

// EngineOpts holds the dependencies of an [Engine]. Only Library is required for most operations.
type EngineOpts struct {
	Library    services.Library
	Recordings services.RecordingSearcher
	Downloader services.Downloader
	Cache      MatchCache
	Runs       RunRecorder
	Logger     *log.Logger
	Now        func() time.Time
}

// Engine orchestrates mapping operations over its services.
type Engine struct {
	plex       services.Library
	mb         services.RecordingSearcher
	downloader services.Downloader
	cache      MatchCache
	runs       RunRecorder
	logger     *log.Logger
	now        func() time.Time
}

// NewEngine creates an [Engine] from opts.
func NewEngine(opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		plex:       opts.Library,
		mb:         opts.Recordings,
		downloader: opts.Downloader,
		cache:      opts.Cache,
		runs:       opts.Runs,
		logger:     logger,
		now:        now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) requireLibrary() error {
	if e.plex == nil {
		return fmt.Errorf("%w: Plex service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// TestConnection fetches server info, then runs a throwaway search.
// A failing search is only logged.
func (e *Engine) TestConnection(ctx context.Context, progress chan<- ProgressUpdate) (*models.ServerInfo, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, connectionUpdate("Testing Plex connection..."))
	info, err := e.plex.ServerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	e.sendProgress(progress, connectionUpdate(fmt.Sprintf("Connected to %s (version %s)", info.FriendlyName, info.Version)))

	if _, err := e.plex.Search(ctx, "test"); err != nil {
		e.logger.Warn("test search failed", "error", err)
	}
	return info, nil
}
