package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/repositories"
	"github.com/desertthunder/songseeker/internal/services"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	plex       services.Library
	mb         services.RecordingSearcher
	downloader services.Downloader
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library, Recordings and Downloader are built from the config on demand when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.Library
	Recordings services.RecordingSearcher
	Downloader services.Downloader
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		plex:       opts.Library,
		mb:         opts.Recordings,
		downloader: opts.Downloader,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, plexCommand, mapCommand, mappingCommand, yearsCommand, gameCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the --config file unless a config path was injected. A missing file keeps the defaults.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" || r.configPath != "" {
		return ctx, nil
	}

	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configPath = path
	r.logger.Debug("loaded config", "path", path)
	return ctx, nil
}

// library returns the injected Plex library or builds one from flags and config.
func (r *Runner) library(cmd *cli.Command) (services.Library, error) {
	if r.plex != nil {
		return r.plex, nil
	}

	server, token, err := r.config.ResolvePlex(cmd.String("server"), cmd.String("token"))
	if err != nil {
		return nil, err
	}

	r.plex = services.NewPlexService(server, token, services.PlexOptions{
		Timeout:           r.config.Plex.Timeout(),
		RequestsPerSecond: r.config.Plex.RequestsPerSecond,
		Logger:            r.logger,
	})
	r.logger.Debug("using Plex server", "url", server)
	return r.plex, nil
}

func (r *Runner) recordings() services.RecordingSearcher {
	if r.mb == nil {
		mb := r.config.MusicBrainz
		r.mb = services.NewMusicBrainzService(services.MusicBrainzOptions{
			BaseURL:         mb.BaseURL,
			UserAgent:       mb.UserAgent,
			RequestInterval: mb.RequestInterval(),
			Logger:          r.logger,
		})
	}
	return r.mb
}

func (r *Runner) youtube(dir, cookies string) services.Downloader {
	if r.downloader != nil {
		return r.downloader
	}
	return services.NewYouTubeDownloader(services.YouTubeOptions{Dir: dir, Cookies: cookies, Logger: r.logger})
}

// engineOpts returns engine options over the Plex library; callers add the services they need.
func (r *Runner) engineOpts(cmd *cli.Command) (tasks.EngineOpts, error) {
	lib, err := r.library(cmd)
	if err != nil {
		return tasks.EngineOpts{}, err
	}
	return tasks.EngineOpts{Library: lib, Logger: r.logger, Now: r.now}, nil
}

// engine builds a [tasks.Engine] over the Plex library.
func (r *Runner) engine(cmd *cli.Command) (*tasks.Engine, error) {
	opts, err := r.engineOpts(cmd)
	if err != nil {
		return nil, err
	}
	return tasks.NewEngine(opts), nil
}

// openStore opens the match cache database. It returns nil repositories when the database is disabled.
func (r *Runner) openStore(ctx context.Context) (*sql.DB, *repositories.MatchRepository, *repositories.RunRepository, error) {
	if r.config.Database.Path == "" {
		return nil, nil, nil, nil
	}
	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open match cache: %w", err)
	}
	return db, repositories.NewMatchRepository(db), repositories.NewRunRepository(db), nil
}

// progress starts a printer for engine updates. Call the returned func to drain and stop it.
func (r *Runner) progress() (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.writePlain("%s\n", update.Message)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

// mappingPath resolves a mapping file name against the configured mappings directory.
func (r *Runner) mappingPath(name string) string {
	return shared.ResolvePath(r.config.Paths.MappingsDir, name)
}

func (r *Runner) loadMapping(name string) (string, models.Mapping, error) {
	if name == "" {
		return "", nil, fmt.Errorf("%w: mapping file", shared.ErrMissingArgument)
	}
	path := r.mappingPath(name)
	var m models.Mapping
	if err := shared.ReadJSONFile(path, &m); err != nil {
		return "", nil, err
	}
	if m == nil {
		m = models.Mapping{}
	}
	r.logger.Debug("loaded mapping", "path", path, "entries", len(m))
	return path, m, nil
}

func (r *Runner) saveMapping(path string, m models.Mapping) error {
	return shared.WriteJSONFile(path, m, 2)
}

// loadRemapper reads the remapper file; a missing file is an empty remapper.
func loadRemapper(path string) (models.Remapper, error) {
	var remapper models.Remapper
	if path == "" {
		return remapper, nil
	}
	err := shared.ReadJSONFile(path, &remapper)
	if errors.Is(err, shared.ErrFileNotFound) {
		return models.Remapper{}, nil
	}
	return remapper, err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	indent := 0
	if pretty {
		indent = 2
	}

	output, err := shared.MarshalJSON(data, indent)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
