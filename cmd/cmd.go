// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Plex server URL (default: from config)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Plex authentication token (default: from config)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the match cache database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recently applied migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create config.toml, optionally with Plex credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from Plex Web DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite Plex credentials in an existing config",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// plexCommand handles direct Plex server operations.
func plexCommand(r *Runner) *cli.Command {
	sectionFlag := &cli.StringFlag{
		Name:  "section",
		Usage: "Library section ID or title (default: the only section)",
	}

	return &cli.Command{
		Name:  "plex",
		Usage: "Plex server operations",
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Test the connection and show server name and version",
				Action: r.PlexInfo,
			},
			{
				Name:  "sections",
				Usage: "List library sections",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlexSections,
			},
			{
				Name:      "scan",
				Usage:     "Trigger a library scan, optionally limited to paths",
				ArgsUsage: "[path...]",
				Flags: []cli.Flag{
					sectionFlag,
					&cli.BoolFlag{Name: "force", Usage: "Force a full metadata refresh"},
				},
				Action: r.PlexScan,
			},
			{
				Name:  "watch",
				Usage: "Scan new downloads as they arrive",
				Flags: []cli.Flag{
					sectionFlag,
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Downloads directory to watch (default: paths.downloads_dir)",
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a directory is scanned",
						Value: 5 * time.Second,
					},
				},
				Action: r.PlexWatch,
			},
			{
				Name:      "track",
				Usage:     "Show a track by rating key",
				ArgsUsage: "<ratingKey>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlexTrack,
			},
			{
				Name:  "playlists",
				Usage: "List audio playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlexPlaylists,
			},
		},
	}
}

// mapCommand builds mappings from card decks.
func mapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Map card decks to Plex tracks",
		Commands: []*cli.Command{
			{
				Name:      "cards",
				Usage:     "Search Plex for every card of a CSV deck and write a mapping",
				ArgsUsage: "<cards.csv>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "csv"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output JSON file path (default: plex-mapping-{lang}_{timestamp}.json)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Only process the first N cards",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Ignore cached matches and search every card again",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Do not read or write the match cache",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent Plex searches",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:    "download",
						Aliases: []string{"D"},
						Usage:   "Download missing songs with yt-dlp",
					},
					&cli.StringFlag{
						Name:  "download-dir",
						Usage: "Directory for downloaded songs (default: paths.downloads_dir)",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "cookies.txt path or browser name (chrome, firefox, edge, safari, opera, brave)",
					},
					&cli.BoolFlag{
						Name:  "manifest",
						Usage: "Record the mapping and match rate in the manifest",
					},
				},
				Action: r.MapCards,
			},
			{
				Name:  "cache",
				Usage: "Inspect the match cache that map cards reads and writes",
				Commands: []*cli.Command{
					{
						Name:      "list",
						Usage:     "List the cached searches of a deck",
						ArgsUsage: "<cards.csv>",
						Arguments: []cli.Argument{&cli.StringArg{Name: "csv"}},
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
						},
						Action: r.CacheList,
					},
					{
						Name:      "clear",
						Usage:     "Forget the cached searches of a deck",
						ArgsUsage: "<cards.csv>",
						Arguments: []cli.Argument{&cli.StringArg{Name: "csv"}},
						Action:    r.CacheClear,
					},
					{
						Name:      "runs",
						Usage:     "Show recent map cards runs",
						ArgsUsage: "[cards.csv]",
						Arguments: []cli.Argument{&cli.StringArg{Name: "csv"}},
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:    "limit",
								Aliases: []string{"l"},
								Usage:   "Show at most N runs",
								Value:   10,
							},
						},
						Action: r.CacheRuns,
					},
				},
			},
		},
	}
}

// mappingCommand maintains existing mapping files.
func mappingCommand(r *Runner) *cli.Command {
	mappingArg := []cli.Argument{&cli.StringArg{Name: "mapping"}}

	return &cli.Command{
		Name:  "mapping",
		Usage: "Check, enrich and inspect mapping files",
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Verify every rating key still exists in Plex",
				ArgsUsage: "<mapping.json>",
				Arguments: mappingArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "fix",
						Aliases: []string{"f"},
						Usage:   "Set missing entries to null and rewrite the file",
					},
				},
				Action: r.MappingCheck,
			},
			{
				Name:      "enrich",
				Usage:     "Re-fetch metadata (guid, mbid) and apply the remapper",
				ArgsUsage: "<mapping.json>",
				Arguments: mappingArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "remapper",
						Usage: "Remapper file (default: paths.remapper)",
					},
				},
				Action: r.MappingEnrich,
			},
			{
				Name:      "missing",
				Usage:     "List mapped tracks that are not in a playlist",
				ArgsUsage: "<mapping.json>",
				Arguments: mappingArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Playlist name or rating key",
						Required: true,
					},
				},
				Action: r.MappingMissing,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a card code (plex:<key>, rating key or card ID)",
				ArgsUsage: "<mapping.json> <code>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "mapping"},
					&cli.StringArg{Name: "code"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.MappingResolve,
			},
			{
				Name:      "export",
				Usage:     "Print a mapping as a card list",
				ArgsUsage: "<mapping.json>",
				Arguments: mappingArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "csv, markdown or txt",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.MappingExport,
			},
		},
	}
}

// yearsCommand validates release years against MusicBrainz.
func yearsCommand(r *Runner) *cli.Command {
	checkFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.IntFlag{
				Name:    "tolerance",
				Aliases: []string{"t"},
				Usage:   "Allowed year difference (0 = exact match)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Limit number of tracks to check",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Only check tracks whose artist or title contains this text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: json or yaml (default: from the output extension)",
			},
		}
	}

	return &cli.Command{
		Name:  "years",
		Usage: "Validate release years against MusicBrainz",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Compare every mapped year with the earliest MusicBrainz release",
				ArgsUsage: "<mapping.json>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mapping"}},
				Flags:     checkFlags(),
				Action:    r.YearsValidate,
			},
			{
				Name:      "recheck",
				Usage:     "Validate only the tracks flagged in a previous report",
				ArgsUsage: "<report.json>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "report"}},
				Flags:     checkFlags(),
				Action:    r.YearsRecheck,
			},
			{
				Name:      "apply",
				Usage:     "Write report years into plex-date-remapper.json next to the report",
				ArgsUsage: "<report.json>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "report"}},
				Action:    r.YearsApply,
			},
		},
	}
}

// gameCommand creates and plays custom games.
func gameCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "game",
		Usage: "Custom games, printable cards and the terminal game",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Build a custom game from rating keys",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Game name for display (e.g. '80s Classics')",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "mapping",
						Aliases:  []string{"m"},
						Usage:    "Mapping identifier (e.g. '80s-classics')",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "keys",
						Aliases:  []string{"k"},
						Usage:    "Comma-separated rating keys or a file with one key per line",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Directory for the mapping JSON (default: paths.mappings_dir)",
					},
					&cli.StringFlag{
						Name:    "cards-pdf",
						Aliases: []string{"p"},
						Usage:   "Also write printable cards to this PDF",
					},
					&cli.StringFlag{
						Name:  "icon",
						Usage: "Path or URL of an icon drawn into the QR codes",
					},
				},
				Action: r.GameCreate,
			},
			{
				Name:      "cards",
				Usage:     "Print cards for an existing mapping",
				ArgsUsage: "<mapping.json>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mapping"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "PDF output path",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Game name printed on the cards (default: mapping file name)",
					},
					&cli.StringFlag{
						Name:  "icon",
						Usage: "Path or URL of an icon drawn into the QR codes",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the PDF when done",
					},
				},
				Action: r.GameCards,
			},
			{
				Name:      "play",
				Usage:     "Play a mapping as a terminal guessing game",
				ArgsUsage: "<mapping.json>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mapping"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "remapper",
						Usage: "Remapper file applied to years (default: paths.remapper)",
					},
				},
				Action: r.GamePlay,
			},
		},
	}
}

// serveCommand runs the auth server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the login server for the web front end",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default: server.host, $HOST)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default: server.port, $PORT)"},
			&cli.StringFlag{Name: "static", Usage: "Serve this directory behind the login"},
			&cli.StringFlag{Name: "htpasswd", Usage: "htpasswd file (default: server.htpasswd_file, $HTPASSWD_FILE)"},
			&cli.StringFlag{Name: "log-file", Usage: "Write rotated logs to this file"},
		},
		Action: r.Serve,
	}
}
