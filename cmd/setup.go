package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/shared"
)

// SetupDatabase initializes the match cache database and runs migrations, or with
// --rollback reverts the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
		}
	}

	dbConfig := r.config.Database
	if dbConfig.Path == "" {
		return fmt.Errorf("%w: database.path is empty", shared.ErrMissingConfig)
	}

	r.logger.Info("initializing database", "path", dbConfig.Path)
	db, err := shared.NewDatabase(dbConfig.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, dbConfig.MaxOpenConns, dbConfig.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(ctx, db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back the latest migration of %s\n", dbConfig.Path)
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", dbConfig.Path)
	return nil
}

// SetupConfig writes config.toml from the template and optionally stores Plex credentials
// taken from a cURL command copied out of Plex Web.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var curl *shared.PlexCurl
	var err error
	switch {
	case curlFile != "":
		if curl, err = shared.ParseCurlFile(curlFile); err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	case curlCmd != "":
		if curl, err = shared.ParseCurlCommand([]byte(curlCmd)); err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if curl != nil && curl.Token == "" {
		return fmt.Errorf("%w: no X-Plex-Token in cURL command", shared.ErrMissingCredentials)
	}

	if !shared.FileExists(configPath) {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
	} else if curl == nil {
		r.writePlain("Config already exists at %s\n", configPath)
		return nil
	}

	if curl == nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set [plex] server_url and token in %s, or run with --curl-file\n", configPath)
		r.writePlain("2. Run 'songseeker plex info' to test the connection\n")
		return nil
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if config.Plex.Token != "" && config.Plex.Token != curl.Token && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already has a Plex token; pass --force to replace it", shared.ErrInvalidArgument, configPath)
	}

	config.Plex.ServerURL = curl.ServerURL
	config.Plex.Token = curl.Token
	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}
	r.config = config

	r.logger.Info("stored Plex credentials", "server", curl.ServerURL)
	r.writePlain("✓ Plex server %s saved to %s\n", curl.ServerURL, configPath)
	r.writePlain("Run 'songseeker plex info' to test the connection\n")
	return nil
}
