package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/server"
	"github.com/desertthunder/songseeker/internal/shared"
)

// Serve runs the auth server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := server.LoadConfig(r.config.Server)
	if err != nil {
		return err
	}

	if v := cmd.String("host"); v != "" {
		cfg.Host = v
	}
	if v := cmd.Int("port"); v > 0 {
		cfg.Port = v
	}
	if v := cmd.String("static"); v != "" {
		cfg.StaticDir = v
	}
	if v := cmd.String("htpasswd"); v != "" {
		cfg.HtpasswdFile = v
	}
	if v := cmd.String("log-file"); v != "" {
		cfg.LogFile = v
	}

	logger := r.logger
	if cfg.LogFile != "" {
		fileLogger, closer, err := shared.NewFileLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
		r.logger.Info("logging to file", "path", cfg.LogFile)
	}

	secret, err := server.LoadSecret(cfg.CookieSecretFile, logger)
	if err != nil {
		return err
	}

	auth := server.NewAuthenticator(cfg.HtpasswdFile, secret, logger)
	srv := server.New(cfg, auth, logger)
	r.logger.Info("auth server listening", "addr", srv.Addr(), "htpasswd", cfg.HtpasswdFile, "static", cfg.StaticDir)
	return srv.ListenAndServe(ctx)
}
