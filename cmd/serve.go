package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/fintx/internal/seed"
	"github.com/desertthunder/fintx/internal/server"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/desertthunder/fintx/internal/storage"
	"github.com/urfave/cli/v3"
)

const apiBasePath = "/api"

// Serve runs the mock backend over local storage until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	store, closeStore, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if cmd.Bool("seed") {
		result, err := seed.Seed(store, false)
		if err != nil {
			return err
		}
		r.logger.Info("seeded storage", "written", result.Written, "skipped", result.Skipped)
	}

	if cfg.JWTSecret == "" {
		r.logger.Warn("server.jwt_secret is empty, bearer auth disabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, cfg.Addr(), r.newHandler(store), r.logger)
}

// newHandler mounts the backend under [apiBasePath]. The health route is registered before auth is added.
func (r *Runner) newHandler(store *storage.Adapter) http.Handler {
	logger := shared.WithLogger(r.logger, "component", "server")

	router := server.NewBasicRouter()
	router.Use(server.Logging(logger))
	router.Handle(http.MethodGet, apiBasePath+"/health", http.HandlerFunc(health))

	router.Use(server.BearerAuth(r.config.Server.JWTSecret))
	router.Handler(server.NewBackend(store, server.BackendOpts{BasePath: apiBasePath, Logger: logger}))
	logger.Debug("routes mounted", "routes", router.Routes())
	return router
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Token prints a bearer token signed with the configured server secret.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	token, err := server.IssueToken(r.config.Server.JWTSecret, cmd.String("subject"), cmd.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	return r.writePlain("%s\n", token)
}
