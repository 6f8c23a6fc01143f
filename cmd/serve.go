package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/betterd/internal/repositories"
	"github.com/desertthunder/betterd/internal/server"
	"github.com/desertthunder/betterd/internal/services"
	"github.com/desertthunder/betterd/internal/shared"
	"github.com/desertthunder/betterd/internal/tasks"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the betterd web application",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the app in the default browser once the server is up",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the full application and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	svc, err := services.NewSpotifyService(config.Spotify)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	stores := repositories.NewStores(db)
	auth := services.NewAuthenticator(svc, stores.Tokens, r.logger)
	registry := tasks.NewRegistry()
	engine := tasks.NewShuffleEngine(svc, auth, services.NewCoverFetcher(), r.logger)

	router := server.NewRouter(
		server.NewAuthHandler(svc, auth, stores, config, r.logger),
		server.NewAPIHandler(svc, auth, registry, engine, r.logger),
		server.NewPageHandler(),
		stores,
		r.logger,
	)

	srv := server.New(config.Addr(), router, stores, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		r.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("shutdown failed", "error", err)
		}
	}()

	appURL := fmt.Sprintf("http://%s", config.Addr())
	if cmd.Bool("open") {
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenBrowser(appURL); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}()
	}

	r.writePlain("betterd running at %s\n", appURL)
	return srv.Start()
}
