package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/khata-app/khata/cmd/khata/cli"
	"github.com/khata-app/khata/internal/app"
	"github.com/khata-app/khata/internal/observability"
	"github.com/khata-app/khata/internal/platform/cache"
	"github.com/khata-app/khata/internal/platform/db"
	"github.com/khata-app/khata/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cmd, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, cli.Usage)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd.Name {
	case cli.CmdMigrate:
		err = runMigrate(cfg, logger, cmd.Args[0])
	case cli.CmdUserAdd:
		err = runUserAdd(ctx, cfg, cmd.Args[0], cmd.Args[1])
	case cli.CmdJobs:
		err = runJobs(ctx, cfg, cmd.Args)
	default:
		err = serve(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error(cmd.Name, slog.Any("error", err))
		os.Exit(1)
	}
}

func runMigrate(cfg *app.Config, logger *slog.Logger, direction string) error {
	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("migrator close", slog.Any("error", err))
		}
	}()
	switch direction {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	default:
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}
}

func runUserAdd(ctx context.Context, cfg *app.Config, email, password string) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	services := app.NewServices(cfg, pool, nil)
	id, err := services.Auth.Register(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("created user %d\n", id)
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = c.Close() }()

	if args[0] == "stats" {
		stats, err := c.InspectQueue()
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	}
	asOf := ""
	if len(args) > 2 {
		asOf = args[2]
	}
	info, err := c.Trigger(ctx, args[1], asOf)
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	return nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := runMigrate(cfg, logger, "up"); err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	services := app.NewServices(cfg, pool, redisClient)
	params := services.Handlers(logger)
	params.Config = cfg
	params.Metrics = observability.NewMetrics()
	params.JobHandler = jobs.NewHandler(inspector, logger)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewRouter(params),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
