package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theleywin/lostnfound-backend/src/auth"
	"github.com/theleywin/lostnfound-backend/src/config"
	"github.com/theleywin/lostnfound-backend/src/controllers"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/middleware"
	"github.com/theleywin/lostnfound-backend/src/notify"
	"github.com/theleywin/lostnfound-backend/src/routes"
	"github.com/theleywin/lostnfound-backend/src/services"
	"github.com/theleywin/lostnfound-backend/src/storage"
	"github.com/theleywin/lostnfound-backend/src/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "lostnfound:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := lib.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repos  store.Repositories
		pinger controllers.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using the in-memory store, data is lost on exit")
		repos = store.NewMemory().Repositories()
	default:
		db, err := lib.ConnectDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := db.Close(closeCtx); err != nil {
				logger.Error("closing database", "error", err)
			}
		}()
		if err := store.EnsureIndexes(ctx, db.Database); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
		repos = store.NewMongoRepositories(db.Database)
		pinger = db
	}

	images, uploadsDir, err := imageStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(notify.Options{
		Workers:    cfg.Notifications.Workers,
		QueueSize:  cfg.Notifications.QueueSize,
		MaxRetries: uint64(cfg.Notifications.MaxRetries),
		Backoff:    cfg.Notifications.Backoff,
	}, logger.With("component", "notify"))

	tokens := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	items := services.NewItemService(services.ItemServiceDeps{
		Repos:         repos,
		Images:        images,
		Notifier:      dispatcher,
		Logger:        logger,
		MaxImageBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})

	app := routes.NewApp(routes.AppOptions{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		UploadsDir:     uploadsDir,
	}, routes.Handlers{
		Guard:         middleware.NewGuard(tokens, repos.Users, logger),
		Users:         controllers.NewUserController(services.NewUserService(repos.Users, hasher, tokens)),
		Items:         controllers.NewItemController(items),
		Notifications: controllers.NewNotificationController(services.NewNotificationService(repos.Notifications)),
		Health:        controllers.NewHealthController(pinger),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		listenErr <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("stopping server", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("stopping notification workers", "error", err)
	} else if err != nil {
		logger.Warn("notification tasks abandoned at shutdown")
	}
	return nil
}

// imageStore picks the configured image backend. Disk storage also returns
// the directory served under /uploads.
func imageStore(ctx context.Context, cfg config.StorageConfig) (storage.ImageStore, string, error) {
	switch cfg.Driver {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("configuring s3 storage: %w", err)
		}
		return s3Store, "", nil
	default:
		disk, err := storage.NewDiskStore(cfg.Disk.Dir)
		if err != nil {
			return nil, "", fmt.Errorf("preparing upload directory: %w", err)
		}
		return disk, disk.Dir(), nil
	}
}
