package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	pg "pet-health-api/internal/adapters/storage/postgres"
	"pet-health-api/internal/config"
	"pet-health-api/internal/platform/logger"
	"pet-health-api/internal/router"
)

// @title Pet Health API
// @version 1.0
// @description Mascotas, registros médicos y acceso compartido con veterinarios.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer {token}
func main() {
	defaultPath := os.Getenv("PET_HEALTH_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to YAML config (optional)")
	flag.Parse()

	// Hasta tener config, se loguea según env.
	bootLog := logger.NewFromEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error("loading config", map[string]any{"error": err, "path": *configPath})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: logger.ParseFormat(cfg.Logging.Format),
		App:    cfg.Logging.App,
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", map[string]any{"error": err})
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := router.Options{
		Logger:         log,
		Auth:           cfg.Auth,
		BootstrapAdmin: cfg.BootstrapAdmin,
	}

	if cfg.Database.DSN != "" {
		db, err := pg.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := pg.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied", nil)
		}
		opts.DB = db
		log.Info("using postgres store", nil)
	} else {
		log.Warn("database.dsn not set, using in-memory store", nil)
	}

	h, err := router.NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
