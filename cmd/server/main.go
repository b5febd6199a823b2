package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vista/internal/api"
	"vista/internal/config"
	"vista/internal/datasource"
	"vista/internal/registry"
	"vista/internal/view"
)

func setupLogger(c config.Log) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// loadCatalog читает виды и отказывается стартовать с блокирующими проблемами.
func loadCatalog(cfg config.Config) (view.Catalog, error) {
	cat, err := view.LoadCatalog(cfg.ViewsDir, cfg.FiltersDir)
	if err != nil {
		return cat, err
	}
	for _, it := range cat.Issues {
		ev := log.Warn()
		if it.Blocking {
			ev = log.Error()
		}
		ev.Str("view", it.View).Str("column", it.Column).Str("code", it.Code).Msg(it.Message)
	}
	for _, id := range cat.Orphans {
		log.Warn().Str("view", id).Msg("filters for unknown view ignored")
	}
	if b := cat.Blocking(); len(b) > 0 {
		return cat, fmt.Errorf("view catalog has %d blocking issues", len(b))
	}
	return cat, nil
}

// openSource возвращает источник данных и функцию закрытия.
func openSource(ctx context.Context, cfg config.Data) (datasource.Source, func(), error) {
	logger := log.With().Str("component", "datasource").Logger()
	if cfg.Driver == "memory" {
		m := datasource.NewMemory(logger)
		if cfg.Fixtures != "" {
			if err := m.LoadFixtures(cfg.Fixtures); err != nil {
				return nil, nil, err
			}
		}
		return m, func() {}, nil
	}

	db, dialect, err := datasource.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Scripts != "" {
		scripts, err := datasource.ReadScripts(cfg.Scripts)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := datasource.ApplyScripts(ctx, db, scripts, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	logger.Info().Str("driver", cfg.Driver).Str("dialect", dialect.Name).Msg("sql source ready")
	return datasource.NewSQL(db, dialect, logger), func() { _ = db.Close() }, nil
}

// openRegistry: memory держит каталог в процессе, redis/miniredis дают общий хэш и pub/sub.
func openRegistry(ctx context.Context, cfg config.Registry, cat view.Catalog) (registry.Registry, func(), error) {
	if cfg.Driver == "memory" {
		return registry.NewMemory(cat.Views), func() {}, nil
	}

	logger := log.With().Str("component", "registry").Logger()
	var mini *miniredis.Miniredis
	addr := cfg.Addr
	if cfg.Driver == "miniredis" {
		var err error
		if mini, err = miniredis.Run(); err != nil {
			return nil, nil, fmt.Errorf("miniredis: %w", err)
		}
		addr = mini.Addr()
		logger.Warn().Str("addr", addr).Msg("dev: in-process miniredis started")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	closeAll := func() {
		_ = rdb.Close()
		if mini != nil {
			mini.Close()
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	r := registry.NewRedis(rdb, cfg.Key, logger)
	if err := r.Seed(ctx, cat.Views); err != nil {
		closeAll()
		return nil, nil, err
	}
	if err := r.Watch(ctx); err != nil {
		closeAll()
		return nil, nil, err
	}
	return r, closeAll, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Каталог видов и пресеты фильтров
	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("views", cfg.ViewsDir).Msg("view catalog load failed")
	}
	log.Info().Int("views", len(cat.Views)).Msg("view catalog loaded")

	// 2. Источник данных
	src, closeSrc, err := openSource(ctx, cfg.Data)
	if err != nil {
		log.Fatal().Err(err).Msg("data source setup failed")
	}
	defer closeSrc()

	// 3. Реестр видов
	reg, closeReg, err := openRegistry(ctx, cfg.Registry, cat)
	if err != nil {
		log.Fatal().Err(err).Msg("registry setup failed")
	}
	defer closeReg()

	// 4. HTTP
	srv := api.NewServer(api.Deps{
		Registry:        reg,
		Source:          src,
		Logger:          log.Logger,
		Catalog:         func() (view.Catalog, error) { return view.LoadCatalog(cfg.ViewsDir, cfg.FiltersDir) },
		Limit:           cfg.DefaultLimit,
		MinDisplay:      cfg.LoadingMinDisplay,
		ConfirmationTTL: cfg.ConfirmationTTL,
		Metrics:         cfg.Metrics,
	})
	go srv.WatchRegistry(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Str("data", cfg.Data.Driver).
			Str("registry", cfg.Registry.Driver).Msg("vista started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}
