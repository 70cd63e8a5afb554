package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("rfidgame stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("app environment", "env", cfg.AppEnv, "driver", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Database
	store, err := openStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MaxOpenConns)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database ready", "driver", cfg.DatabaseDriver)

	if cfg.SeedFile != "" {
		teams, err := loadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		ran, err := store.withStartupLock(ctx, func() error {
			created, err := seedTeams(ctx, store, teams, logger)
			logger.Info("seed complete", "file", cfg.SeedFile, "created", created)
			return err
		})
		if err != nil {
			return err
		}
		if !ran {
			logger.Info("startup lock held by another instance; skipping seed")
		}
	}

	// Scoring
	rules := NewRuleConfig(NewFileRuleStore(cfg.RuleConfigFile), logger)
	bus := NewLiveEventBus(logger)
	engine := NewEngine(store, rules, bus, logger, EngineOptions{
		ExitMarker:     cfg.ExitMarker,
		ExitRevalidate: cfg.ExitRevalidate,
	})

	allow, err := newReaderAllowlist(cfg.ReaderAllowlist)
	if err != nil {
		return err
	}
	if cfg.AdminKey == "" {
		logger.Warn("GAMELITE_ADMIN_KEY is not set; admin routes will answer 403")
	}

	srv := &server{
		cfg:     cfg,
		store:   store,
		rules:   rules,
		bus:     bus,
		engine:  engine,
		allow:   allow,
		limiter: newAttemptLimiter(cfg.AdminRateLimit, cfg.AdminRateWindow),
		logger:  logger,
	}

	// HTTP server
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
