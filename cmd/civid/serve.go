package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/config"
	"git.sr.ht/~jakintosh/civid/internal/database"
	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/internal/ratelimit"
	"git.sr.ht/~jakintosh/civid/internal/resources"
	"git.sr.ht/~jakintosh/civid/internal/routing"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/internal/session"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

const shutdownTimeout = 10 * time.Second

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	metrics := observability.NewMetrics()
	svc, err := service.New(
		tokens.New([]byte(cfg.SigningKey)),
		db.IssuerStore(),
		cfg.BaseURL,
		service.PasswordModeProduction,
		time.Now,
		metrics,
	)
	if err != nil {
		return err
	}

	proxies, err := observability.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	templates, err := resources.NewTemplates(cfg.TemplatesDir, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := templates.Watch(ctx); err != nil {
		return fmt.Errorf("failed to start template watcher: %w", err)
	}

	router := routing.NewRouter(routing.Deps{
		Service:   svc,
		Sessions:  session.NewStore([]byte(cfg.SecretKey), cfg.SecureCookies, time.Now),
		Templates: templates,
		Metrics:   metrics,
		Limiter:   ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute),
		Proxies:   proxies,
		Logger:    logger,
		BotName:   cfg.BotName,
		Now:       time.Now,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("base_url", cfg.BaseURL),
		)
		errC <- server.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
