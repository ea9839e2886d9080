// Package main запускает HTTP-сервер панели владельца ParkeaYa.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/backend"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/config"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/handler"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/lock"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/repository"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/service"
)

func main() {
	// Файл .env необязателен.
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var journal service.Journal = repository.NewMemoryJournal()
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresJournal(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		journal = pg
		sugar.Info("action journal stored in postgres")
	}

	var locker service.Locker = lock.NewMemoryLocker()
	if cfg.RedisAddress != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, 2*cfg.RequestTimeout)
		sugar.Infow("busy flags shared through redis", "addr", cfg.RedisAddress)
	}

	client := backend.NewClient(cfg.BackendAPIAddress, cfg.RequestTimeout)

	svc := service.NewService(client, repository.NewMemoryStore(), locker, journal, logger)

	h := handler.NewHandler(svc, logger)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting owner panel server", "addr", cfg.RunAddress, "backend", cfg.BackendAPIAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	runErr := g.Wait()

	// Fatalw не выполняет отложенные вызовы, поэтому сервис закрывается явно.
	if err := svc.Close(); err != nil {
		sugar.Errorw("service close error", "error", err)
	}
	if runErr != nil {
		sugar.Fatalw("application terminated with error", "error", runErr)
	}
}
