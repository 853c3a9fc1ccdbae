package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/diewo77/facturas/internal/config"
	"github.com/diewo77/facturas/internal/db"
	"github.com/diewo77/facturas/internal/pdf"
	"github.com/diewo77/facturas/internal/server"
	"github.com/diewo77/facturas/internal/services"
	"github.com/diewo77/facturas/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := newLogger(cfg.Env)

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	st := store.NewGorm(dbConn)

	renderer, err := pdf.NewGenerator(cfg.DocumentDir)
	if err != nil {
		log.Fatal().Err(err).Msg("document directory setup failed")
	}
	svc := services.NewInvoiceService(st, renderer, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(st, svc, cfg.DocumentDir, log),
	}

	go func() {
		log.Info().Str("env", cfg.Env).Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
