package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimasrn/policy-desk/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// sandbox is a stand-in WhatsApp channel for local runs and load tests.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(argContainsEnvPath()); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().
		Str("addr", cfg.SandboxListenAddr).
		Float64("fail_rate", cfg.SandboxFailRate).
		Bool("auth", cfg.WhatsAppToken != "").
		Msg("starting whatsapp sandbox")

	srv := &http.Server{
		Addr:         cfg.SandboxListenAddr,
		Handler:      SetupRouter(NewChannel(cfg.WhatsAppToken, cfg.SandboxFailRate)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down sandbox")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("sandbox forced to shutdown")
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			return strings.TrimPrefix(v, "--env=")
		}
	}
	return ""
}
