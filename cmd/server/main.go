package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/satoru2478-wq/v-calls/internal/adapters/http"
	sig "github.com/satoru2478-wq/v-calls/internal/adapters/signal"
	"github.com/satoru2478-wq/v-calls/internal/app"
	"github.com/satoru2478-wq/v-calls/internal/config"
	"github.com/satoru2478-wq/v-calls/internal/core"
	"github.com/satoru2478-wq/v-calls/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the global logger early so config.Load can use it.
	logging.Init("info")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	policy, err := app.ParsePolicy(cfg.Backpressure)
	if err != nil {
		log.Error().Err(err).Msg("bad backpressure policy")
		os.Exit(1)
	}
	hub := core.NewHub()
	relay := app.NewRelay(hub, policy)
	ctl := sig.NewSignalWSController(relay, sig.ControllerOptions{
		Options: sig.Options{
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			PongWait:   cfg.PongWait,
			SendBuffer: cfg.SendBuffer,
		},
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
	})

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("v-calls relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Int("connections", hub.Count()).Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
