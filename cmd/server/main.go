package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/rtcbridge/internal/adapters/http"
	"github.com/dkeye/rtcbridge/internal/adapters/rtc"
	"github.com/dkeye/rtcbridge/internal/app"
	"github.com/dkeye/rtcbridge/internal/app/orch"
	"github.com/dkeye/rtcbridge/internal/config"
	"github.com/dkeye/rtcbridge/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	pionLevel, err := zerolog.ParseLevel(cfg.PionLogLevel)
	if err != nil {
		pionLevel = zerolog.WarnLevel
	}
	engine, err := rtc.NewEngine(rtc.NewLoggerFactory(pionLevel))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create webrtc engine")
	}

	servers := make([]domain.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		servers = append(servers, domain.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}

	reg := app.NewRegistry(engine,
		app.WithDefaultICEServers(servers),
		app.WithEventQueueSize(cfg.EventQueueSize),
	)
	o := orch.New(reg, app.SimplePolicy{MaxDropped: cfg.MaxDroppedFrames})

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("rtcbridge server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	o.Shutdown()
	log.Info().Msg("Server exited gracefully")
}
