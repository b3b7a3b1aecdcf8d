package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/config"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/handler"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/handler/voice"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/ai"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	configureLogging(cfg.Log)

	companion := persona.Companion()

	backend, err := ai.NewBackend(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn("no generation backend configured, set ARK_API_KEY + Model or GEMINI_API_KEY; transcripts will be answered with an error")
		backend = nil
	case err != nil:
		log.Warnf("failed to initialize generation backend: %v", err)
		log.Warn("continuing without AI functionality")
		backend = nil
	default:
		log.Println("AI service initialized successfully")
	}

	aiService := ai.NewService(backend, ai.NewPromptComposer(companion), ai.Options{
		Timeout:        cfg.AI.Timeout,
		MaxRetries:     cfg.AI.MaxRetries,
		RetryBaseDelay: cfg.AI.RetryBaseDelay,
	})

	registry := chat.NewRegistry(cfg.Voice.HistoryLimit)

	router := handler.NewRouter(handler.Deps{
		Persona:   companion,
		Registry:  registry,
		Replier:   aiService,
		AIEnabled: aiService.Enabled(),
		Voice: voice.HandlerOptions{
			Session: voice.Options{
				CueDelay:         cfg.Voice.CueDelay,
				SignalFrameBytes: cfg.Voice.SignalFrameBytes,
				InboxSize:        cfg.Voice.InboxSize,
			},
			MaxMessageBytes: cfg.Voice.MaxMessageBytes,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
		},
	})

	startServer(ctx, cfg.Server, router, registry)
}

func configureLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, registry *chat.Registry) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voice companion listening on %s", addr)
	if err := runServer(ctx, srv, registry, serverCfg.ShutdownTimeout); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server, registry *chat.Registry, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)

		// Hijacked WebSocket connections are not tracked by Shutdown.
		if n := registry.CloseAll(); n > 0 {
			log.Printf("closing %d voice sessions", n)
		}
		if !registry.Wait(shutdownCtx) {
			log.Warnf("%d voice sessions still open at shutdown deadline", registry.Count())
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
