package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/config"
	"github.com/ayush/skillpath/backend/internal/logging"
	"github.com/ayush/skillpath/backend/internal/paths"
	"github.com/ayush/skillpath/backend/internal/server"
	"github.com/ayush/skillpath/backend/internal/store"
)

func main() {
	ctx := context.Background()
	boot := logging.NewJSON(os.Stderr, "info")

	cfg, err := config.Load()
	if err != nil {
		boot.Error(ctx, "load config", "error", err)
		os.Exit(1)
	}
	log := logging.NewJSON(os.Stderr, cfg.LogLevel)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	// ── Sessions ─────────────────────────────────────────────
	sessions, closeSessions, err := store.OpenSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	// ── Storage ──────────────────────────────────────────────
	st, err := store.Open(ctx, cfg, sessions)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info(ctx, "storage ready", "driver", cfg.StorageDriver, "sessions", cfg.SessionBackend)

	// ── MinIO archive (optional) ─────────────────────────────
	var archive paths.Archive
	if cfg.ArchiveEnabled() {
		a, err := store.NewMinioArchive(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return err
		}
		archive = a
		log.Info(ctx, "archive enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	// ── Generator ────────────────────────────────────────────
	if cfg.OpenAIAPIKey == "" {
		log.Warn(ctx, "OPENAI_API_KEY is empty, generation will fail against hosted APIs")
	}
	gen := paths.NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.GenerateTimeout)

	// ── Router ───────────────────────────────────────────────
	handler := server.NewRouter(server.Deps{
		Storage:        st,
		Cookies:        auth.NewCookieCodec(cfg.SessionSecret, cfg.SessionTTL),
		Generator:      gen,
		Archive:        archive,
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      true,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info(ctx, "shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
