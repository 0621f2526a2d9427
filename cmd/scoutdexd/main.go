// Command scoutdexd runs the startup scout service: it keeps the record
// corpus synced and embedded on a timer and serves search and question
// answering over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	openai "github.com/sashabaranov/go-openai"

	"github.com/scoutdex/scoutdex"
	"github.com/scoutdex/scoutdex/blobstore"
	miniostore "github.com/scoutdex/scoutdex/blobstore/minio"
	"github.com/scoutdex/scoutdex/capability"
	"github.com/scoutdex/scoutdex/compress"
	"github.com/scoutdex/scoutdex/httpapi"
	"github.com/scoutdex/scoutdex/snapshot"
	"github.com/scoutdex/scoutdex/source"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "scoutdexd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Env)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return err
	}
	comp, ok := compress.ByName(cfg.Storage.Compression)
	if !ok {
		return fmt.Errorf("unknown compression %q", cfg.Storage.Compression)
	}
	store := snapshot.NewStore(blobs, snapshot.WithCompressor(comp))

	ai := capability.NewOpenAI(cfg.OpenAI.APIKey, func(o *capability.OpenAIOptions) {
		if cfg.OpenAI.EmbeddingModel != "" {
			o.EmbeddingModel = openai.EmbeddingModel(cfg.OpenAI.EmbeddingModel)
		}
		if cfg.OpenAI.ChatModel != "" {
			o.ChatModel = cfg.OpenAI.ChatModel
		}
		if cfg.OpenAI.RequestsPerSecond > 0 {
			o.RequestsPerSecond = cfg.OpenAI.RequestsPerSecond
		}
	})

	var engineOpts []scoutdex.Option
	engineOpts = append(engineOpts, scoutdex.WithLogger(scoutdex.NewLogger(logger.Handler())))
	if cfg.Search.TopK > 0 {
		engineOpts = append(engineOpts, scoutdex.WithTopK(cfg.Search.TopK))
	}
	if cfg.Search.PromptBudget > 0 {
		engineOpts = append(engineOpts, scoutdex.WithPromptBudget(cfg.Search.PromptBudget))
	}

	eng, err := scoutdex.New(ai, ai, store, engineOpts...)
	if err != nil {
		return err
	}

	fetcher := newFetcher(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// First sync up front so the service is ready (or we know why not)
	// before traffic arrives. A cold failure is not fatal: the loop and
	// the sync endpoint keep retrying.
	if _, err := eng.Sync(ctx, fetcher); err != nil {
		logger.Error("initial sync failed", "error", err)
	}

	go syncLoop(ctx, eng, fetcher, time.Duration(cfg.Sync.Interval), logger)

	srv := httpapi.NewServer(eng, fetcher, func(o *httpapi.Options) {
		o.Logger = logger
		o.AllowedOrigins = cfg.HTTP.AllowedOrigins
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout))
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(env string) *slog.Logger {
	if env == "dev" || env == "local" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newBlobStore(cfg *Config) (blobstore.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "local":
		return blobstore.NewLocalStore(cfg.Storage.Path)
	case "minio":
		client, err := minio.New(cfg.Storage.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.Minio.AccessKey, cfg.Storage.Minio.SecretKey, ""),
			Secure: cfg.Storage.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, cfg.Storage.Minio.Bucket, cfg.Storage.Minio.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newFetcher builds the fallback chain: dataset file first when configured,
// then the built-in sample corpus so a fresh install always has data.
func newFetcher(cfg *Config, logger *slog.Logger) source.Fetcher {
	var fetchers []source.Fetcher
	if cfg.Sync.DataFile != "" {
		fetchers = append(fetchers, source.NewFileSource(cfg.Sync.DataFile))
	}
	fetchers = append(fetchers, source.NewSampleSource())
	return source.NewChain(logger, fetchers...)
}

func syncLoop(ctx context.Context, eng *scoutdex.Engine, fetcher source.Fetcher, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.Sync(ctx, fetcher); err != nil {
				logger.Error("scheduled sync failed", "error", err)
			}
		}
	}
}
