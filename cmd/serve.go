package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/inkvoice/inkvoice/db"
	"github.com/inkvoice/inkvoice/internal/config"
	"github.com/inkvoice/inkvoice/internal/convo"
	"github.com/inkvoice/inkvoice/internal/embed"
	"github.com/inkvoice/inkvoice/internal/generate"
	"github.com/inkvoice/inkvoice/internal/ingest"
	"github.com/inkvoice/inkvoice/internal/postgres"
	"github.com/inkvoice/inkvoice/internal/provider"
	"github.com/inkvoice/inkvoice/internal/style"
	"github.com/inkvoice/inkvoice/internal/web"
)

// Server timeout configuration. WriteTimeout stays generous because
// SSE generations can run for minutes.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute
	httpIdleTimeout   = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}
	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}

	styleStore := style.NewStore(pool, cfg.VectorDimension, logger)
	convoStore := convo.NewPostgres(pool, logger)
	retriever := style.NewRetriever(embedder, styleStore, cfg.RetrievalTopK, logger)
	uploads := ingest.NewService(styleStore, styleStore, embedder, logger)
	uploads.SetChunking(cfg.ChunkSize, cfg.ChunkOverlap)

	orch := generate.New(convoStore, styleStore, registry, logger,
		generate.WithRetriever(retriever))

	server, err := web.NewServer(web.ServerConfig{
		Logger:       logger,
		Orchestrator: orch,
		Store:        convoStore,
		Profiles:     styleStore,
		Uploads:      uploads,
		Pinger:       pool,
		DefaultOwner: cfg.DefaultOwner,
		RateLimit:    rate.Limit(cfg.RateLimitPerSec),
		RateBurst:    cfg.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ListenAddr,
		"models", registry.Models(),
		"embedder", embedder.Name(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// buildRegistry creates one adapter per configured provider and
// registers every model route from the configuration against it.
func buildRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	adapters := map[string]provider.Provider{}

	adapterFor := func(name string) (provider.Provider, error) {
		if p, ok := adapters[name]; ok {
			return p, nil
		}
		var (
			p   provider.Provider
			err error
		)
		switch name {
		case config.ProviderGemini:
			key := os.Getenv("GEMINI_API_KEY")
			if key == "" {
				return nil, errors.New("GEMINI_API_KEY is not set")
			}
			p, err = provider.NewGemini(ctx, key)
		case config.ProviderOpenAI:
			key := os.Getenv("OPENAI_API_KEY")
			if key == "" {
				return nil, errors.New("OPENAI_API_KEY is not set")
			}
			p = provider.NewOpenAI(key, "")
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			return nil, err
		}
		adapters[name] = p
		return p, nil
	}

	for modelID, providerName := range cfg.Models {
		p, err := adapterFor(providerName)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", modelID, err)
		}
		registry.Register(modelID, p)
	}
	return registry, nil
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	switch cfg.EmbedderProvider {
	case config.ProviderGemini:
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, errors.New("GEMINI_API_KEY is not set")
		}
		return embed.NewGemini(ctx, key, cfg.EmbedderModel, cfg.VectorDimension)
	case config.ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return embed.NewOpenAI(key, cfg.EmbedderModel, "", cfg.VectorDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.EmbedderProvider)
	}
}
