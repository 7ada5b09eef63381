package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"photo-search/application"
	"photo-search/config"
	"photo-search/infrastructure/embedding"
	"photo-search/infrastructure/httpapi"
	"photo-search/infrastructure/llm"
	"photo-search/infrastructure/logging"
	"photo-search/infrastructure/registry"
	"photo-search/infrastructure/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := vectorstore.NewQdrantStore(ctx, vectorstore.QdrantConfig{
		Addr:       cfg.Qdrant.Addr,
		Collection: cfg.Qdrant.Collection,
		Dimension:  cfg.Qdrant.Dimension,
		Distance:   cfg.Qdrant.Distance,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to vector store")
	}

	embedder := embedding.NewClipGateway(embedding.GatewayConfig{
		BaseURL: cfg.Clip.BaseURL,
		APIKey:  cfg.Clip.APIKey,
		Model:   cfg.Clip.Model,
		Timeout: cfg.Clip.Timeout,
	})

	// Without an API key the service still answers, it just plans every
	// request deterministically and skips summaries.
	var planner *llm.AnthropicPlanner
	if cfg.Anthropic.APIKey != "" {
		planner, err = llm.NewAnthropicPlanner(llm.Config{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create planner")
		}
	} else {
		log.Warn().Msg("no anthropic api key set, planner disabled")
	}

	statusRegistry, err := registry.NewRedisRegistry(ctx, registry.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer statusRegistry.Close()

	tools := application.NewSearchTools(embedder, store)
	var search *application.SearchService
	if planner != nil {
		search = application.NewSearchService(tools, planner)
	} else {
		search = application.NewSearchService(tools, nil)
	}
	status := application.NewIngestStatusService(store, statusRegistry)

	server := httpapi.NewServer(search, status, cfg.API.MaxImageSize)
	httpServer := &http.Server{
		Addr:    ":" + cfg.API.Port,
		Handler: server.Router(),
	}

	go func() {
		log.Info().Str("port", cfg.API.Port).Msg("search api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
