package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"photo-search/application"
	"photo-search/config"
	"photo-search/infrastructure/embedding"
	"photo-search/infrastructure/logging"
	"photo-search/infrastructure/objectstore"
	"photo-search/infrastructure/queue"
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

	objects, err := objectstore.NewMinioStore(objectstore.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object storage")
	}

	ingestQueue, err := queue.NewKafkaQueue(queue.Config{
		Brokers:         cfg.Kafka.Brokers,
		Topic:           cfg.Kafka.Topic,
		DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		GroupID:         cfg.Kafka.GroupID,
		ClientID:        cfg.Kafka.ClientID,
		PollTimeoutMs:   cfg.Worker.PollTimeoutMs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kafka")
	}
	defer func() {
		if err := ingestQueue.Close(); err != nil {
			log.Error().Err(err).Msg("error closing queue")
		}
	}()

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

	embedder := embedding.NewClipGateway(embedding.GatewayConfig{
		BaseURL: cfg.Clip.BaseURL,
		APIKey:  cfg.Clip.APIKey,
		Model:   cfg.Clip.Model,
		Timeout: cfg.Clip.Timeout,
	})

	worker := application.NewIngestionWorker(
		ingestQueue,
		objects,
		embedder,
		store,
		statusRegistry,
		application.RetryPolicy{
			MaxAttempts: cfg.Worker.MaxAttempts,
			BaseDelay:   cfg.Worker.BaseDelay,
			MaxDelay:    cfg.Worker.MaxDelay,
		},
		cfg.Worker.StepTimeout,
	)

	log.Info().Int("slots", cfg.Worker.Slots).Str("topic", cfg.Kafka.Topic).
		Msg("starting ingestion worker")
	worker.Run(ctx, cfg.Worker.Slots)
	log.Info().Msg("ingestion worker stopped")
}
