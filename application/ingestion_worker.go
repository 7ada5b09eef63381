package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"photo-search/domain"
)

// RetryPolicy controls how the worker retries transient failures: exponential
// backoff with full jitter, bounded by MaxAttempts. These are operational
// tuning parameters, not structural ones.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is 5 attempts with exponential backoff between 500ms and
// 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// delay returns the jittered backoff delay before the given retry (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt-1)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// IngestionWorker consumes queue messages referencing newly uploaded photos
// and drives each through Received → Downloading → Embedding → Upserting →
// Acked, or dead-letters it after exhausting the retry budget. Parallelism
// comes from running multiple slots; each slot owns one message at a time.
type IngestionWorker struct {
	queue    domain.IngestionQueue
	objects  domain.ObjectStore
	embedder domain.EmbeddingClient
	store    domain.VectorStore
	registry domain.StatusRegistry

	policy      RetryPolicy
	stepTimeout time.Duration
}

// NewIngestionWorker creates a worker. registry may be nil, in which case
// status bookkeeping is skipped.
func NewIngestionWorker(
	queue domain.IngestionQueue,
	objects domain.ObjectStore,
	embedder domain.EmbeddingClient,
	store domain.VectorStore,
	registry domain.StatusRegistry,
	policy RetryPolicy,
	stepTimeout time.Duration,
) *IngestionWorker {
	if stepTimeout <= 0 {
		stepTimeout = 30 * time.Second
	}
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	return &IngestionWorker{
		queue:       queue,
		objects:     objects,
		embedder:    embedder,
		store:       store,
		registry:    registry,
		policy:      policy,
		stepTimeout: stepTimeout,
	}
}

// Run starts n worker slots and blocks until the context is cancelled and all
// slots have drained.
func (w *IngestionWorker) Run(ctx context.Context, slots int) {
	if slots < 1 {
		slots = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < slots; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.runSlot(ctx, slot)
		}(i)
	}
	wg.Wait()
}

func (w *IngestionWorker) runSlot(ctx context.Context, slot int) {
	log.Info().Int("slot", slot).Msg("ingestion worker slot started")
	for {
		if ctx.Err() != nil {
			log.Info().Int("slot", slot).Msg("ingestion worker slot stopped")
			return
		}
		msg, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			log.Error().Err(err).Int("slot", slot).Msg("queue receive failed")
			continue
		}
		if msg == nil {
			continue
		}
		w.ProcessMessage(ctx, msg)
	}
}

// ProcessMessage runs the full state machine for one delivery. Dead-lettering
// is terminal but reported-not-fatal: the worker moves on to the next message.
func (w *IngestionWorker) ProcessMessage(ctx context.Context, msg *domain.QueueMessage) {
	ingestion, err := domain.DecodeIngestionMessage(msg.Body)
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("dead-lettering malformed message")
		w.deadLetter(ctx, msg, "", err)
		return
	}

	key := ingestion.ObjectKey
	log.Info().Str("key", key).Msg("processing ingestion message")

	if w.registry != nil {
		if err := w.registry.MarkQueued(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to mark key as queued")
		}
	}

	if _, err := w.buildRecord(ctx, ingestion); err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-flight: give the message back for redelivery.
			w.nack(msg)
			return
		}
		log.Error().Err(err).Str("key", key).Msg("dead-lettering message after failed processing")
		w.deadLetter(ctx, msg, key, err)
		return
	}

	// Ack strictly after the store confirmed durability. A crash before this
	// line causes redelivery and a harmless idempotent re-upsert.
	if err := w.queue.Ack(ctx, msg); err != nil {
		log.Error().Err(err).Str("key", key).Msg("ack failed; message will be redelivered")
		return
	}
	if w.registry != nil {
		if err := w.registry.Clear(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to clear status marker")
		}
	}
	log.Info().Str("key", key).Msg("photo indexed")
}

// buildRecord executes Downloading → Embedding → Upserting with the retry
// policy applied to each transient failure.
func (w *IngestionWorker) buildRecord(ctx context.Context, msg *domain.IngestionMessage) (domain.PhotoRecord, error) {
	var image []byte
	err := w.withRetries(ctx, "download", msg.ObjectKey, func(stepCtx context.Context) error {
		var fetchErr error
		image, fetchErr = w.objects.Fetch(stepCtx, msg.ObjectKey)
		return fetchErr
	})
	if err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("downloading %s: %w", msg.ObjectKey, err)
	}

	var embedding domain.Embedding
	err = w.withRetries(ctx, "embed", msg.ObjectKey, func(stepCtx context.Context) error {
		var embedErr error
		embedding, embedErr = w.embedder.EmbedImage(stepCtx, image)
		return embedErr
	})
	if err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("embedding %s: %w", msg.ObjectKey, err)
	}

	record := domain.PhotoRecord{
		Key:       msg.ObjectKey,
		Embedding: embedding,
		Metadata:  domain.SanitizeMetadata(domain.FlattenMetadata(msg.Metadata)),
	}
	err = w.withRetries(ctx, "upsert", msg.ObjectKey, func(stepCtx context.Context) error {
		return w.store.Upsert(stepCtx, record)
	})
	if err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("upserting %s: %w", msg.ObjectKey, err)
	}
	return record, nil
}

// withRetries runs step with a per-call timeout, retrying retryable failures
// up to the retry budget. Non-retryable failures return immediately.
func (w *IngestionWorker) withRetries(ctx context.Context, name, key string, step func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		stepCtx, cancel := context.WithTimeout(ctx, w.stepTimeout)
		lastErr = step(stepCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		if attempt < w.policy.MaxAttempts {
			delay := w.policy.delay(attempt)
			log.Warn().Err(lastErr).
				Str("step", name).
				Str("key", key).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("transient failure, backing off")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("retry budget exhausted after %d attempts: %w", w.policy.MaxAttempts, lastErr)
}

func (w *IngestionWorker) deadLetter(ctx context.Context, msg *domain.QueueMessage, key string, cause error) {
	if err := w.queue.DeadLetter(ctx, msg, cause.Error()); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("dead-letter publish failed; message will be redelivered")
		return
	}
	if w.registry != nil && key != "" {
		if err := w.registry.MarkDeadLettered(ctx, key, cause.Error()); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to record dead-letter status")
		}
	}
}

func (w *IngestionWorker) nack(msg *domain.QueueMessage) {
	// The parent context is already cancelled; use a short detached context
	// so the nack itself can still reach the queue.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Nack(ctx, msg); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("nack failed; uncommitted offset will redeliver")
	}
}
