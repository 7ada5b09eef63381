package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog/log"

	"photo-search/domain"
)

const (
	bootstrapServers = "bootstrap.servers"
	groupID          = "group.id"
	autoOffsetReset  = "auto.offset.reset"
	enableAutoCommit = "enable.auto.commit"
	clientID         = "client.id"
)

// Config carries the broker, topic and consumer-group settings for the
// ingestion queue.
type Config struct {
	Brokers         string
	Topic           string
	DeadLetterTopic string
	GroupID         string
	ClientID        string
	PollTimeoutMs   int
}

// KafkaQueue implements domain.IngestionQueue on a Kafka topic. Auto-commit is
// disabled: an offset is committed only when the worker acks or dead-letters
// the message, so an unacked message is redelivered after restart. Because
// commits are cumulative per partition, acks go through an offsetTracker and
// the committed offset advances only over the contiguous prefix of completed
// messages. Acking offset 6 while offset 5 is still being processed defers
// the commit until 5 finishes.
type KafkaQueue struct {
	consumer *kafka.Consumer
	producer *kafka.Producer
	dlqTopic string
	pollMs   int

	// pollMu serializes Poll calls among worker slots. Commit and seek go
	// through librdkafka's thread-safe handle, so acks and dead-letters do
	// not wait behind an idle poll.
	pollMu sync.Mutex

	// mu guards the in-flight bookkeeping and orders commits.
	mu       sync.Mutex
	inflight map[string]*kafka.Message
	tracker  *offsetTracker
}

// NewKafkaQueue connects a consumer to the ingestion topic and a producer for
// the dead-letter topic.
func NewKafkaQueue(cfg Config) (*KafkaQueue, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		bootstrapServers: cfg.Brokers,
		groupID:          cfg.GroupID,
		autoOffsetReset:  "earliest",
		enableAutoCommit: false,
		clientID:         cfg.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Topic, err)
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		bootstrapServers: cfg.Brokers,
		clientID:         cfg.ClientID + "-dlq",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	pollMs := cfg.PollTimeoutMs
	if pollMs <= 0 {
		pollMs = 1000
	}
	return &KafkaQueue{
		consumer: consumer,
		producer: producer,
		dlqTopic: cfg.DeadLetterTopic,
		pollMs:   pollMs,
		inflight: make(map[string]*kafka.Message),
		tracker:  newOffsetTracker(),
	}, nil
}

func messageID(m *kafka.Message) string {
	return fmt.Sprintf("%s/%d/%d", *m.TopicPartition.Topic, m.TopicPartition.Partition, m.TopicPartition.Offset)
}

func partitionKey(tp kafka.TopicPartition) string {
	return fmt.Sprintf("%s/%d", *tp.Topic, tp.Partition)
}

// commitCompleted marks the message's offset as finished and, when the
// partition's completed prefix advanced, commits the next offset. Caller
// holds mu.
func (q *KafkaQueue) commitCompleted(raw *kafka.Message) error {
	next, ok := q.tracker.complete(partitionKey(raw.TopicPartition), int64(raw.TopicPartition.Offset))
	if !ok {
		return nil
	}
	_, err := q.consumer.CommitOffsets([]kafka.TopicPartition{{
		Topic:     raw.TopicPartition.Topic,
		Partition: raw.TopicPartition.Partition,
		Offset:    kafka.Offset(next),
	}})
	return err
}

// Receive polls for the next message. A nil message with a nil error means
// the poll timed out with nothing to do.
func (q *KafkaQueue) Receive(ctx context.Context) (*domain.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.pollMu.Lock()
	ev := q.consumer.Poll(q.pollMs)
	q.pollMu.Unlock()

	if ev == nil {
		return nil, nil
	}
	switch e := ev.(type) {
	case *kafka.Message:
		id := messageID(e)
		q.mu.Lock()
		q.inflight[id] = e
		q.tracker.track(partitionKey(e.TopicPartition), int64(e.TopicPartition.Offset))
		q.mu.Unlock()
		return &domain.QueueMessage{ID: id, Body: e.Value}, nil
	case kafka.Error:
		if e.IsFatal() {
			return nil, fmt.Errorf("fatal kafka error: %w", e)
		}
		log.Warn().Err(e).Msg("non-fatal kafka error while polling")
		return nil, nil
	default:
		return nil, nil
	}
}

// Ack marks the message as done. The offset is committed once every earlier
// offset on the same partition has also been acked or dead-lettered.
func (q *KafkaQueue) Ack(_ context.Context, msg *domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, ok := q.inflight[msg.ID]
	if !ok {
		return fmt.Errorf("unknown message %s", msg.ID)
	}
	if err := q.commitCompleted(raw); err != nil {
		return fmt.Errorf("failed to commit %s: %w", msg.ID, err)
	}
	delete(q.inflight, msg.ID)
	return nil
}

// Nack seeks the partition back to the message's offset so it is redelivered
// on the next poll. Everything after the offset on that partition will be
// redelivered too, so its tracking is dropped along the way.
func (q *KafkaQueue) Nack(_ context.Context, msg *domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, ok := q.inflight[msg.ID]
	if !ok {
		return fmt.Errorf("unknown message %s", msg.ID)
	}
	delete(q.inflight, msg.ID)
	q.tracker.rewind(partitionKey(raw.TopicPartition), int64(raw.TopicPartition.Offset))
	if _, err := q.consumer.SeekPartitions([]kafka.TopicPartition{raw.TopicPartition}); err != nil {
		return fmt.Errorf("failed to seek back %s: %w", msg.ID, err)
	}
	return nil
}

// DeadLetter publishes the message to the dead-letter topic with the failure
// reason in a header, then marks the original offset as done. The produce is
// confirmed before the commit so a crash in between redelivers rather than
// drops.
func (q *KafkaQueue) DeadLetter(ctx context.Context, msg *domain.QueueMessage, reason string) error {
	q.mu.Lock()
	raw, ok := q.inflight[msg.ID]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown message %s", msg.ID)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err := q.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &q.dlqTopic, Partition: kafka.PartitionAny},
		Key:            raw.Key,
		Value:          raw.Value,
		Headers: []kafka.Header{
			{Key: "failure_reason", Value: []byte(reason)},
			{Key: "source", Value: []byte(msg.ID)},
		},
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce to dead-letter topic: %w", err)
	}

	select {
	case ev := <-deliveryChan:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("dead-letter delivery failed: %w", m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.commitCompleted(raw); err != nil {
		return fmt.Errorf("failed to commit dead-lettered %s: %w", msg.ID, err)
	}
	delete(q.inflight, msg.ID)
	log.Warn().Str("message", msg.ID).Str("reason", reason).Msg("message dead-lettered")
	return nil
}

// Close shuts down the consumer and flushes the dead-letter producer.
func (q *KafkaQueue) Close() error {
	q.producer.Flush(5000)
	q.producer.Close()

	q.pollMu.Lock()
	defer q.pollMu.Unlock()
	if err := q.consumer.Unsubscribe(); err != nil {
		log.Error().Err(err).Msg("error unsubscribing consumer")
	}
	return q.consumer.Close()
}

var _ domain.IngestionQueue = (*KafkaQueue)(nil)
