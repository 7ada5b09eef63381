package domain

import "context"

// QueueMessage is one delivery from the ingestion queue. ID is the opaque
// queue-assigned handle; Body is the raw message payload.
type QueueMessage struct {
	ID   string
	Body []byte
}

// IngestionQueue defines the interface for the at-least-once ingestion queue.
// A message is owned exclusively by one worker slot between Receive and the
// terminal Ack/Nack/DeadLetter call (the queue's own visibility mechanism
// guarantees single ownership).
type IngestionQueue interface {
	// Receive blocks until a message is available or the context is done.
	// It returns (nil, nil) when the poll interval elapses with no message.
	Receive(ctx context.Context) (*QueueMessage, error)

	// Ack removes the message from the queue. Called strictly after the
	// vector store has confirmed durability.
	Ack(ctx context.Context, msg *QueueMessage) error

	// Nack makes the message redeliverable, e.g. on worker shutdown while a
	// message is mid-flight.
	Nack(ctx context.Context, msg *QueueMessage) error

	// DeadLetter routes the message to the dead-letter topic with a reason
	// and removes it from the active queue.
	DeadLetter(ctx context.Context, msg *QueueMessage, reason string) error
}
