package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-search/domain"
)

func fastRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Microsecond,
		MaxDelay:    time.Millisecond,
	}
}

func newTestWorker(queue *fakeQueue, objects *fakeObjectStore, embedder *fakeEmbedder, store *fakeVectorStore, registry *fakeRegistry) *IngestionWorker {
	var statusRegistry domain.StatusRegistry
	if registry != nil {
		statusRegistry = registry
	}
	return NewIngestionWorker(queue, objects, embedder, store, statusRegistry, fastRetryPolicy(3), time.Second)
}

func ingestionMessage(key string) *domain.QueueMessage {
	return &domain.QueueMessage{
		ID:   "msg-" + key,
		Body: []byte(fmt.Sprintf(`{"object_key": %q, "metadata": {"year": 2024, "location": "Lisbon"}}`, key)),
	}
}

// ============================================================
// Happy path
// ============================================================

func TestProcessMessage_Success(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{objects: map[string][]byte{"a.jpg": {1, 2, 3}}}
	embedder := &fakeEmbedder{imageVec: domain.Embedding{0.1, 0.2}}
	store := &fakeVectorStore{}
	registry := newFakeRegistry()

	worker := newTestWorker(queue, objects, embedder, store, registry)
	worker.ProcessMessage(context.Background(), ingestionMessage("a.jpg"))

	require.Len(t, store.upserts, 1)
	assert.Equal(t, "a.jpg", store.upserts[0].Key)
	assert.Equal(t, domain.Embedding{0.1, 0.2}, store.upserts[0].Embedding)
	assert.Equal(t, []string{"msg-a.jpg"}, queue.acked)
	assert.Empty(t, queue.deadLetters)

	// Transient status cleared once the record is durable.
	status, _ := registry.Lookup(context.Background(), "a.jpg")
	assert.Equal(t, domain.StatusAbsent, status)
}

func TestProcessMessage_MetadataIsFlattenedAndSanitized(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{objects: map[string][]byte{"b.jpg": {1}}}
	embedder := &fakeEmbedder{imageVec: domain.Embedding{1}}
	store := &fakeVectorStore{}

	worker := newTestWorker(queue, objects, embedder, store, nil)
	worker.ProcessMessage(context.Background(), &domain.QueueMessage{
		ID: "msg-b",
		Body: []byte(`{
			"object_key": "b.jpg",
			"metadata": {"year": null, "location": null, "exif": {"iso": 200}}
		}`),
	})

	require.Len(t, store.upserts, 1)
	metadata := store.upserts[0].Metadata
	assert.Equal(t, -1, metadata[domain.MetaYear])
	assert.Equal(t, "unknown", metadata[domain.MetaLocation])
	assert.IsType(t, "", metadata["exif"])
}

// ============================================================
// Dead-letter paths
// ============================================================

func TestProcessMessage_MalformedMessage(t *testing.T) {
	queue := newFakeQueue()
	store := &fakeVectorStore{}
	worker := newTestWorker(queue, &fakeObjectStore{}, &fakeEmbedder{}, store, nil)

	worker.ProcessMessage(context.Background(), &domain.QueueMessage{ID: "bad", Body: []byte(`{oops`)})

	assert.Empty(t, queue.acked)
	assert.Contains(t, queue.deadLetters, "bad")
	assert.Empty(t, store.upserts)
}

func TestProcessMessage_ObjectNotFoundSkipsRetries(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{objects: map[string][]byte{}}
	registry := newFakeRegistry()
	worker := newTestWorker(queue, objects, &fakeEmbedder{}, &fakeVectorStore{}, registry)

	worker.ProcessMessage(context.Background(), ingestionMessage("gone.jpg"))

	// Not retryable: exactly one fetch, then straight to the dead letter.
	assert.Equal(t, 1, objects.fetches)
	assert.Contains(t, queue.deadLetters, "msg-gone.jpg")
	assert.Empty(t, queue.acked)

	status, _ := registry.Lookup(context.Background(), "gone.jpg")
	assert.Equal(t, domain.StatusDeadLettered, status)
}

func TestProcessMessage_RetryBudgetExhausted(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{
		objects: map[string][]byte{"c.jpg": {1}},
		failures: []error{
			domain.ErrTransientFetch, domain.ErrTransientFetch, domain.ErrTransientFetch,
			domain.ErrTransientFetch, // more failures than the budget of 3
		},
	}
	worker := newTestWorker(queue, objects, &fakeEmbedder{imageVec: domain.Embedding{1}}, &fakeVectorStore{}, nil)

	worker.ProcessMessage(context.Background(), ingestionMessage("c.jpg"))

	assert.Equal(t, 3, objects.fetches)
	assert.Contains(t, queue.deadLetters, "msg-c.jpg")
	assert.Contains(t, queue.deadLetters["msg-c.jpg"], "retry budget exhausted")
}

// ============================================================
// Retry behavior
// ============================================================

func TestProcessMessage_TransientFailuresThenSuccess(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{
		objects:  map[string][]byte{"d.jpg": {1}},
		failures: []error{domain.ErrTransientFetch, domain.ErrTransientFetch},
	}
	embedder := &fakeEmbedder{
		imageVec: domain.Embedding{1},
		failures: []error{domain.ErrEmbedding},
	}
	store := &fakeVectorStore{failures: []error{domain.ErrStoreUnavailable}}

	worker := newTestWorker(queue, objects, embedder, store, nil)
	worker.ProcessMessage(context.Background(), ingestionMessage("d.jpg"))

	// Every stage recovered within its budget; exactly one ack, no dead letter.
	assert.Equal(t, []string{"msg-d.jpg"}, queue.acked)
	assert.Empty(t, queue.deadLetters)
	require.Len(t, store.upserts, 1)
}

func TestProcessMessage_RedeliveryIsIdempotent(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{objects: map[string][]byte{"e.jpg": {1}}}
	embedder := &fakeEmbedder{imageVec: domain.Embedding{1}}
	store := &fakeVectorStore{}
	worker := newTestWorker(queue, objects, embedder, store, nil)

	msg := ingestionMessage("e.jpg")
	worker.ProcessMessage(context.Background(), msg)
	worker.ProcessMessage(context.Background(), msg)

	// Two upserts of the same key; the store replaces, the queue sees two acks.
	require.Len(t, store.upserts, 2)
	assert.Equal(t, store.upserts[0].Key, store.upserts[1].Key)
	assert.Len(t, queue.acked, 2)
}

func TestProcessMessage_ShutdownNacksInsteadOfDeadLettering(t *testing.T) {
	queue := newFakeQueue()
	objects := &fakeObjectStore{
		objects:  map[string][]byte{"f.jpg": {1}},
		failures: []error{domain.ErrTransientFetch, domain.ErrTransientFetch, domain.ErrTransientFetch},
	}
	worker := newTestWorker(queue, objects, &fakeEmbedder{}, &fakeVectorStore{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.ProcessMessage(ctx, ingestionMessage("f.jpg"))

	assert.Equal(t, []string{"msg-f.jpg"}, queue.nacked)
	assert.Empty(t, queue.deadLetters)
	assert.Empty(t, queue.acked)
}

func TestRetryPolicy_DelayIsBoundedAndJittered(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
	}
	for attempt := 1; attempt <= 10; attempt++ {
		d := policy.delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
