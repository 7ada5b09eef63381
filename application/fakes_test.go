package application

import (
	"context"
	"fmt"
	"sync"

	"photo-search/domain"
)

// fakeQueue records the terminal disposition of each message.
type fakeQueue struct {
	mu          sync.Mutex
	acked       []string
	nacked      []string
	deadLetters map[string]string // message ID -> reason
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{deadLetters: make(map[string]string)}
}

func (q *fakeQueue) Receive(context.Context) (*domain.QueueMessage, error) { return nil, nil }

func (q *fakeQueue) Ack(_ context.Context, msg *domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, msg.ID)
	return nil
}

func (q *fakeQueue) Nack(_ context.Context, msg *domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nacked = append(q.nacked, msg.ID)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, msg *domain.QueueMessage, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetters[msg.ID] = reason
	return nil
}

// fakeObjectStore serves objects after an optional run of scripted failures.
type fakeObjectStore struct {
	objects  map[string][]byte
	failures []error // consumed one per Fetch before objects are served
	fetches  int
}

func (s *fakeObjectStore) Fetch(_ context.Context, key string) ([]byte, error) {
	s.fetches++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}
	return data, nil
}

// fakeEmbedder hands out fixed vectors, optionally failing first.
type fakeEmbedder struct {
	textVec  domain.Embedding
	imageVec domain.Embedding
	failures []error
	calls    int
}

func (e *fakeEmbedder) consumeFailure() error {
	if len(e.failures) > 0 {
		err := e.failures[0]
		e.failures = e.failures[1:]
		return err
	}
	return nil
}

func (e *fakeEmbedder) EmbedText(context.Context, string) (domain.Embedding, error) {
	e.calls++
	if err := e.consumeFailure(); err != nil {
		return nil, err
	}
	return e.textVec, nil
}

func (e *fakeEmbedder) EmbedImage(context.Context, []byte) (domain.Embedding, error) {
	e.calls++
	if err := e.consumeFailure(); err != nil {
		return nil, err
	}
	return e.imageVec, nil
}

// fakeVectorStore records upserts and serves canned query results.
type fakeVectorStore struct {
	mu            sync.Mutex
	upserts       []domain.PhotoRecord
	failures      []error
	queryRes      []domain.Match
	scrollRes     []domain.Match
	queryFilters  []*domain.MetadataFilter
	scrollFilters []*domain.MetadataFilter
}

func (s *fakeVectorStore) Upsert(_ context.Context, record domain.PhotoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	s.upserts = append(s.upserts, record)
	return nil
}

func (s *fakeVectorStore) QuerySimilar(_ context.Context, _ domain.Embedding, k int, filter *domain.MetadataFilter) ([]domain.Match, error) {
	s.mu.Lock()
	s.queryFilters = append(s.queryFilters, filter)
	s.mu.Unlock()
	if len(s.queryRes) > k {
		return s.queryRes[:k], nil
	}
	return s.queryRes, nil
}

func (s *fakeVectorStore) Scroll(_ context.Context, filter *domain.MetadataFilter, k int) ([]domain.Match, error) {
	s.mu.Lock()
	s.scrollFilters = append(s.scrollFilters, filter)
	s.mu.Unlock()
	if len(s.scrollRes) > k {
		return s.scrollRes[:k], nil
	}
	return s.scrollRes, nil
}

func (s *fakeVectorStore) Delete(context.Context, string) error { return nil }

func (s *fakeVectorStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.upserts {
		if record.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// fakePlanner replays scripted plans and summaries.
type fakePlanner struct {
	plans       []domain.SearchPlan
	planErrs    []error
	planCalls   int
	summary     string
	summaryErrs []error
	summarized  [][]domain.ToolResult
}

func (p *fakePlanner) PlanSearch(context.Context, string, bool) (domain.SearchPlan, error) {
	i := p.planCalls
	p.planCalls++
	if i < len(p.planErrs) && p.planErrs[i] != nil {
		return nil, p.planErrs[i]
	}
	if i < len(p.plans) {
		return p.plans[i], nil
	}
	if len(p.plans) > 0 {
		return p.plans[len(p.plans)-1], nil
	}
	return nil, fmt.Errorf("no scripted plan")
}

func (p *fakePlanner) Summarize(_ context.Context, _ string, results []domain.ToolResult) (string, error) {
	p.summarized = append(p.summarized, results)
	if len(p.summaryErrs) > 0 {
		err := p.summaryErrs[0]
		p.summaryErrs = p.summaryErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return p.summary, nil
}

// fakeRegistry tracks status transitions in memory.
type fakeRegistry struct {
	mu       sync.Mutex
	statuses map[string]domain.IngestStatus
	reasons  map[string]string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		statuses: make(map[string]domain.IngestStatus),
		reasons:  make(map[string]string),
	}
}

func (r *fakeRegistry) MarkQueued(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[key] = domain.StatusQueued
	return nil
}

func (r *fakeRegistry) MarkDeadLettered(_ context.Context, key, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[key] = domain.StatusDeadLettered
	r.reasons[key] = reason
	return nil
}

func (r *fakeRegistry) Clear(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, key)
	delete(r.reasons, key)
	return nil
}

func (r *fakeRegistry) Lookup(_ context.Context, key string) (domain.IngestStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status, ok := r.statuses[key]; ok {
		return status, nil
	}
	return domain.StatusAbsent, nil
}
