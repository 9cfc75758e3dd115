package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/pkg/logger"
	"github.com/lettermill/lettermill/pkg/metrics"
)

type fakeOutboxStore struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*model.OutboxEvent
	retries map[uuid.UUID]int
	order   []uuid.UUID
}

func newFakeOutboxStore() *fakeOutboxStore {
	return &fakeOutboxStore{
		events:  make(map[uuid.UUID]*model.OutboxEvent),
		retries: make(map[uuid.UUID]int),
	}
}

func (s *fakeOutboxStore) Create(ctx context.Context, e *model.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.Status = model.OutboxStatusPending
	cp := *e
	s.events[e.ID] = &cp
	s.order = append(s.order, e.ID)
	return nil
}

func (s *fakeOutboxStore) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, id := range s.order {
		if len(out) >= limit {
			break
		}
		e := s.events[id]
		if e.Status != model.OutboxStatusPending {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeOutboxStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("unknown event %s", id)
	}
	e.Status = status
	e.ErrorMessage = errMessage
	return nil
}

func (s *fakeOutboxStore) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[id]++
	return nil
}

func (s *fakeOutboxStore) RequeueStuck(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeOutboxStore) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeOutboxStore) status(id uuid.UUID) model.OutboxStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Status
}

// flakyBroker fails the first failures publishes, then succeeds.
type flakyBroker struct {
	mu        sync.Mutex
	failures  int
	published []string
}

func (b *flakyBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return fmt.Errorf("broker unavailable")
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *flakyBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *flakyBroker) Close() error { return nil }

func (b *flakyBroker) publishedChannels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

func newTestProcessor(t *testing.T, store *fakeOutboxStore, broker *flakyBroker) *OutboxProcessor {
	t.Helper()
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry(), "lettermill", "test")
	return NewOutboxProcessor(store, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), m)
}

func addEvent(t *testing.T, store *fakeOutboxStore, eventType string) uuid.UUID {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"email": "reader@example.com"})
	require.NoError(t, err)
	e := &model.OutboxEvent{EventType: eventType, Payload: payload}
	require.NoError(t, store.Create(context.Background(), e))
	return e.ID
}

func TestProcessEventsDrainsAndMarksProcessed(t *testing.T) {
	store := newFakeOutboxStore()
	broker := &flakyBroker{}
	p := newTestProcessor(t, store, broker)

	first := addEvent(t, store, model.EventConfirmationRequested)
	second := addEvent(t, store, model.EventSubscriberConfirmed)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusProcessed, store.status(first))
	assert.Equal(t, model.OutboxStatusProcessed, store.status(second))
	assert.Equal(t, []string{
		model.EventConfirmationRequested,
		model.EventSubscriberConfirmed,
	}, broker.publishedChannels())
}

func TestProcessEventsDoesNotRepublishClaimed(t *testing.T) {
	store := newFakeOutboxStore()
	broker := &flakyBroker{}
	p := newTestProcessor(t, store, broker)

	addEvent(t, store, model.EventConfirmationRequested)

	require.NoError(t, p.processEvents(context.Background()))
	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.publishedChannels(), 1, "a drained event is not picked up again")
}

func TestPublishRetrySucceedsAndPersistsCount(t *testing.T) {
	store := newFakeOutboxStore()
	broker := &flakyBroker{failures: 1}
	p := newTestProcessor(t, store, broker)

	id := addEvent(t, store, model.EventSubscriberUnsubscribed)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusProcessed, store.status(id))
	assert.Equal(t, 1, store.retries[id])
}

func TestExhaustedRetriesMarksFailed(t *testing.T) {
	store := newFakeOutboxStore()
	broker := &flakyBroker{failures: 100}
	p := newTestProcessor(t, store, broker)

	id := addEvent(t, store, model.EventConfirmationRequested)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusFailed, store.status(id))
	assert.Equal(t, 2, store.retries[id], "retries between the three attempts are recorded")
	require.NotNil(t, store.events[id].ErrorMessage)
	assert.Empty(t, broker.publishedChannels())
}
