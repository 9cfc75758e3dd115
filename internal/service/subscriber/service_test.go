package subscriber

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service/event"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/metrics"
)

type fakeSubscriberRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*model.Subscriber
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{subs: make(map[uuid.UUID]*model.Subscriber)}
}

func (r *fakeSubscriberRepo) Create(ctx context.Context, sub *model.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeSubscriberRepo) Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubscriberRepo) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.Email == email {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeSubscriberRepo) GetByConfirmToken(ctx context.Context, token string) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.ConfirmToken == token {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeSubscriberRepo) GetByUnsubToken(ctx context.Context, token string) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.UnsubToken == token {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeSubscriberRepo) Update(ctx context.Context, sub *model.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *sub
	cp.UpdatedAt = time.Now()
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeSubscriberRepo) UpdateConfirmToken(ctx context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.ConfirmToken = token
	return nil
}

func (r *fakeSubscriberRepo) Confirm(ctx context.Context, token string, confirmedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.ConfirmToken == token && !sub.IsConfirmed {
			sub.IsConfirmed = true
			sub.IsActive = true
			sub.Status = model.SubscriberStatusActive
			at := confirmedAt
			sub.ConfirmedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubscriberRepo) Unsubscribe(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.UnsubToken == token && sub.Status != model.SubscriberStatusUnsubscribed {
			sub.Status = model.SubscriberStatusUnsubscribed
			sub.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubscriberRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.Status = status
	if status != model.SubscriberStatusActive {
		sub.IsActive = false
	}
	return nil
}

func (r *fakeSubscriberRepo) List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscriber
	for _, sub := range r.subs {
		if filters.Status != "" && sub.Status != filters.Status {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeSubscriberRepo) Each(ctx context.Context, filters *model.SubscriberFilters, fn func(*model.Subscriber) error) error {
	subs, _, err := r.List(ctx, filters)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := fn(sub); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSubscriberRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeOutboxRepo) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error {
	return nil
}

func (r *fakeOutboxRepo) IncrementRetry(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeOutboxRepo) RequeueStuck(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.EventType)
	}
	return types
}

func newTestService(t *testing.T) (Service, *fakeSubscriberRepo, *fakeOutboxRepo) {
	t.Helper()
	repo := newFakeSubscriberRepo()
	outbox := &fakeOutboxRepo{}
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry(), "lettermill", "test")
	svc := NewService(repo, event.NewService(outbox), m, "fr")
	return svc, repo, outbox
}

func TestSubscribeCreatesPendingSubscriber(t *testing.T) {
	svc, _, outbox := newTestService(t)

	sub, err := svc.Subscribe(context.Background(), &model.SubscribeRequest{
		Email:   "reader@example.com",
		Consent: true,
	}, "203.0.113.7:51234")
	require.NoError(t, err)

	assert.Equal(t, model.SubscriberStatusPending, sub.Status)
	assert.False(t, sub.IsConfirmed)
	assert.False(t, sub.IsActive)
	assert.Equal(t, "fr", sub.Language, "missing language falls back to default")
	assert.NotEmpty(t, sub.ConfirmToken)
	assert.NotEmpty(t, sub.UnsubToken)
	assert.NotEqual(t, sub.ConfirmToken, sub.UnsubToken)
	assert.Equal(t, "203.0.113.7", sub.IPAddress)
	assert.False(t, sub.ConsentGivenAt.IsZero())

	assert.Equal(t, []string{model.EventConfirmationRequested}, outbox.eventTypes())
}

func TestSubscribeRequiresConsent(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Subscribe(context.Background(), &model.SubscribeRequest{
		Email: "reader@example.com",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Subscribe(context.Background(), &model.SubscribeRequest{
		Email:   "not-an-email",
		Consent: true,
	}, "")
	require.Error(t, err)
}

func TestSubscribeRejectsUnknownLanguage(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Subscribe(context.Background(), &model.SubscribeRequest{
		Email:    "reader@example.com",
		Language: "de",
		Consent:  true,
	}, "")
	require.Error(t, err)
}

func TestSubscribeDuplicateActiveConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestSubscribeNormalizesEmailCase(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: " Reader@Example.COM", Consent: true}, "")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", sub.Email)

	_, err = svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)

	// A differently-cased duplicate still hits the conflict path rather than
	// the unique index.
	_, err = svc.Subscribe(ctx, &model.SubscribeRequest{Email: "READER@example.com", Consent: true}, "")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestSubscribeDuplicatePendingResendsConfirmation(t *testing.T) {
	svc, _, outbox := newTestService(t)
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	second, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ConfirmToken, second.ConfirmToken, "resubscribe rotates the confirm token")
	assert.Equal(t, []string{
		model.EventConfirmationRequested,
		model.EventConfirmationRequested,
	}, outbox.eventTypes())
}

func TestSubscribeAfterUnsubscribeReentersOptIn(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)
	_, err = svc.Unsubscribe(ctx, sub.UnsubToken)
	require.NoError(t, err)

	again, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.NotEmpty(t, again.ConfirmToken)
}

func TestSubscribeBouncedEmailRefused(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkBounced(ctx, sub.ID))

	_, err = svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestConfirmActivatesSubscriber(t *testing.T) {
	svc, _, outbox := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)

	assert.Equal(t, model.SubscriberStatusActive, confirmed.Status)
	assert.True(t, confirmed.IsConfirmed)
	assert.True(t, confirmed.IsActive)
	require.NotNil(t, confirmed.ConfirmedAt)

	assert.Contains(t, outbox.eventTypes(), model.EventSubscriberConfirmed)
}

func TestConfirmIsIdempotent(t *testing.T) {
	svc, _, outbox := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	first, err := svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)
	second, err := svc.Confirm(ctx, sub.ConfirmToken)
	require.NoError(t, err)

	require.NotNil(t, first.ConfirmedAt)
	require.NotNil(t, second.ConfirmedAt)
	assert.Equal(t, first.ConfirmedAt.Unix(), second.ConfirmedAt.Unix(), "second confirm keeps the original timestamp")

	confirmedEvents := 0
	for _, et := range outbox.eventTypes() {
		if et == model.EventSubscriberConfirmed {
			confirmedEvents++
		}
	}
	assert.Equal(t, 1, confirmedEvents, "only the first confirmation emits an event")
}

func TestConfirmUnknownTokenNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Confirm(context.Background(), "no-such-token")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnsubscribeFromPendingState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	// Unsubscribe applies without ever confirming.
	out, err := svc.Unsubscribe(ctx, sub.UnsubToken)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriberStatusUnsubscribed, out.Status)
	assert.False(t, out.IsActive)
}

func TestUnsubscribeTwiceIsNoOp(t *testing.T) {
	svc, _, outbox := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "reader@example.com", Consent: true}, "")
	require.NoError(t, err)

	_, err = svc.Unsubscribe(ctx, sub.UnsubToken)
	require.NoError(t, err)
	before := len(outbox.eventTypes())

	out, err := svc.Unsubscribe(ctx, sub.UnsubToken)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriberStatusUnsubscribed, out.Status)
	assert.Len(t, outbox.eventTypes(), before, "repeat unsubscribe emits nothing")
}

func TestConfirmationEventCarriesToken(t *testing.T) {
	svc, _, outbox := newTestService(t)

	sub, err := svc.Subscribe(context.Background(), &model.SubscribeRequest{
		Email:    "reader@example.com",
		Language: "es",
		Consent:  true,
	}, "")
	require.NoError(t, err)

	require.Len(t, outbox.events, 1)
	var payload model.ConfirmationRequestedPayload
	require.NoError(t, json.Unmarshal(outbox.events[0].Payload, &payload))
	assert.Equal(t, sub.ID, payload.SubscriberID)
	assert.Equal(t, "reader@example.com", payload.Email)
	assert.Equal(t, "es", payload.Language)
	assert.Equal(t, sub.ConfirmToken, payload.ConfirmToken)
}

func TestStatsCountsByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "a@example.com", Consent: true}, "")
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, &model.SubscribeRequest{Email: "b@example.com", Consent: true}, "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, a.ConfirmToken)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["pending"])
	assert.Equal(t, 1, stats["active"])
	assert.Equal(t, 0, stats["unsubscribed"])
}
