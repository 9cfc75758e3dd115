package engagement

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
)

type fakeEngagementRepo struct {
	records []*model.Engagement
}

func (r *fakeEngagementRepo) Create(ctx context.Context, e *model.Engagement) error {
	cp := *e
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now()
	}
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeEngagementRepo) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID, p model.Pagination) ([]*model.Engagement, int, error) {
	var out []*model.Engagement
	for _, e := range r.records {
		if e.SubscriberID == subscriberID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

// statusRecorder implements just enough of the subscriber repository to
// observe the bounce flip.
type statusRecorder struct {
	known    map[uuid.UUID]bool
	statuses map[uuid.UUID]model.SubscriberStatus
}

func newStatusRecorder(ids ...uuid.UUID) *statusRecorder {
	r := &statusRecorder{
		known:    make(map[uuid.UUID]bool),
		statuses: make(map[uuid.UUID]model.SubscriberStatus),
	}
	for _, id := range ids {
		r.known[id] = true
	}
	return r
}

func (r *statusRecorder) Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	if !r.known[id] {
		return nil, sql.ErrNoRows
	}
	return &model.Subscriber{Base: model.Base{ID: id}}, nil
}

func (r *statusRecorder) SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	r.statuses[id] = status
	return nil
}

func (r *statusRecorder) Create(ctx context.Context, sub *model.Subscriber) error { return nil }
func (r *statusRecorder) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	return nil, sql.ErrNoRows
}
func (r *statusRecorder) GetByConfirmToken(ctx context.Context, token string) (*model.Subscriber, error) {
	return nil, sql.ErrNoRows
}
func (r *statusRecorder) GetByUnsubToken(ctx context.Context, token string) (*model.Subscriber, error) {
	return nil, sql.ErrNoRows
}
func (r *statusRecorder) Update(ctx context.Context, sub *model.Subscriber) error { return nil }
func (r *statusRecorder) UpdateConfirmToken(ctx context.Context, id uuid.UUID, token string) error {
	return nil
}
func (r *statusRecorder) Confirm(ctx context.Context, token string, confirmedAt time.Time) (bool, error) {
	return false, nil
}
func (r *statusRecorder) Unsubscribe(ctx context.Context, token string) (bool, error) {
	return false, nil
}
func (r *statusRecorder) List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error) {
	return nil, 0, nil
}
func (r *statusRecorder) Each(ctx context.Context, filters *model.SubscriberFilters, fn func(*model.Subscriber) error) error {
	return nil
}
func (r *statusRecorder) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func TestRecordOpened(t *testing.T) {
	subscriberID := uuid.New()
	repo := &fakeEngagementRepo{}
	subs := newStatusRecorder(subscriberID)
	svc := NewService(repo, subs)

	rec, err := svc.Record(context.Background(), subscriberID, &model.RecordEngagementRequest{
		Action:   model.EngagementActionOpened,
		Metadata: model.JSONMap{"user_agent": "test"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.EngagementActionOpened, rec.Action)
	assert.NotEmpty(t, rec.Metadata)
	assert.Empty(t, subs.statuses, "opened does not change status")
}

func TestRecordBouncedFlipsSubscriberStatus(t *testing.T) {
	subscriberID := uuid.New()
	repo := &fakeEngagementRepo{}
	subs := newStatusRecorder(subscriberID)
	svc := NewService(repo, subs)

	_, err := svc.Record(context.Background(), subscriberID, &model.RecordEngagementRequest{
		Action: model.EngagementActionBounced,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriberStatusBounced, subs.statuses[subscriberID])
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	svc := NewService(&fakeEngagementRepo{}, newStatusRecorder())

	_, err := svc.Record(context.Background(), uuid.New(), &model.RecordEngagementRequest{
		Action: model.EngagementAction("forwarded"),
	})
	require.Error(t, err)
}

func TestRecordUnknownSubscriber(t *testing.T) {
	svc := NewService(&fakeEngagementRepo{}, newStatusRecorder())

	_, err := svc.Record(context.Background(), uuid.New(), &model.RecordEngagementRequest{
		Action: model.EngagementActionOpened,
	})
	require.Error(t, err)
}

func TestListForSubscriber(t *testing.T) {
	subscriberID := uuid.New()
	repo := &fakeEngagementRepo{}
	subs := newStatusRecorder(subscriberID)
	svc := NewService(repo, subs)
	ctx := context.Background()

	for _, action := range []model.EngagementAction{model.EngagementActionOpened, model.EngagementActionClicked} {
		_, err := svc.Record(ctx, subscriberID, &model.RecordEngagementRequest{Action: action})
		require.NoError(t, err)
	}

	records, total, err := svc.ListForSubscriber(ctx, subscriberID, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, records, 2)
}
