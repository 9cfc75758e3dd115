package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
)

type SubscriberRepository interface {
	Create(ctx context.Context, sub *model.Subscriber) error
	Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*model.Subscriber, error)
	GetByConfirmToken(ctx context.Context, token string) (*model.Subscriber, error)
	GetByUnsubToken(ctx context.Context, token string) (*model.Subscriber, error)
	Update(ctx context.Context, sub *model.Subscriber) error
	UpdateConfirmToken(ctx context.Context, id uuid.UUID, token string) error
	// Confirm transitions a pending subscriber to active. The update is
	// conditional on is_confirmed=false so concurrent confirmations of the
	// same token apply at most once. Returns true if a row changed.
	Confirm(ctx context.Context, token string, confirmedAt time.Time) (bool, error)
	// Unsubscribe marks the subscriber unsubscribed regardless of prior
	// state. Returns true if a row changed.
	Unsubscribe(ctx context.Context, token string) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error
	List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error)
	// Each iterates all subscribers matching filters without pagination,
	// invoking fn per row. Used by the CSV export stream.
	Each(ctx context.Context, filters *model.SubscriberFilters, fn func(*model.Subscriber) error) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	Get(ctx context.Context, id uuid.UUID) (*model.Tag, error)
	Update(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.Tag, error)
	Assign(ctx context.Context, tagID, subscriberID uuid.UUID) error
	Remove(ctx context.Context, tagID, subscriberID uuid.UUID) error
	ListForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*model.Tag, error)
}

type SegmentRepository interface {
	Create(ctx context.Context, segment *model.Segment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Segment, error)
	Update(ctx context.Context, segment *model.Segment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.Segment, error)
	AddMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error
	RemoveMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error
	ListMembers(ctx context.Context, segmentID uuid.UUID, p model.Pagination) ([]*model.Subscriber, int, error)
}

type EngagementRepository interface {
	Create(ctx context.Context, engagement *model.Engagement) error
	ListForSubscriber(ctx context.Context, subscriberID uuid.UUID, p model.Pagination) ([]*model.Engagement, int, error)
}

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	Get(ctx context.Context, id uuid.UUID) (*model.Article, error)
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.ArticleFilters) ([]*model.Article, int, error)
	UpsertPage(ctx context.Context, page *model.ArticlePage) error
	GetPage(ctx context.Context, articleID uuid.UUID, pageNumber int) (*model.ArticlePage, error)
	ListPages(ctx context.Context, articleID uuid.UUID) ([]*model.ArticlePage, error)
	DeletePage(ctx context.Context, articleID uuid.UUID, pageNumber int) error
}

type ResourceRepository interface {
	Create(ctx context.Context, resource *model.Resource) error
	Get(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	Update(ctx context.Context, resource *model.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, p model.Pagination) ([]*model.Resource, int, error)
}

type StaffRepository interface {
	Create(ctx context.Context, staff *model.StaffUser) error
	GetByEmail(ctx context.Context, email string) (*model.StaffUser, error)
	Get(ctx context.Context, id uuid.UUID) (*model.StaffUser, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending atomically moves up to limit pending events to processing
	// and returns them. Concurrent processors never claim the same event, so
	// each one is published at most once per claim.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	// RequeueStuck returns events claimed before the cutoff but never
	// finished (a processor crashed mid-batch) to pending.
	RequeueStuck(ctx context.Context, before time.Time) (int64, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
