package subscriber

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/internal/service/event"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/metrics"
	"github.com/lettermill/lettermill/pkg/token"
	"github.com/lettermill/lettermill/pkg/validator"
)

const statsCacheKey = "subscriber_stats"

type Service interface {
	Subscribe(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error)
	Confirm(ctx context.Context, confirmToken string) (*model.Subscriber, error)
	Unsubscribe(ctx context.Context, unsubToken string) (*model.Subscriber, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error)
	Update(ctx context.Context, sub *model.Subscriber) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error)
	MarkBounced(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (map[string]int, error)
	ExportCSV(ctx context.Context, filters *model.SubscriberFilters, w io.Writer) error
	ImportCSV(ctx context.Context, r io.Reader) (*model.ImportResult, error)
}

type service struct {
	repo        repository.SubscriberRepository
	events      *event.Service
	validator   validator.Validator
	metrics     *metrics.Metrics
	cache       *gocache.Cache
	defaultLang string
}

func NewService(repo repository.SubscriberRepository, events *event.Service, metrics *metrics.Metrics, defaultLang string) Service {
	return &service{
		repo:        repo,
		events:      events,
		validator:   validator.New(),
		metrics:     metrics,
		cache:       gocache.New(30*time.Second, time.Minute),
		defaultLang: defaultLang,
	}
}

// Subscribe validates the intake and creates a pending subscriber. A
// confirmation event is written to the outbox in the same flow, so the caller
// never waits on email delivery.
//
// Duplicate handling: an active subscriber is a conflict; a pending or
// unsubscribed one gets a fresh confirmation token and another confirmation
// email. Bounced addresses are refused.
func (s *service) Subscribe(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error) {
	if !req.Consent {
		s.metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
		return nil, errors.BadRequest("consent is required", nil)
	}

	// The schema enforces uniqueness on LOWER(email); normalizing here keeps
	// the duplicate check ahead of the unique-index violation.
	email := normalizeEmail(req.Email)
	if err := s.validator.ValidateEmail(email); err != nil {
		s.metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
		return nil, errors.BadRequest("invalid email address", err)
	}

	language := req.Language
	if language == "" {
		language = s.defaultLang
	}
	if !model.IsValidLanguage(language) {
		s.metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
		return nil, errors.BadRequest(fmt.Sprintf("unsupported language: %s", language), nil)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Internal(err)
	}
	if existing != nil {
		return s.resubscribe(ctx, existing)
	}

	confirmToken, err := token.New()
	if err != nil {
		return nil, errors.Internal(err)
	}
	unsubToken, err := token.New()
	if err != nil {
		return nil, errors.Internal(err)
	}

	sub := &model.Subscriber{
		Base:           model.Base{ID: uuid.New()},
		Email:          email,
		Language:       language,
		Status:         model.SubscriberStatusPending,
		IsConfirmed:    false,
		IsActive:       false,
		ConfirmToken:   confirmToken,
		UnsubToken:     unsubToken,
		ConsentGivenAt: time.Now(),
		IPAddress:      normalizeIP(ip),
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to create subscriber: %w", err))
	}

	if err := s.emitConfirmationRequested(ctx, sub); err != nil {
		return nil, err
	}

	s.metrics.SubscriptionsTotal.WithLabelValues("created").Inc()
	return sub, nil
}

// resubscribe handles a duplicate email. Active subscribers get a conflict;
// pending and unsubscribed ones re-enter the opt-in flow with a new token.
func (s *service) resubscribe(ctx context.Context, existing *model.Subscriber) (*model.Subscriber, error) {
	switch existing.Status {
	case model.SubscriberStatusActive:
		s.metrics.SubscriptionsTotal.WithLabelValues("duplicate").Inc()
		return nil, errors.Conflict("email is already subscribed", nil)
	case model.SubscriberStatusBounced:
		s.metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
		return nil, errors.Conflict("email address previously bounced", nil)
	}

	confirmToken, err := token.New()
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := s.repo.UpdateConfirmToken(ctx, existing.ID, confirmToken); err != nil {
		return nil, errors.Internal(err)
	}
	existing.ConfirmToken = confirmToken

	if err := s.emitConfirmationRequested(ctx, existing); err != nil {
		return nil, err
	}

	s.metrics.SubscriptionsTotal.WithLabelValues("resent").Inc()
	return existing, nil
}

func (s *service) emitConfirmationRequested(ctx context.Context, sub *model.Subscriber) error {
	err := s.events.Emit(ctx, model.EventConfirmationRequested, model.ConfirmationRequestedPayload{
		SubscriberID: sub.ID,
		Email:        sub.Email,
		Language:     sub.Language,
		ConfirmToken: sub.ConfirmToken,
	})
	if err != nil {
		return errors.Internal(fmt.Errorf("failed to emit confirmation event: %w", err))
	}
	return nil
}

// Confirm resolves a confirmation token. Unknown tokens are a terminal
// not-found; confirming twice is an idempotent success that leaves
// confirmed_at untouched.
func (s *service) Confirm(ctx context.Context, confirmToken string) (*model.Subscriber, error) {
	sub, err := s.repo.GetByConfirmToken(ctx, confirmToken)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("invalid or expired token", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	if sub.IsConfirmed {
		return sub, nil
	}

	confirmedAt := time.Now()
	changed, err := s.repo.Confirm(ctx, confirmToken, confirmedAt)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if changed {
		sub.Status = model.SubscriberStatusActive
		sub.IsConfirmed = true
		sub.IsActive = true
		sub.ConfirmedAt = &confirmedAt
		s.metrics.ConfirmationsTotal.Inc()

		if err := s.events.Emit(ctx, model.EventSubscriberConfirmed, model.SubscriberEventPayload{
			SubscriberID: sub.ID,
			Email:        sub.Email,
			Language:     sub.Language,
		}); err != nil {
			return nil, errors.Internal(err)
		}
		return sub, nil
	}

	// Lost the race to a concurrent confirmation; re-read the final state.
	sub, err = s.repo.GetByConfirmToken(ctx, confirmToken)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return sub, nil
}

// Unsubscribe resolves an unsubscribe token. The transition applies from any
// prior status; unsubscribing an already-unsubscribed record is a no-op
// success.
func (s *service) Unsubscribe(ctx context.Context, unsubToken string) (*model.Subscriber, error) {
	sub, err := s.repo.GetByUnsubToken(ctx, unsubToken)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("invalid or expired token", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	if sub.Status == model.SubscriberStatusUnsubscribed {
		return sub, nil
	}

	changed, err := s.repo.Unsubscribe(ctx, unsubToken)
	if err != nil {
		return nil, errors.Internal(err)
	}
	sub.Status = model.SubscriberStatusUnsubscribed
	sub.IsActive = false

	if changed {
		s.metrics.UnsubscribesTotal.Inc()
		if err := s.events.Emit(ctx, model.EventSubscriberUnsubscribed, model.SubscriberEventPayload{
			SubscriberID: sub.ID,
			Email:        sub.Email,
			Language:     sub.Language,
		}); err != nil {
			return nil, errors.Internal(err)
		}
	}
	return sub, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("subscriber", err)
	}
	return sub, nil
}

func (s *service) Update(ctx context.Context, sub *model.Subscriber) error {
	sub.Email = normalizeEmail(sub.Email)
	if err := s.validator.ValidateEmail(sub.Email); err != nil {
		return errors.BadRequest("invalid email address", err)
	}
	if !model.IsValidLanguage(sub.Language) {
		return errors.BadRequest(fmt.Sprintf("unsupported language: %s", sub.Language), nil)
	}
	if sub.Status == model.SubscriberStatusUnsubscribed {
		sub.IsActive = false
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return errors.NotFound("subscriber", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error) {
	filters.Normalize()
	subs, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return subs, total, nil
}

// MarkBounced is the entry point for external delivery-failure signals.
func (s *service) MarkBounced(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return errors.NotFound("subscriber", err)
	}
	if err := s.repo.SetStatus(ctx, id, model.SubscriberStatusBounced); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Stats returns subscriber counts per status, cached briefly to keep the
// admin dashboard cheap.
func (s *service) Stats(ctx context.Context) (map[string]int, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		return cached.(map[string]int), nil
	}

	stats := make(map[string]int)
	for _, status := range []model.SubscriberStatus{
		model.SubscriberStatusPending,
		model.SubscriberStatusActive,
		model.SubscriberStatusBounced,
		model.SubscriberStatusUnsubscribed,
	} {
		filters := &model.SubscriberFilters{Status: status}
		filters.Normalize()
		filters.PageSize = 1
		_, total, err := s.repo.List(ctx, filters)
		if err != nil {
			return nil, errors.Internal(err)
		}
		stats[string(status)] = total
	}

	s.cache.Set(statsCacheKey, stats, gocache.DefaultExpiration)
	return stats, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeIP(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
