package engagement

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/errors"
)

type Service interface {
	Record(ctx context.Context, subscriberID uuid.UUID, req *model.RecordEngagementRequest) (*model.Engagement, error)
	ListForSubscriber(ctx context.Context, subscriberID uuid.UUID, p model.Pagination) ([]*model.Engagement, int, error)
}

type service struct {
	repo           repository.EngagementRepository
	subscriberRepo repository.SubscriberRepository
}

func NewService(repo repository.EngagementRepository, subscriberRepo repository.SubscriberRepository) Service {
	return &service{repo: repo, subscriberRepo: subscriberRepo}
}

// Record appends an engagement. A bounced action also flips the subscriber's
// status, which is how external delivery-failure signals reach the lifecycle.
func (s *service) Record(ctx context.Context, subscriberID uuid.UUID, req *model.RecordEngagementRequest) (*model.Engagement, error) {
	switch req.Action {
	case model.EngagementActionOpened, model.EngagementActionClicked, model.EngagementActionBounced:
	default:
		return nil, errors.BadRequest("unsupported engagement action", nil)
	}

	if _, err := s.subscriberRepo.Get(ctx, subscriberID); err != nil {
		return nil, errors.NotFound("subscriber", err)
	}

	var metadata json.RawMessage
	if req.Metadata != nil {
		data, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, errors.BadRequest("invalid metadata", err)
		}
		metadata = data
	}

	engagement := &model.Engagement{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		EmailSendID:  req.EmailSendID,
		Action:       req.Action,
		Metadata:     metadata,
	}
	if err := s.repo.Create(ctx, engagement); err != nil {
		return nil, errors.Internal(err)
	}

	if req.Action == model.EngagementActionBounced {
		if err := s.subscriberRepo.SetStatus(ctx, subscriberID, model.SubscriberStatusBounced); err != nil {
			return nil, errors.Internal(err)
		}
	}

	return engagement, nil
}

func (s *service) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID, p model.Pagination) ([]*model.Engagement, int, error) {
	p.Normalize()
	engagements, total, err := s.repo.ListForSubscriber(ctx, subscriberID, p)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return engagements, total, nil
}
