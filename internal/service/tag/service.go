package tag

import (
	"context"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/errors"
)

type Service interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, id uuid.UUID) (*model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, id uuid.UUID) error
	ListTags(ctx context.Context) ([]*model.Tag, error)
	AssignTag(ctx context.Context, tagID, subscriberID uuid.UUID) error
	RemoveTag(ctx context.Context, tagID, subscriberID uuid.UUID) error
	ListSubscriberTags(ctx context.Context, subscriberID uuid.UUID) ([]*model.Tag, error)

	CreateSegment(ctx context.Context, segment *model.Segment) error
	GetSegment(ctx context.Context, id uuid.UUID) (*model.Segment, error)
	UpdateSegment(ctx context.Context, segment *model.Segment) error
	DeleteSegment(ctx context.Context, id uuid.UUID) error
	ListSegments(ctx context.Context) ([]*model.Segment, error)
	AddSegmentMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error
	RemoveSegmentMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error
	ListSegmentMembers(ctx context.Context, segmentID uuid.UUID, p model.Pagination) ([]*model.Subscriber, int, error)
}

type service struct {
	tagRepo        repository.TagRepository
	segmentRepo    repository.SegmentRepository
	subscriberRepo repository.SubscriberRepository
}

func NewService(tagRepo repository.TagRepository, segmentRepo repository.SegmentRepository, subscriberRepo repository.SubscriberRepository) Service {
	return &service{
		tagRepo:        tagRepo,
		segmentRepo:    segmentRepo,
		subscriberRepo: subscriberRepo,
	}
}

func (s *service) CreateTag(ctx context.Context, tag *model.Tag) error {
	if tag.Name == "" {
		return errors.BadRequest("tag name is required", nil)
	}
	tag.ID = uuid.New()
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) GetTag(ctx context.Context, id uuid.UUID) (*model.Tag, error) {
	tag, err := s.tagRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("tag", err)
	}
	return tag, nil
}

func (s *service) UpdateTag(ctx context.Context, tag *model.Tag) error {
	if tag.Name == "" {
		return errors.BadRequest("tag name is required", nil)
	}
	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if _, err := s.tagRepo.Get(ctx, id); err != nil {
		return errors.NotFound("tag", err)
	}
	if err := s.tagRepo.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) ListTags(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.tagRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return tags, nil
}

func (s *service) AssignTag(ctx context.Context, tagID, subscriberID uuid.UUID) error {
	if _, err := s.tagRepo.Get(ctx, tagID); err != nil {
		return errors.NotFound("tag", err)
	}
	if _, err := s.subscriberRepo.Get(ctx, subscriberID); err != nil {
		return errors.NotFound("subscriber", err)
	}
	if err := s.tagRepo.Assign(ctx, tagID, subscriberID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) RemoveTag(ctx context.Context, tagID, subscriberID uuid.UUID) error {
	if err := s.tagRepo.Remove(ctx, tagID, subscriberID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) ListSubscriberTags(ctx context.Context, subscriberID uuid.UUID) ([]*model.Tag, error) {
	tags, err := s.tagRepo.ListForSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return tags, nil
}

func (s *service) CreateSegment(ctx context.Context, segment *model.Segment) error {
	if segment.Name == "" {
		return errors.BadRequest("segment name is required", nil)
	}
	segment.ID = uuid.New()
	if err := s.segmentRepo.Create(ctx, segment); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) GetSegment(ctx context.Context, id uuid.UUID) (*model.Segment, error) {
	segment, err := s.segmentRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("segment", err)
	}
	return segment, nil
}

func (s *service) UpdateSegment(ctx context.Context, segment *model.Segment) error {
	if segment.Name == "" {
		return errors.BadRequest("segment name is required", nil)
	}
	if err := s.segmentRepo.Update(ctx, segment); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.segmentRepo.Get(ctx, id); err != nil {
		return errors.NotFound("segment", err)
	}
	if err := s.segmentRepo.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) ListSegments(ctx context.Context) ([]*model.Segment, error) {
	segments, err := s.segmentRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return segments, nil
}

func (s *service) AddSegmentMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error {
	if _, err := s.segmentRepo.Get(ctx, segmentID); err != nil {
		return errors.NotFound("segment", err)
	}
	if _, err := s.subscriberRepo.Get(ctx, subscriberID); err != nil {
		return errors.NotFound("subscriber", err)
	}
	if err := s.segmentRepo.AddMember(ctx, segmentID, subscriberID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) RemoveSegmentMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error {
	if err := s.segmentRepo.RemoveMember(ctx, segmentID, subscriberID); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *service) ListSegmentMembers(ctx context.Context, segmentID uuid.UUID, p model.Pagination) ([]*model.Subscriber, int, error) {
	p.Normalize()
	members, total, err := s.segmentRepo.ListMembers(ctx, segmentID, p)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return members, total, nil
}
