package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

type segmentRepository struct {
	db *sqlx.DB
}

func NewSegmentRepository(db *sqlx.DB) repository.SegmentRepository {
	return &segmentRepository{db: db}
}

func (r *segmentRepository) Create(ctx context.Context, segment *model.Segment) error {
	query := `
		INSERT INTO segments (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	segment.CreatedAt = time.Now()
	segment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		segment.ID, segment.Name, segment.Description, segment.CreatedAt, segment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	return nil
}

func (r *segmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Segment, error) {
	query := `SELECT * FROM segments WHERE id = $1`
	var segment model.Segment
	if err := r.db.GetContext(ctx, &segment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &segment, nil
}

func (r *segmentRepository) Update(ctx context.Context, segment *model.Segment) error {
	query := `UPDATE segments SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	segment.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		segment.Name, segment.Description, segment.UpdatedAt, segment.ID)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}
	return nil
}

func (r *segmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM segments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	return nil
}

func (r *segmentRepository) List(ctx context.Context) ([]*model.Segment, error) {
	query := `SELECT * FROM segments ORDER BY name ASC`
	var segments []*model.Segment
	if err := r.db.SelectContext(ctx, &segments, query); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

func (r *segmentRepository) AddMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error {
	query := `
		INSERT INTO segment_members (segment_id, subscriber_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, segmentID, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to add segment member: %w", err)
	}
	return nil
}

func (r *segmentRepository) RemoveMember(ctx context.Context, segmentID, subscriberID uuid.UUID) error {
	query := `DELETE FROM segment_members WHERE segment_id = $1 AND subscriber_id = $2`
	_, err := r.db.ExecContext(ctx, query, segmentID, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to remove segment member: %w", err)
	}
	return nil
}

func (r *segmentRepository) ListMembers(ctx context.Context, segmentID uuid.UUID, p model.Pagination) ([]*model.Subscriber, int, error) {
	countQuery := `SELECT COUNT(*) FROM segment_members WHERE segment_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, segmentID); err != nil {
		return nil, 0, fmt.Errorf("failed to count segment members: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM subscribers s
		JOIN segment_members sm ON sm.subscriber_id = s.id
		WHERE sm.segment_id = $1
		ORDER BY s.email ASC
		LIMIT $2 OFFSET $3
	`, prefixColumns("s", subscriberColumns))

	var subs []*model.Subscriber
	if err := r.db.SelectContext(ctx, &subs, query, segmentID, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list segment members: %w", err)
	}
	return subs, total, nil
}
