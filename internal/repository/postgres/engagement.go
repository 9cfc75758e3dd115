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

type engagementRepository struct {
	db *sqlx.DB
}

func NewEngagementRepository(db *sqlx.DB) repository.EngagementRepository {
	return &engagementRepository{db: db}
}

// Create appends an engagement row. There is intentionally no update or
// delete path; the table is write-once.
func (r *engagementRepository) Create(ctx context.Context, engagement *model.Engagement) error {
	query := `
		INSERT INTO engagements (id, subscriber_id, email_send_id, action, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if engagement.OccurredAt.IsZero() {
		engagement.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		engagement.ID,
		engagement.SubscriberID,
		engagement.EmailSendID,
		engagement.Action,
		engagement.Metadata,
		engagement.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}
	return nil
}

func (r *engagementRepository) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID, p model.Pagination) ([]*model.Engagement, int, error) {
	countQuery := `SELECT COUNT(*) FROM engagements WHERE subscriber_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, subscriberID); err != nil {
		return nil, 0, fmt.Errorf("failed to count engagements: %w", err)
	}

	query := `
		SELECT id, subscriber_id, email_send_id, action, metadata, occurred_at
		FROM engagements
		WHERE subscriber_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
	var engagements []*model.Engagement
	if err := r.db.SelectContext(ctx, &engagements, query, subscriberID, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list engagements: %w", err)
	}
	return engagements, total, nil
}
