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

type tagRepository struct {
	db *sqlx.DB
}

func NewTagRepository(db *sqlx.DB) repository.TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	query := `
		INSERT INTO tags (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	tag.CreatedAt = time.Now()
	tag.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		tag.ID, tag.Name, tag.Description, tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (r *tagRepository) Get(ctx context.Context, id uuid.UUID) (*model.Tag, error) {
	query := `SELECT * FROM tags WHERE id = $1`
	var tag model.Tag
	if err := r.db.GetContext(ctx, &tag, query, id); err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *model.Tag) error {
	query := `UPDATE tags SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	tag.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, tag.Name, tag.Description, tag.UpdatedAt, tag.ID)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tags WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

func (r *tagRepository) List(ctx context.Context) ([]*model.Tag, error) {
	query := `SELECT * FROM tags ORDER BY name ASC`
	var tags []*model.Tag
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (r *tagRepository) Assign(ctx context.Context, tagID, subscriberID uuid.UUID) error {
	query := `
		INSERT INTO subscriber_tags (tag_id, subscriber_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, tagID, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to assign tag: %w", err)
	}
	return nil
}

func (r *tagRepository) Remove(ctx context.Context, tagID, subscriberID uuid.UUID) error {
	query := `DELETE FROM subscriber_tags WHERE tag_id = $1 AND subscriber_id = $2`
	_, err := r.db.ExecContext(ctx, query, tagID, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to remove tag: %w", err)
	}
	return nil
}

func (r *tagRepository) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*model.Tag, error) {
	query := `
		SELECT t.id, t.name, t.description, t.created_at, t.updated_at
		FROM tags t
		JOIN subscriber_tags st ON st.tag_id = t.id
		WHERE st.subscriber_id = $1
		ORDER BY t.name ASC
	`
	var tags []*model.Tag
	if err := r.db.SelectContext(ctx, &tags, query, subscriberID); err != nil {
		return nil, fmt.Errorf("failed to list subscriber tags: %w", err)
	}
	return tags, nil
}
