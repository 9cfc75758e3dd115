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

type resourceRepository struct {
	db *sqlx.DB
}

func NewResourceRepository(db *sqlx.DB) repository.ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	query := `
		INSERT INTO resources (id, filename, content_type, size, storage_key, status, upload_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	resource.CreatedAt = time.Now()
	resource.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		resource.ID, resource.Filename, resource.ContentType, resource.Size,
		resource.StorageKey, resource.Status, resource.UploadID,
		resource.CreatedAt, resource.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	query := `SELECT * FROM resources WHERE id = $1`
	var resource model.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &resource, nil
}

func (r *resourceRepository) Update(ctx context.Context, resource *model.Resource) error {
	query := `
		UPDATE resources
		SET size = $1, status = $2, upload_id = $3, updated_at = $4
		WHERE id = $5
	`
	resource.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		resource.Size, resource.Status, resource.UploadID, resource.UpdatedAt, resource.ID)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM resources WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) List(ctx context.Context, p model.Pagination) ([]*model.Resource, int, error) {
	countQuery := `SELECT COUNT(*) FROM resources`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to count resources: %w", err)
	}

	query := `SELECT * FROM resources ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var resources []*model.Resource
	if err := r.db.SelectContext(ctx, &resources, query, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, total, nil
}
