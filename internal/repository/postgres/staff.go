package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

type staffRepository struct {
	db *sqlx.DB
}

func NewStaffRepository(db *sqlx.DB) repository.StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *model.StaffUser) error {
	query := `
		INSERT INTO staff_users (id, email, password_hash, name, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		staff.ID, staff.Email, staff.PasswordHash, staff.Name, staff.IsAdmin,
		staff.CreatedAt, staff.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create staff user: %w", err)
	}
	return nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	query := `SELECT * FROM staff_users WHERE email = $1`
	var staff model.StaffUser
	err := r.db.GetContext(ctx, &staff, query, email)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user by email: %w", err)
	}
	return &staff, nil
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.StaffUser, error) {
	query := `SELECT * FROM staff_users WHERE id = $1`
	var staff model.StaffUser
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &staff, nil
}
