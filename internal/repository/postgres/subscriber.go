package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

const subscriberColumns = `id, email, language, status, is_confirmed, is_active,
	confirm_token, unsub_token, consent_given_at, ip_address, confirmed_at,
	created_at, updated_at`

type subscriberRepository struct {
	db *sqlx.DB
}

func NewSubscriberRepository(db *sqlx.DB) repository.SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) Create(ctx context.Context, sub *model.Subscriber) error {
	query := `
		INSERT INTO subscribers (
			id, email, language, status, is_confirmed, is_active,
			confirm_token, unsub_token, consent_given_at, ip_address,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.Email,
		sub.Language,
		sub.Status,
		sub.IsConfirmed,
		sub.IsActive,
		sub.ConfirmToken,
		sub.UnsubToken,
		sub.ConsentGivenAt,
		sub.IPAddress,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscribers WHERE id = $1`, subscriberColumns)
	var sub model.Subscriber
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return &sub, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	// The unique index is on LOWER(email); match it so mixed-case input
	// cannot slip past the duplicate check.
	query := fmt.Sprintf(`SELECT %s FROM subscribers WHERE LOWER(email) = LOWER($1)`, subscriberColumns)
	var sub model.Subscriber
	err := r.db.GetContext(ctx, &sub, query, email)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber by email: %w", err)
	}
	return &sub, nil
}

func (r *subscriberRepository) GetByConfirmToken(ctx context.Context, token string) (*model.Subscriber, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscribers WHERE confirm_token = $1`, subscriberColumns)
	var sub model.Subscriber
	err := r.db.GetContext(ctx, &sub, query, token)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber by confirm token: %w", err)
	}
	return &sub, nil
}

func (r *subscriberRepository) GetByUnsubToken(ctx context.Context, token string) (*model.Subscriber, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscribers WHERE unsub_token = $1`, subscriberColumns)
	var sub model.Subscriber
	err := r.db.GetContext(ctx, &sub, query, token)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber by unsub token: %w", err)
	}
	return &sub, nil
}

func (r *subscriberRepository) Update(ctx context.Context, sub *model.Subscriber) error {
	query := `
		UPDATE subscribers
		SET email = $1, language = $2, status = $3, is_confirmed = $4,
			is_active = $5, updated_at = $6
		WHERE id = $7
	`
	sub.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		sub.Email, sub.Language, sub.Status, sub.IsConfirmed,
		sub.IsActive, sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) UpdateConfirmToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE subscribers SET confirm_token = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update confirm token: %w", err)
	}
	return nil
}

func (r *subscriberRepository) Confirm(ctx context.Context, token string, confirmedAt time.Time) (bool, error) {
	query := `
		UPDATE subscribers
		SET status = $1, is_confirmed = TRUE, is_active = TRUE,
			confirmed_at = $2, updated_at = $3
		WHERE confirm_token = $4 AND is_confirmed = FALSE
	`
	res, err := r.db.ExecContext(ctx, query,
		model.SubscriberStatusActive, confirmedAt, time.Now(), token)
	if err != nil {
		return false, fmt.Errorf("failed to confirm subscriber: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *subscriberRepository) Unsubscribe(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE subscribers
		SET status = $1, is_active = FALSE, updated_at = $2
		WHERE unsub_token = $3 AND status <> $1
	`
	res, err := r.db.ExecContext(ctx, query,
		model.SubscriberStatusUnsubscribed, time.Now(), token)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe subscriber: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *subscriberRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	query := `
		UPDATE subscribers
		SET status = $1,
			is_active = CASE WHEN $1 IN ('bounced', 'unsubscribed') THEN FALSE ELSE is_active END,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set subscriber status: %w", err)
	}
	return nil
}

func (r *subscriberRepository) List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error) {
	where, args := buildSubscriberFilter(filters)

	countQuery := `SELECT COUNT(*) FROM subscribers` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscribers: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM subscribers%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		subscriberColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filters.PageSize, filters.Offset())

	var subs []*model.Subscriber
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, total, nil
}

func (r *subscriberRepository) Each(ctx context.Context, filters *model.SubscriberFilters, fn func(*model.Subscriber) error) error {
	where, args := buildSubscriberFilter(filters)
	query := fmt.Sprintf(`SELECT %s FROM subscribers%s ORDER BY created_at ASC`, subscriberColumns, where)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sub model.Subscriber
		if err := rows.StructScan(&sub); err != nil {
			return fmt.Errorf("failed to scan subscriber: %w", err)
		}
		if err := fn(&sub); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *subscriberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM subscribers WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	return nil
}

func buildSubscriberFilter(filters *model.SubscriberFilters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filters.Status != "" {
		args = append(args, filters.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Language != "" {
		args = append(args, filters.Language)
		clauses = append(clauses, fmt.Sprintf("language = $%d", len(args)))
	}
	if filters.IsConfirmed != nil {
		args = append(args, *filters.IsConfirmed)
		clauses = append(clauses, fmt.Sprintf("is_confirmed = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+strings.ToLower(filters.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(email) LIKE $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
