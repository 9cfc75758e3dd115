package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/pkg/security"
)

type fakeStaffRepo struct {
	users map[string]*model.StaffUser
}

func (r *fakeStaffRepo) Create(ctx context.Context, staff *model.StaffUser) error {
	r.users[staff.Email] = staff
	return nil
}

func (r *fakeStaffRepo) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	staff, ok := r.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return staff, nil
}

func (r *fakeStaffRepo) Get(ctx context.Context, id uuid.UUID) (*model.StaffUser, error) {
	for _, staff := range r.users {
		if staff.ID == id {
			return staff, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newTestAuthService(t *testing.T) (Service, *model.StaffUser) {
	t.Helper()

	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("correct-horse-battery")
	require.NoError(t, err)

	staff := &model.StaffUser{
		Base:         model.Base{ID: uuid.New()},
		Email:        "editor@lettermill.io",
		PasswordHash: hash,
		Name:         "Editor",
		IsAdmin:      true,
	}
	repo := &fakeStaffRepo{users: map[string]*model.StaffUser{staff.Email: staff}}

	svc := NewService(repo, config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
	return svc, staff
}

func TestLoginAndValidateToken(t *testing.T) {
	svc, staff := newTestAuthService(t)
	ctx := context.Background()

	token, loggedIn, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "editor@lettermill.io",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, staff.ID, loggedIn.ID)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID.String(), claims.StaffID)
	assert.Equal(t, staff.Email, claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "editor@lettermill.io",
		Password: "wrong",
	})
	require.Error(t, err)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "ghost@lettermill.io",
		Password: "whatever",
	})
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
	require.Error(t, err)
}
