package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/security"
)

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (string, *model.StaffUser, error)
	ValidateToken(ctx context.Context, tokenString string) (*model.TokenClaims, error)
}

type service struct {
	repo   repository.StaffRepository
	hasher security.PasswordHasher
	cfg    config.JWTConfig
}

func NewService(repo repository.StaffRepository, cfg config.JWTConfig) Service {
	return &service{
		repo:   repo,
		hasher: security.NewBcryptHasher(0),
		cfg:    cfg,
	}
}

func (s *service) Login(ctx context.Context, req *model.LoginRequest) (string, *model.StaffUser, error) {
	staff, err := s.repo.GetByEmail(ctx, req.Email)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil, errors.Unauthorized(fmt.Errorf("unknown staff email"))
	}
	if err != nil {
		return "", nil, errors.Internal(err)
	}

	if err := s.hasher.Compare(staff.PasswordHash, req.Password); err != nil {
		return "", nil, errors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	claims := jwt.MapClaims{
		"sub":      staff.ID.String(),
		"email":    staff.Email,
		"is_admin": staff.IsAdmin,
		"exp":      time.Now().Add(time.Duration(s.cfg.ExpiryHours) * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", nil, errors.Internal(fmt.Errorf("failed to sign token: %w", err))
	}

	return signed, staff, nil
}

func (s *service) ValidateToken(ctx context.Context, tokenString string) (*model.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Unauthorized(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Unauthorized(fmt.Errorf("invalid claims"))
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	isAdmin, _ := claims["is_admin"].(bool)
	if sub == "" {
		return nil, errors.Unauthorized(fmt.Errorf("missing subject claim"))
	}

	return &model.TokenClaims{
		StaffID: sub,
		Email:   email,
		IsAdmin: isAdmin,
	}, nil
}
