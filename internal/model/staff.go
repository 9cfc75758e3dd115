package model

// StaffUser is an administrator account. All /admin routes require a valid
// staff JWT.
type StaffUser struct {
	Base
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Name         string `json:"name" db:"name"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
}

// LoginRequest is the staff login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenClaims carries the identity embedded in a staff JWT.
type TokenClaims struct {
	StaffID string
	Email   string
	IsAdmin bool
}
