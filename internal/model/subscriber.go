package model

import (
	"time"
)

// SubscriberStatus is the lifecycle state of a newsletter subscriber.
type SubscriberStatus string

const (
	SubscriberStatusPending      SubscriberStatus = "pending"
	SubscriberStatusActive       SubscriberStatus = "active"
	SubscriberStatusBounced      SubscriberStatus = "bounced"
	SubscriberStatusUnsubscribed SubscriberStatus = "unsubscribed"
)

// Supported newsletter languages
const (
	LanguageFR = "fr"
	LanguageEN = "en"
	LanguageES = "es"
)

// IsValidLanguage reports whether lang is one of the supported languages.
func IsValidLanguage(lang string) bool {
	switch lang {
	case LanguageFR, LanguageEN, LanguageES:
		return true
	}
	return false
}

// Subscriber is a newsletter recipient. A subscriber is created pending and
// only becomes active after the double opt-in confirmation click. Unsubscribe
// tokens stay valid until used; records are never deleted by public flows.
type Subscriber struct {
	Base
	Email          string           `json:"email" db:"email"`
	Language       string           `json:"language" db:"language"`
	Status         SubscriberStatus `json:"status" db:"status"`
	IsConfirmed    bool             `json:"is_confirmed" db:"is_confirmed"`
	IsActive       bool             `json:"is_active" db:"is_active"`
	ConfirmToken   string           `json:"-" db:"confirm_token"`
	UnsubToken     string           `json:"-" db:"unsub_token"`
	ConsentGivenAt time.Time        `json:"consent_given_at" db:"consent_given_at"`
	IPAddress      string           `json:"ip_address" db:"ip_address"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// SubscriberFilters narrows admin listing and export queries.
type SubscriberFilters struct {
	Status      SubscriberStatus `form:"status"`
	Language    string           `form:"language"`
	IsConfirmed *bool            `form:"is_confirmed"`
	Search      string           `form:"search"`
	Pagination
}

// SubscribeRequest is the public subscription intake payload.
type SubscribeRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Language string `json:"language"`
	Consent  bool   `json:"consent"`
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
