package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types emitted through the outbox
const (
	EventConfirmationRequested  = "subscriber.confirmation_requested"
	EventSubscriberConfirmed    = "subscriber.confirmed"
	EventSubscriberUnsubscribed = "subscriber.unsubscribed"
)

// OutboxEvent is a pending side effect written in the same transaction as the
// state change that produced it. A worker drains the table and publishes.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// ConfirmationRequestedPayload is the payload of EventConfirmationRequested.
type ConfirmationRequestedPayload struct {
	SubscriberID uuid.UUID `json:"subscriber_id"`
	Email        string    `json:"email"`
	Language     string    `json:"language"`
	ConfirmToken string    `json:"confirm_token"`
}

// SubscriberEventPayload is the payload of confirmed/unsubscribed events.
type SubscriberEventPayload struct {
	SubscriberID uuid.UUID `json:"subscriber_id"`
	Email        string    `json:"email"`
	Language     string    `json:"language"`
}
