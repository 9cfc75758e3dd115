package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EngagementAction is the kind of recorded subscriber action.
type EngagementAction string

const (
	EngagementActionOpened  EngagementAction = "opened"
	EngagementActionClicked EngagementAction = "clicked"
	EngagementActionBounced EngagementAction = "bounced"
)

// Engagement is an append-only record of a subscriber action. Rows are
// written once and never mutated.
type Engagement struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	SubscriberID uuid.UUID        `json:"subscriber_id" db:"subscriber_id"`
	EmailSendID  *uuid.UUID       `json:"email_send_id,omitempty" db:"email_send_id"`
	Action       EngagementAction `json:"action" db:"action"`
	Metadata     json.RawMessage  `json:"metadata,omitempty" db:"metadata"`
	OccurredAt   time.Time        `json:"occurred_at" db:"occurred_at"`
}

// RecordEngagementRequest is the payload for recording an engagement.
type RecordEngagementRequest struct {
	Action      EngagementAction `json:"action" binding:"required"`
	EmailSendID *uuid.UUID       `json:"email_send_id"`
	Metadata    JSONMap          `json:"metadata"`
}
