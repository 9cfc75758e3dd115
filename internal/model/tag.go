package model

import (
	"github.com/google/uuid"
)

// Tag is an admin-only label attached to subscribers.
type Tag struct {
	Base
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Segment is an admin-defined grouping of subscribers used for targeting.
type Segment struct {
	Base
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// TagAssignment links a tag to a subscriber.
type TagAssignment struct {
	TagID        uuid.UUID `json:"tag_id" db:"tag_id"`
	SubscriberID uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
}

// SegmentMember links a segment to a subscriber.
type SegmentMember struct {
	SegmentID    uuid.UUID `json:"segment_id" db:"segment_id"`
	SubscriberID uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
}
