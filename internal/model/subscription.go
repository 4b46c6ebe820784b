package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery mechanism of a reminder.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush:
		return true
	}
	return false
}

type EmailSubscription struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	EventID             uuid.UUID  `json:"event_id"`
	CustomOffsetMinutes *int       `json:"custom_offset_minutes,omitempty"`
	Notified            bool       `json:"notified"`
	NotifiedAt          *time.Time `json:"notified_at,omitempty"`
	ClaimedAt           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PushKeys are the browser-issued credentials of a push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

type PushSubscription struct {
	ID                  uuid.UUID  `json:"id"`
	Endpoint            string     `json:"endpoint"`
	Keys                PushKeys   `json:"keys"`
	ExpirationTime      *time.Time `json:"expiration_time,omitempty"`
	EventID             uuid.UUID  `json:"event_id"`
	CustomOffsetMinutes *int       `json:"custom_offset_minutes,omitempty"`
	Notified            bool       `json:"notified"`
	NotifiedAt          *time.Time `json:"notified_at,omitempty"`
	ClaimedAt           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Expired reports whether the browser declared the subscription dead by now.
func (s *PushSubscription) Expired(now time.Time) bool {
	return s.ExpirationTime != nil && !now.Before(*s.ExpirationTime)
}

// PendingEmail pairs a not-yet-notified email subscription with its event.
// Event is nil when the referenced event no longer exists.
type PendingEmail struct {
	Subscription EmailSubscription
	Event        *Event
}

// PendingPush pairs a not-yet-notified push subscription with its event.
// Event is nil when the referenced event no longer exists.
type PendingPush struct {
	Subscription PushSubscription
	Event        *Event
}

// DispatchResult is the aggregate outcome of one reminder run.
type DispatchResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
