package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClaimLost is returned by MarkNotified when the row no longer holds
	// the caller's claim: it was re-subscribed, deleted, or re-claimed by
	// another run after the claim expired.
	ErrClaimLost = errors.New("subscription claim lost")
)

// All repository interfaces in one file
type (
	// EventRepository stores club events
	EventRepository interface {
		Create(ctx context.Context, event *model.Event) error
		Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
		Update(ctx context.Context, event *model.Event) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error)
	}

	// SubscriptionRepository stores reminder opt-ins for both channels.
	//
	// Upserts reset the notified state of an existing (identity, event) pair.
	// Claim is an atomic conditional update: it returns false when the row is
	// already notified or claimed by someone else within ttl. The claim is
	// identified by at; Release and MarkNotified only act while the row
	// still carries that same claim.
	SubscriptionRepository interface {
		UpsertEmail(ctx context.Context, sub *model.EmailSubscription) error
		UpsertPush(ctx context.Context, sub *model.PushSubscription) error
		DeleteEmail(ctx context.Context, email string, eventID uuid.UUID) error
		DeletePush(ctx context.Context, endpoint string, eventID uuid.UUID) error

		ListPendingEmail(ctx context.Context) ([]model.PendingEmail, error)
		ListPendingPush(ctx context.Context) ([]model.PendingPush, error)

		Claim(ctx context.Context, id uuid.UUID, channel model.Channel, at time.Time, ttl time.Duration) (bool, error)
		Release(ctx context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error
		// MarkNotified confirms the claim made at claimedAt and records it as
		// the notification time.
		MarkNotified(ctx context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error
	}
)
