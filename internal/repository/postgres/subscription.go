package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
)

// joinedEventColumns selects the event side of a LEFT JOIN under an e_ prefix.
const joinedEventColumns = `
	e.id AS e_id, e.title AS e_title, e.start_at AS e_start_at, e.end_at AS e_end_at,
	e.location_label AS e_location_label, e.location_is_online AS e_location_is_online,
	e.location_link AS e_location_link, e.category AS e_category,
	e.description AS e_description, e.registration_url AS e_registration_url,
	e.reminder_offset_minutes AS e_reminder_offset_minutes, e.organizers AS e_organizers,
	e.featured AS e_featured, e.created_at AS e_created_at, e.updated_at AS e_updated_at`

// joinedEventRow is nullable throughout because the event may be gone.
type joinedEventRow struct {
	ID                    *uuid.UUID     `db:"e_id"`
	Title                 sql.NullString `db:"e_title"`
	StartAt               sql.NullTime   `db:"e_start_at"`
	EndAt                 sql.NullTime   `db:"e_end_at"`
	LocationLabel         sql.NullString `db:"e_location_label"`
	LocationIsOnline      sql.NullBool   `db:"e_location_is_online"`
	LocationLink          sql.NullString `db:"e_location_link"`
	Category              sql.NullString `db:"e_category"`
	Description           sql.NullString `db:"e_description"`
	RegistrationURL       sql.NullString `db:"e_registration_url"`
	ReminderOffsetMinutes sql.NullInt32  `db:"e_reminder_offset_minutes"`
	Organizers            pq.StringArray `db:"e_organizers"`
	Featured              sql.NullBool   `db:"e_featured"`
	CreatedAt             sql.NullTime   `db:"e_created_at"`
	UpdatedAt             sql.NullTime   `db:"e_updated_at"`
}

func (r joinedEventRow) toModel() *model.Event {
	if r.ID == nil {
		return nil
	}
	return eventRow{
		ID:                    *r.ID,
		Title:                 r.Title.String,
		StartAt:               r.StartAt.Time,
		EndAt:                 r.EndAt.Time,
		LocationLabel:         r.LocationLabel.String,
		LocationIsOnline:      r.LocationIsOnline.Bool,
		LocationLink:          r.LocationLink,
		Category:              r.Category.String,
		Description:           r.Description.String,
		RegistrationURL:       r.RegistrationURL,
		ReminderOffsetMinutes: r.ReminderOffsetMinutes,
		Organizers:            r.Organizers,
		Featured:              r.Featured.Bool,
		CreatedAt:             r.CreatedAt.Time,
		UpdatedAt:             r.UpdatedAt.Time,
	}.toModel()
}

type pendingEmailRow struct {
	ID                  uuid.UUID     `db:"id"`
	Email               string        `db:"email"`
	EventID             uuid.UUID     `db:"event_id"`
	CustomOffsetMinutes sql.NullInt32 `db:"custom_offset_minutes"`
	Notified            bool          `db:"notified"`
	NotifiedAt          *time.Time    `db:"notified_at"`
	ClaimedAt           *time.Time    `db:"claimed_at"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
	joinedEventRow
}

type pendingPushRow struct {
	ID                  uuid.UUID     `db:"id"`
	Endpoint            string        `db:"endpoint"`
	P256dh              string        `db:"p256dh"`
	Auth                string        `db:"auth"`
	ExpirationTime      *time.Time    `db:"expiration_time"`
	EventID             uuid.UUID     `db:"event_id"`
	CustomOffsetMinutes sql.NullInt32 `db:"custom_offset_minutes"`
	Notified            bool          `db:"notified"`
	NotifiedAt          *time.Time    `db:"notified_at"`
	ClaimedAt           *time.Time    `db:"claimed_at"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
	joinedEventRow
}

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func subscriptionTable(channel model.Channel) (string, error) {
	switch channel {
	case model.ChannelEmail:
		return "email_subscriptions", nil
	case model.ChannelPush:
		return "push_subscriptions", nil
	}
	return "", fmt.Errorf("unknown channel %q", channel)
}

func (r *subscriptionRepository) UpsertEmail(ctx context.Context, sub *model.EmailSubscription) error {
	query := `
		INSERT INTO email_subscriptions (
			id, email, event_id, custom_offset_minutes, notified, notified_at,
			claimed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, false, NULL, NULL, $5, $5
		)
		ON CONFLICT (email, event_id) DO UPDATE SET
			custom_offset_minutes = EXCLUDED.custom_offset_minutes,
			notified = false,
			notified_at = NULL,
			claimed_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := r.db.QueryRowxContext(ctx, query,
		uuid.New(),
		sub.Email,
		sub.EventID,
		sub.CustomOffsetMinutes,
		now,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email subscription: %w", err)
	}

	sub.Notified = false
	sub.NotifiedAt = nil
	sub.ClaimedAt = nil
	sub.UpdatedAt = now
	return nil
}

func (r *subscriptionRepository) UpsertPush(ctx context.Context, sub *model.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (
			id, endpoint, p256dh, auth, expiration_time, event_id, custom_offset_minutes,
			notified, notified_at, claimed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, false, NULL, NULL, $8, $8
		)
		ON CONFLICT (endpoint, event_id) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			expiration_time = EXCLUDED.expiration_time,
			custom_offset_minutes = EXCLUDED.custom_offset_minutes,
			notified = false,
			notified_at = NULL,
			claimed_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := r.db.QueryRowxContext(ctx, query,
		uuid.New(),
		sub.Endpoint,
		sub.Keys.P256dh,
		sub.Keys.Auth,
		sub.ExpirationTime,
		sub.EventID,
		sub.CustomOffsetMinutes,
		now,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}

	sub.Notified = false
	sub.NotifiedAt = nil
	sub.ClaimedAt = nil
	sub.UpdatedAt = now
	return nil
}

func (r *subscriptionRepository) DeleteEmail(ctx context.Context, email string, eventID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM email_subscriptions WHERE email = $1 AND event_id = $2`, email, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete email subscription: %w", err)
	}
	return expectAffected(result, "email subscription")
}

func (r *subscriptionRepository) DeletePush(ctx context.Context, endpoint string, eventID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1 AND event_id = $2`, endpoint, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return expectAffected(result, "push subscription")
}

func (r *subscriptionRepository) ListPendingEmail(ctx context.Context) ([]model.PendingEmail, error) {
	query := `
		SELECT
			s.id, s.email, s.event_id, s.custom_offset_minutes, s.notified,
			s.notified_at, s.claimed_at, s.created_at, s.updated_at,` + joinedEventColumns + `
		FROM email_subscriptions s
		LEFT JOIN events e ON e.id = s.event_id
		WHERE s.notified = false
	`
	var rows []pendingEmailRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list pending email subscriptions: %w", err)
	}

	pending := make([]model.PendingEmail, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, model.PendingEmail{
			Subscription: model.EmailSubscription{
				ID:                  row.ID,
				Email:               row.Email,
				EventID:             row.EventID,
				CustomOffsetMinutes: nullInt(row.CustomOffsetMinutes),
				Notified:            row.Notified,
				NotifiedAt:          row.NotifiedAt,
				ClaimedAt:           row.ClaimedAt,
				CreatedAt:           row.CreatedAt,
				UpdatedAt:           row.UpdatedAt,
			},
			Event: row.joinedEventRow.toModel(),
		})
	}
	return pending, nil
}

func (r *subscriptionRepository) ListPendingPush(ctx context.Context) ([]model.PendingPush, error) {
	query := `
		SELECT
			s.id, s.endpoint, s.p256dh, s.auth, s.expiration_time, s.event_id,
			s.custom_offset_minutes, s.notified, s.notified_at, s.claimed_at,
			s.created_at, s.updated_at,` + joinedEventColumns + `
		FROM push_subscriptions s
		LEFT JOIN events e ON e.id = s.event_id
		WHERE s.notified = false
	`
	var rows []pendingPushRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list pending push subscriptions: %w", err)
	}

	pending := make([]model.PendingPush, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, model.PendingPush{
			Subscription: model.PushSubscription{
				ID:       row.ID,
				Endpoint: row.Endpoint,
				Keys: model.PushKeys{
					P256dh: row.P256dh,
					Auth:   row.Auth,
				},
				ExpirationTime:      row.ExpirationTime,
				EventID:             row.EventID,
				CustomOffsetMinutes: nullInt(row.CustomOffsetMinutes),
				Notified:            row.Notified,
				NotifiedAt:          row.NotifiedAt,
				ClaimedAt:           row.ClaimedAt,
				CreatedAt:           row.CreatedAt,
				UpdatedAt:           row.UpdatedAt,
			},
			Event: row.joinedEventRow.toModel(),
		})
	}
	return pending, nil
}

// claimInstant is the claim identity as Postgres stores it (microseconds).
func claimInstant(at time.Time) time.Time {
	return at.Truncate(time.Microsecond)
}

func (r *subscriptionRepository) Claim(ctx context.Context, id uuid.UUID, channel model.Channel, at time.Time, ttl time.Duration) (bool, error) {
	table, err := subscriptionTable(channel)
	if err != nil {
		return false, err
	}

	at = claimInstant(at)
	query := `
		UPDATE ` + table + `
		SET claimed_at = $2, updated_at = $2
		WHERE id = $1
		AND notified = false
		AND (claimed_at IS NULL OR claimed_at < $3)
	`
	result, err := r.db.ExecContext(ctx, query, id, at, at.Add(-ttl))
	if err != nil {
		return false, fmt.Errorf("failed to claim %s subscription: %w", channel, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// Release is a no-op when the row no longer carries the claim.
func (r *subscriptionRepository) Release(ctx context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error {
	table, err := subscriptionTable(channel)
	if err != nil {
		return err
	}

	query := `
		UPDATE ` + table + `
		SET claimed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND notified = false AND claimed_at = $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, claimInstant(claimedAt)); err != nil {
		return fmt.Errorf("failed to release %s subscription: %w", channel, err)
	}
	return nil
}

func (r *subscriptionRepository) MarkNotified(ctx context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error {
	table, err := subscriptionTable(channel)
	if err != nil {
		return err
	}

	query := `
		UPDATE ` + table + `
		SET notified = true, notified_at = $2, claimed_at = NULL, updated_at = $2
		WHERE id = $1 AND notified = false AND claimed_at = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, claimInstant(claimedAt))
	if err != nil {
		return fmt.Errorf("failed to mark %s subscription notified: %w", channel, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s subscription %s: %w", channel, id, repository.ErrClaimLost)
	}
	return nil
}
