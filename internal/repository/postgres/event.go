package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
)

const eventColumns = `
	id, title, start_at, end_at, location_label, location_is_online, location_link,
	category, description, registration_url, reminder_offset_minutes, organizers,
	featured, created_at, updated_at`

type eventRow struct {
	ID                    uuid.UUID      `db:"id"`
	Title                 string         `db:"title"`
	StartAt               time.Time      `db:"start_at"`
	EndAt                 time.Time      `db:"end_at"`
	LocationLabel         string         `db:"location_label"`
	LocationIsOnline      bool           `db:"location_is_online"`
	LocationLink          sql.NullString `db:"location_link"`
	Category              string         `db:"category"`
	Description           string         `db:"description"`
	RegistrationURL       sql.NullString `db:"registration_url"`
	ReminderOffsetMinutes sql.NullInt32  `db:"reminder_offset_minutes"`
	Organizers            pq.StringArray `db:"organizers"`
	Featured              bool           `db:"featured"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (r eventRow) toModel() *model.Event {
	return &model.Event{
		ID:    r.ID,
		Title: r.Title,
		Start: r.StartAt,
		End:   r.EndAt,
		Location: model.Location{
			Label:    r.LocationLabel,
			IsOnline: r.LocationIsOnline,
			Link:     nullString(r.LocationLink),
		},
		Category:              model.Category(r.Category),
		Description:           r.Description,
		RegistrationURL:       nullString(r.RegistrationURL),
		ReminderOffsetMinutes: nullInt(r.ReminderOffsetMinutes),
		Organizers:            []string(r.Organizers),
		Featured:              r.Featured,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) repository.EventRepository {
	return &eventRepository{base}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (
			id, title, start_at, end_at, location_label, location_is_online, location_link,
			category, description, registration_url, reminder_offset_minutes, organizers,
			featured, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Start,
		event.End,
		event.Location.Label,
		event.Location.IsOnline,
		event.Location.Link,
		string(event.Category),
		event.Description,
		event.RegistrationURL,
		event.ReminderOffsetMinutes,
		pq.StringArray(event.Organizers),
		event.Featured,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var row eventRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return row.toModel(), nil
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	query := `
		UPDATE events
		SET title = $1, start_at = $2, end_at = $3, location_label = $4,
			location_is_online = $5, location_link = $6, category = $7,
			description = $8, registration_url = $9, reminder_offset_minutes = $10,
			organizers = $11, featured = $12, updated_at = $13
		WHERE id = $14
	`
	event.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Start,
		event.End,
		event.Location.Label,
		event.Location.IsOnline,
		event.Location.Link,
		string(event.Category),
		event.Description,
		event.RegistrationURL,
		event.ReminderOffsetMinutes,
		pq.StringArray(event.Organizers),
		event.Featured,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return expectAffected(result, "event "+event.ID.String())
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectAffected(result, "event "+id.String())
}

func (r *eventRepository) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	query, args := buildEventListQuery(filters)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toModel())
	}
	return events, nil
}

func buildEventListQuery(filters *model.EventFilters) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filters != nil {
		if filters.Category != nil {
			add("category = $%d", string(*filters.Category))
		}
		if filters.From != nil {
			add("end_at >= $%d", *filters.From)
		}
		if filters.To != nil {
			add("start_at <= $%d", *filters.To)
		}
		if filters.Featured != nil {
			add("featured = $%d", *filters.Featured)
		}
		if s := strings.TrimSpace(filters.Search); s != "" {
			args = append(args, "%"+s+"%")
			where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_at ASC`
	return query, args
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt32) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int32)
	return &v
}
