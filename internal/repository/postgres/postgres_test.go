package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
)

func newMock(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewBaseRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var eventColumnNames = []string{
	"id", "title", "start_at", "end_at", "location_label", "location_is_online", "location_link",
	"category", "description", "registration_url", "reminder_offset_minutes", "organizers",
	"featured", "created_at", "updated_at",
}

func TestEventGet(t *testing.T) {
	base, mock := newMock(t)
	repo := NewEventRepository(base)

	id := uuid.New()
	start := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(eventColumnNames).AddRow(
		id.String(), "Spring Open", start, start.Add(3*time.Hour), "Main Hall", false, nil,
		"tournament", "Four rounds", "https://example.com/register", int64(90), "{Alice,Bob}",
		true, start, start,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(rows)

	event, err := repo.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, event.ID)
	assert.Equal(t, "Spring Open", event.Title)
	assert.Equal(t, model.CategoryTournament, event.Category)
	assert.Nil(t, event.Location.Link)
	require.NotNil(t, event.RegistrationURL)
	assert.Equal(t, "https://example.com/register", *event.RegistrationURL)
	require.NotNil(t, event.ReminderOffsetMinutes)
	assert.Equal(t, 90, *event.ReminderOffsetMinutes)
	assert.Equal(t, []string{"Alice", "Bob"}, event.Organizers)
	assert.True(t, event.Featured)
}

func TestEventGetNotFound(t *testing.T) {
	base, mock := newMock(t)
	repo := NewEventRepository(base)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEventCreate(t *testing.T) {
	base, mock := newMock(t)
	repo := NewEventRepository(base)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &model.Event{
		Title:    "Practice night",
		Start:    time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC),
		Location: model.Location{Label: "Room 101"},
		Category: model.CategoryPractice,
	}
	require.NoError(t, repo.Create(context.Background(), event))

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, event.CreatedAt, event.UpdatedAt)
}

func TestEventUpdateAndDeleteMissing(t *testing.T) {
	base, mock := newMock(t)
	repo := NewEventRepository(base)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Event{ID: id, Category: model.CategoryWorkshop})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBuildEventListQuery(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	category := model.CategoryWorkshop
	featured := true

	tests := []struct {
		name      string
		filters   *model.EventFilters
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:    "no filters",
			filters: nil,
		},
		{
			name:      "category and range",
			filters:   &model.EventFilters{Category: &category, From: &from, To: &to},
			wantWhere: " WHERE category = $1 AND end_at >= $2 AND start_at <= $3",
			wantArgs:  []interface{}{"workshop", from, to},
		},
		{
			name:      "featured and search",
			filters:   &model.EventFilters{Featured: &featured, Search: "  rebuttal "},
			wantWhere: " WHERE featured = $1 AND (title ILIKE $2 OR description ILIKE $2)",
			wantArgs:  []interface{}{true, "%rebuttal%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildEventListQuery(tt.filters)

			assert.Equal(t, `SELECT `+eventColumns+` FROM events`+tt.wantWhere+` ORDER BY start_at ASC`, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEventList(t *testing.T) {
	base, mock := newMock(t)
	repo := NewEventRepository(base)

	start := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(eventColumnNames).
		AddRow(uuid.New().String(), "A", start, start, "Hall", true, "https://meet.example.com/a",
			"practice", "", nil, nil, nil, false, start, start).
		AddRow(uuid.New().String(), "B", start.Add(time.Hour), start.Add(2*time.Hour), "Hall", false, nil,
			"selection", "", nil, nil, "{}", false, start, start)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY start_at ASC")).WillReturnRows(rows)

	events, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "A", events[0].Title)
	require.NotNil(t, events[0].Location.Link)
	assert.Equal(t, "https://meet.example.com/a", *events[0].Location.Link)
	assert.Nil(t, events[0].ReminderOffsetMinutes)
	assert.Equal(t, model.CategorySelection, events[1].Category)
}
