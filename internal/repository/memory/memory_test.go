package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
)

func newEvent(title string, start time.Time, category model.Category) *model.Event {
	return &model.Event{
		Title:    title,
		Start:    start,
		End:      start.Add(2 * time.Hour),
		Location: model.Location{Label: "Main Hall"},
		Category: category,
	}
}

func TestEventCRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

	event := newEvent("Spring Open", start, model.CategoryTournament)
	event.Organizers = []string{"Ada"}
	require.NoError(t, s.Create(ctx, event))
	require.NotEqual(t, uuid.Nil, event.ID)

	event.Organizers[0] = "mutated"
	got, err := s.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, got.Organizers)

	got.Title = "Spring Open Final"
	require.NoError(t, s.Update(ctx, got))
	again, err := s.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring Open Final", again.Title)
	assert.Equal(t, event.CreatedAt, again.CreatedAt)

	require.NoError(t, s.Delete(ctx, event.ID))
	_, err = s.Get(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, event.ID), repository.ErrNotFound)
}

func TestListFiltersAndOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

	later := newEvent("Rebuttal workshop", base.Add(48*time.Hour), model.CategoryWorkshop)
	earlier := newEvent("Practice night", base, model.CategoryPractice)
	earlier.Featured = true
	require.NoError(t, s.Create(ctx, later))
	require.NoError(t, s.Create(ctx, earlier))

	all, err := s.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Practice night", all[0].Title)

	workshop := model.CategoryWorkshop
	featured := true
	from := base.Add(24 * time.Hour)

	tests := []struct {
		name    string
		filters *model.EventFilters
		want    []string
	}{
		{"category", &model.EventFilters{Category: &workshop}, []string{"Rebuttal workshop"}},
		{"featured", &model.EventFilters{Featured: &featured}, []string{"Practice night"}},
		{"from", &model.EventFilters{From: &from}, []string{"Rebuttal workshop"}},
		{"search is case-insensitive", &model.EventFilters{Search: "REBUTTAL"}, []string{"Rebuttal workshop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.List(ctx, tt.filters)
			require.NoError(t, err)
			var titles []string
			for _, e := range events {
				titles = append(titles, e.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestUpsertEmailResetsNotified(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	eventID := uuid.New()

	sub := &model.EmailSubscription{Email: "ada@example.com", EventID: eventID}
	require.NoError(t, s.UpsertEmail(ctx, sub))
	firstID := sub.ID
	at := time.Now()
	ok, err := s.Claim(ctx, firstID, model.ChannelEmail, at, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.MarkNotified(ctx, firstID, model.ChannelEmail, at))

	again := &model.EmailSubscription{Email: "ada@example.com", EventID: eventID}
	require.NoError(t, s.UpsertEmail(ctx, again))

	assert.Equal(t, firstID, again.ID)
	stored, ok := s.EmailSubscription(firstID)
	require.True(t, ok)
	assert.False(t, stored.Notified)
	assert.Nil(t, stored.NotifiedAt)
}

func TestPendingIncludesOrphans(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	event := newEvent("Spring Open", time.Now().Add(time.Hour), model.CategoryTournament)
	require.NoError(t, s.Create(ctx, event))

	require.NoError(t, s.UpsertPush(ctx, &model.PushSubscription{Endpoint: "https://push.example.com/a", EventID: event.ID}))
	require.NoError(t, s.UpsertPush(ctx, &model.PushSubscription{Endpoint: "https://push.example.com/b", EventID: uuid.New()}))

	pending, err := s.ListPendingPush(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	orphans := 0
	for _, p := range pending {
		if p.Event == nil {
			orphans++
		}
	}
	assert.Equal(t, 1, orphans)
}

func TestClaimLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	sub := &model.EmailSubscription{Email: "ada@example.com", EventID: uuid.New()}
	require.NoError(t, s.UpsertEmail(ctx, sub))

	ok, err := s.Claim(ctx, sub.ID, model.ChannelEmail, now, ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, sub.ID, model.ChannelEmail, now.Add(time.Minute), ttl)
	require.NoError(t, err)
	assert.False(t, ok, "live claim blocks a second claimant")

	ok, err = s.Claim(ctx, sub.ID, model.ChannelEmail, now.Add(11*time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, ok, "stale claim can be taken over")

	require.NoError(t, s.Release(ctx, sub.ID, model.ChannelEmail, now.Add(11*time.Minute)))
	ok, err = s.Claim(ctx, sub.ID, model.ChannelEmail, now.Add(12*time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.MarkNotified(ctx, sub.ID, model.ChannelEmail, now.Add(12*time.Minute)))
	ok, err = s.Claim(ctx, sub.ID, model.ChannelEmail, now.Add(time.Hour), ttl)
	require.NoError(t, err)
	assert.False(t, ok, "notified rows are never claimed")

	_, err = s.Claim(ctx, sub.ID, model.Channel("sms"), now, ttl)
	assert.Error(t, err)
}

func TestStaleClaimHolderCannotFinish(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	sub := &model.EmailSubscription{Email: "ada@example.com", EventID: uuid.New()}
	require.NoError(t, s.UpsertEmail(ctx, sub))

	ok, err := s.Claim(ctx, sub.ID, model.ChannelEmail, now, ttl)
	require.NoError(t, err)
	require.True(t, ok)
	takeover := now.Add(11 * time.Minute)
	ok, err = s.Claim(ctx, sub.ID, model.ChannelEmail, takeover, ttl)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, sub.ID, model.ChannelEmail, now))
	stored, _ := s.EmailSubscription(sub.ID)
	require.NotNil(t, stored.ClaimedAt)
	assert.True(t, stored.ClaimedAt.Equal(takeover), "late release keeps the newer claim")

	err = s.MarkNotified(ctx, sub.ID, model.ChannelEmail, now)
	assert.ErrorIs(t, err, repository.ErrClaimLost)
	require.NoError(t, s.MarkNotified(ctx, sub.ID, model.ChannelEmail, takeover))
}

func TestUpsertDropsClaim(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	eventID := uuid.New()

	sub := &model.EmailSubscription{Email: "ada@example.com", EventID: eventID}
	require.NoError(t, s.UpsertEmail(ctx, sub))
	ok, err := s.Claim(ctx, sub.ID, model.ChannelEmail, now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.UpsertEmail(ctx, &model.EmailSubscription{Email: "ada@example.com", EventID: eventID}))

	err = s.MarkNotified(ctx, sub.ID, model.ChannelEmail, now)
	assert.ErrorIs(t, err, repository.ErrClaimLost)
	stored, _ := s.EmailSubscription(sub.ID)
	assert.False(t, stored.Notified)
}

func TestDeleteSubscriptionMissing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteEmail(ctx, "ada@example.com", uuid.New()), repository.ErrNotFound)
	assert.ErrorIs(t, s.DeletePush(ctx, "https://push.example.com/a", uuid.New()), repository.ErrNotFound)
}
