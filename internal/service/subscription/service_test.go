package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository/memory"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
)

func setup(t *testing.T) (*Service, *memory.Store, *model.Event) {
	t.Helper()
	store := memory.NewStore()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := &model.Event{
		Title:    "Open Round",
		Start:    start,
		End:      start.Add(time.Hour),
		Location: model.Location{Label: "Hall"},
		Category: model.CategoryPractice,
	}
	require.NoError(t, store.Create(context.Background(), event))
	return NewService(store, store, nil), store, event
}

func TestSubscribeEmail(t *testing.T) {
	svc, store, event := setup(t)

	sub := &model.EmailSubscription{Email: "  Debater@Example.com ", EventID: event.ID}
	require.NoError(t, svc.SubscribeEmail(context.Background(), sub))

	stored, ok := store.EmailSubscription(sub.ID)
	require.True(t, ok)
	assert.Equal(t, "debater@example.com", stored.Email)
	assert.False(t, stored.Notified)
}

func TestSubscribeEmailRejectsBadInput(t *testing.T) {
	svc, _, event := setup(t)

	err := svc.SubscribeEmail(context.Background(), &model.EmailSubscription{Email: "not-an-email", EventID: event.ID})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)

	err = svc.SubscribeEmail(context.Background(), &model.EmailSubscription{Email: "a@example.com", EventID: uuid.New()})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestResubscribeResetsNotified(t *testing.T) {
	svc, store, event := setup(t)
	ctx := context.Background()

	first := &model.EmailSubscription{Email: "a@example.com", EventID: event.ID}
	require.NoError(t, svc.SubscribeEmail(ctx, first))
	at := time.Now()
	claimed, err := store.Claim(ctx, first.ID, model.ChannelEmail, at, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.MarkNotified(ctx, first.ID, model.ChannelEmail, at))

	offset := 15
	second := &model.EmailSubscription{Email: "A@example.com", EventID: event.ID, CustomOffsetMinutes: &offset}
	require.NoError(t, svc.SubscribeEmail(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	stored, _ := store.EmailSubscription(first.ID)
	assert.False(t, stored.Notified)
	assert.Nil(t, stored.NotifiedAt)
	require.NotNil(t, stored.CustomOffsetMinutes)
	assert.Equal(t, 15, *stored.CustomOffsetMinutes)
}

func TestUnsubscribe(t *testing.T) {
	svc, _, event := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.SubscribeEmail(ctx, &model.EmailSubscription{Email: "a@example.com", EventID: event.ID}))
	require.NoError(t, svc.UnsubscribeEmail(ctx, "A@example.com", event.ID))

	err := svc.UnsubscribeEmail(ctx, "a@example.com", event.ID)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)

	push := &model.PushSubscription{
		Endpoint: "https://push.example.com/x",
		Keys:     model.PushKeys{P256dh: "p", Auth: "a"},
		EventID:  event.ID,
	}
	require.NoError(t, svc.SubscribePush(ctx, push))
	require.NoError(t, svc.UnsubscribePush(ctx, push.Endpoint, event.ID))
}

func TestSubscribePushRequiresKeys(t *testing.T) {
	svc, _, event := setup(t)

	err := svc.SubscribePush(context.Background(), &model.PushSubscription{Endpoint: "https://push.example.com/x", EventID: event.ID})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}
