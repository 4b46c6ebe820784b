// Package memory keeps events and subscriptions in process memory. It backs
// local development (database.driver: memory) and tests; all data is lost
// on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
)

type emailKey struct {
	email   string
	eventID uuid.UUID
}

type pushKey struct {
	endpoint string
	eventID  uuid.UUID
}

// Store implements both repository.EventRepository and
// repository.SubscriptionRepository over one lock.
type Store struct {
	mu     sync.RWMutex
	events map[uuid.UUID]model.Event
	emails map[uuid.UUID]model.EmailSubscription
	pushes map[uuid.UUID]model.PushSubscription

	emailIndex map[emailKey]uuid.UUID
	pushIndex  map[pushKey]uuid.UUID

	now func() time.Time
}

var (
	_ repository.EventRepository        = (*Store)(nil)
	_ repository.SubscriptionRepository = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		events:     make(map[uuid.UUID]model.Event),
		emails:     make(map[uuid.UUID]model.EmailSubscription),
		pushes:     make(map[uuid.UUID]model.PushSubscription),
		emailIndex: make(map[emailKey]uuid.UUID),
		pushIndex:  make(map[pushKey]uuid.UUID),
		now:        time.Now,
	}
}

func (s *Store) Create(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.ID] = cloneEvent(*event)
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	e := cloneEvent(event)
	return &e, nil
}

func (s *Store) Update(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return fmt.Errorf("event %s: %w", event.ID, repository.ErrNotFound)
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = s.now()
	s.events[event.ID] = cloneEvent(*event)
	return nil
}

// Delete removes the event only. Its subscriptions stay behind as orphans,
// which the dispatcher must tolerate.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

func (s *Store) List(_ context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*model.Event, 0, len(s.events))
	for _, event := range s.events {
		if !matches(event, filters) {
			continue
		}
		e := cloneEvent(event)
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func matches(e model.Event, f *model.EventFilters) bool {
	if f == nil {
		return true
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.From != nil && e.End.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Start.After(*f.To) {
		return false
	}
	if f.Featured != nil && e.Featured != *f.Featured {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	return true
}

func (s *Store) UpsertEmail(_ context.Context, sub *model.EmailSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := emailKey{email: sub.Email, eventID: sub.EventID}
	if id, ok := s.emailIndex[key]; ok {
		existing := s.emails[id]
		sub.ID = id
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = uuid.New()
		sub.CreatedAt = now
		s.emailIndex[key] = sub.ID
	}
	sub.Notified = false
	sub.NotifiedAt = nil
	sub.ClaimedAt = nil
	sub.UpdatedAt = now
	s.emails[sub.ID] = *sub
	return nil
}

func (s *Store) UpsertPush(_ context.Context, sub *model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := pushKey{endpoint: sub.Endpoint, eventID: sub.EventID}
	if id, ok := s.pushIndex[key]; ok {
		existing := s.pushes[id]
		sub.ID = id
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = uuid.New()
		sub.CreatedAt = now
		s.pushIndex[key] = sub.ID
	}
	sub.Notified = false
	sub.NotifiedAt = nil
	sub.ClaimedAt = nil
	sub.UpdatedAt = now
	s.pushes[sub.ID] = *sub
	return nil
}

func (s *Store) DeleteEmail(_ context.Context, email string, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey{email: email, eventID: eventID}
	id, ok := s.emailIndex[key]
	if !ok {
		return fmt.Errorf("email subscription: %w", repository.ErrNotFound)
	}
	delete(s.emailIndex, key)
	delete(s.emails, id)
	return nil
}

func (s *Store) DeletePush(_ context.Context, endpoint string, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pushKey{endpoint: endpoint, eventID: eventID}
	id, ok := s.pushIndex[key]
	if !ok {
		return fmt.Errorf("push subscription: %w", repository.ErrNotFound)
	}
	delete(s.pushIndex, key)
	delete(s.pushes, id)
	return nil
}

func (s *Store) ListPendingEmail(_ context.Context) ([]model.PendingEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]model.PendingEmail, 0)
	for _, sub := range s.emails {
		if sub.Notified {
			continue
		}
		pending = append(pending, model.PendingEmail{Subscription: sub, Event: s.lookup(sub.EventID)})
	}
	return pending, nil
}

func (s *Store) ListPendingPush(_ context.Context) ([]model.PendingPush, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]model.PendingPush, 0)
	for _, sub := range s.pushes {
		if sub.Notified {
			continue
		}
		pending = append(pending, model.PendingPush{Subscription: sub, Event: s.lookup(sub.EventID)})
	}
	return pending, nil
}

// lookup must be called with mu held.
func (s *Store) lookup(id uuid.UUID) *model.Event {
	event, ok := s.events[id]
	if !ok {
		return nil
	}
	e := cloneEvent(event)
	return &e
}

func (s *Store) Claim(_ context.Context, id uuid.UUID, channel model.Channel, at time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimable := func(notified bool, claimedAt *time.Time) bool {
		return !notified && (claimedAt == nil || claimedAt.Before(at.Add(-ttl)))
	}

	switch channel {
	case model.ChannelEmail:
		sub, ok := s.emails[id]
		if !ok || !claimable(sub.Notified, sub.ClaimedAt) {
			return false, nil
		}
		sub.ClaimedAt = &at
		s.emails[id] = sub
		return true, nil
	case model.ChannelPush:
		sub, ok := s.pushes[id]
		if !ok || !claimable(sub.Notified, sub.ClaimedAt) {
			return false, nil
		}
		sub.ClaimedAt = &at
		s.pushes[id] = sub
		return true, nil
	}
	return false, fmt.Errorf("unknown channel %q", channel)
}

func holdsClaim(notified bool, claimedAt *time.Time, at time.Time) bool {
	return !notified && claimedAt != nil && claimedAt.Equal(at)
}

// Release is a no-op when the row no longer carries the claim made at
// claimedAt.
func (s *Store) Release(_ context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch channel {
	case model.ChannelEmail:
		if sub, ok := s.emails[id]; ok && holdsClaim(sub.Notified, sub.ClaimedAt, claimedAt) {
			sub.ClaimedAt = nil
			s.emails[id] = sub
		}
		return nil
	case model.ChannelPush:
		if sub, ok := s.pushes[id]; ok && holdsClaim(sub.Notified, sub.ClaimedAt, claimedAt) {
			sub.ClaimedAt = nil
			s.pushes[id] = sub
		}
		return nil
	}
	return fmt.Errorf("unknown channel %q", channel)
}

func (s *Store) MarkNotified(_ context.Context, id uuid.UUID, channel model.Channel, claimedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch channel {
	case model.ChannelEmail:
		sub, ok := s.emails[id]
		if !ok || !holdsClaim(sub.Notified, sub.ClaimedAt, claimedAt) {
			return fmt.Errorf("email subscription %s: %w", id, repository.ErrClaimLost)
		}
		at := claimedAt
		sub.Notified = true
		sub.NotifiedAt = &at
		sub.ClaimedAt = nil
		s.emails[id] = sub
		return nil
	case model.ChannelPush:
		sub, ok := s.pushes[id]
		if !ok || !holdsClaim(sub.Notified, sub.ClaimedAt, claimedAt) {
			return fmt.Errorf("push subscription %s: %w", id, repository.ErrClaimLost)
		}
		at := claimedAt
		sub.Notified = true
		sub.NotifiedAt = &at
		sub.ClaimedAt = nil
		s.pushes[id] = sub
		return nil
	}
	return fmt.Errorf("unknown channel %q", channel)
}

// EmailSubscription returns a copy of the stored row, for inspection.
func (s *Store) EmailSubscription(id uuid.UUID) (model.EmailSubscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.emails[id]
	return sub, ok
}

// PushSubscription returns a copy of the stored row, for inspection.
func (s *Store) PushSubscription(id uuid.UUID) (model.PushSubscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.pushes[id]
	return sub, ok
}

func cloneEvent(e model.Event) model.Event {
	return *e.Clone()
}
