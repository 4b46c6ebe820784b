package event

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
)

type EventServicer interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	UpdateEvent(ctx context.Context, event *model.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error)
}

// Service manages club events. Public listings are cached per filter set
// and the whole cache is dropped on every write.
type Service struct {
	repo   repository.EventRepository
	cache  *cache.Cache
	logger *logger.Logger
}

var _ EventServicer = (*Service)(nil)

func NewService(repo repository.EventRepository, ttl, cleanup time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		cache:  cache.New(ttl, cleanup),
		logger: log,
	}
}

func (s *Service) CreateEvent(ctx context.Context, event *model.Event) error {
	if err := event.Validate(); err != nil {
		return errors.BadRequest(err.Error(), err)
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	s.cache.Flush()

	s.logger.Info("Event created", "event_id", event.ID.String(), "title", event.Title)
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to get event")
	}
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, event *model.Event) error {
	if err := event.Validate(); err != nil {
		return errors.BadRequest(err.Error(), err)
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return notFoundOr(err, "failed to update event")
	}
	s.cache.Flush()

	s.logger.Info("Event updated", "event_id", event.ID.String())
	return nil
}

// DeleteEvent removes the event. Subscriptions to it are cascaded by the
// postgres store; any left behind are ignored by the dispatcher.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete event")
	}
	s.cache.Flush()

	s.logger.Info("Event deleted", "event_id", id.String())
	return nil
}

// ListEvents serves from the listing cache. Callers always get their own
// copies, so mutating a result never reaches the cached entry.
func (s *Service) ListEvents(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	key := cacheKey(filters)
	if cached, ok := s.cache.Get(key); ok {
		return cloneEvents(cached.([]*model.Event)), nil
	}

	events, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	s.cache.Set(key, cloneEvents(events), cache.DefaultExpiration)
	return events, nil
}

func cloneEvents(events []*model.Event) []*model.Event {
	out := make([]*model.Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

func notFoundOr(err error, msg string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound("event", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func cacheKey(f *model.EventFilters) string {
	if f == nil {
		return "events"
	}

	parts := []string{"events"}
	if f.Category != nil {
		parts = append(parts, "category="+string(*f.Category))
	}
	if f.From != nil {
		parts = append(parts, "from="+f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		parts = append(parts, "to="+f.To.UTC().Format(time.RFC3339))
	}
	if f.Featured != nil {
		parts = append(parts, "featured="+strconv.FormatBool(*f.Featured))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		parts = append(parts, "q="+strings.ToLower(q))
	}
	return strings.Join(parts, "|")
}
