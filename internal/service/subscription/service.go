package subscription

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
)

type SubscriptionServicer interface {
	SubscribeEmail(ctx context.Context, sub *model.EmailSubscription) error
	UnsubscribeEmail(ctx context.Context, email string, eventID uuid.UUID) error
	SubscribePush(ctx context.Context, sub *model.PushSubscription) error
	UnsubscribePush(ctx context.Context, endpoint string, eventID uuid.UUID) error
}

// Service registers reminder opt-ins. Subscribing again for the same event
// replaces the previous row and makes it eligible for a new reminder.
type Service struct {
	events repository.EventRepository
	subs   repository.SubscriptionRepository
	logger *logger.Logger
}

var _ SubscriptionServicer = (*Service)(nil)

func NewService(events repository.EventRepository, subs repository.SubscriptionRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{events: events, subs: subs, logger: log}
}

func (s *Service) SubscribeEmail(ctx context.Context, sub *model.EmailSubscription) error {
	addr, err := normalizeEmail(sub.Email)
	if err != nil {
		return errors.BadRequest("invalid email address", err)
	}
	sub.Email = addr

	if err := s.ensureEvent(ctx, sub.EventID); err != nil {
		return err
	}

	if err := s.subs.UpsertEmail(ctx, sub); err != nil {
		return fmt.Errorf("failed to save email subscription: %w", err)
	}

	s.logger.Info("Email reminder registered", "subscription_id", sub.ID.String(), "event_id", sub.EventID.String())
	return nil
}

func (s *Service) UnsubscribeEmail(ctx context.Context, email string, eventID uuid.UUID) error {
	addr, err := normalizeEmail(email)
	if err != nil {
		return errors.BadRequest("invalid email address", err)
	}

	if err := s.subs.DeleteEmail(ctx, addr, eventID); err != nil {
		return notFoundOr(err, "subscription", "failed to delete email subscription")
	}
	return nil
}

func (s *Service) SubscribePush(ctx context.Context, sub *model.PushSubscription) error {
	if strings.TrimSpace(sub.Endpoint) == "" {
		return errors.BadRequest("push endpoint is required", nil)
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errors.BadRequest("push keys are required", nil)
	}

	if err := s.ensureEvent(ctx, sub.EventID); err != nil {
		return err
	}

	if err := s.subs.UpsertPush(ctx, sub); err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	s.logger.Info("Push reminder registered", "subscription_id", sub.ID.String(), "event_id", sub.EventID.String())
	return nil
}

func (s *Service) UnsubscribePush(ctx context.Context, endpoint string, eventID uuid.UUID) error {
	if err := s.subs.DeletePush(ctx, endpoint, eventID); err != nil {
		return notFoundOr(err, "subscription", "failed to delete push subscription")
	}
	return nil
}

func (s *Service) ensureEvent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.events.Get(ctx, id); err != nil {
		return notFoundOr(err, "event", "failed to look up event")
	}
	return nil
}

// normalizeEmail lowercases the address so one inbox maps to one row.
func normalizeEmail(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}

func notFoundOr(err error, resource, msg string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound(resource, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
