package reminder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AZMA1N/Debate-Calender/internal/email"
	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/push"
	"github.com/AZMA1N/Debate-Calender/internal/repository"
	"github.com/AZMA1N/Debate-Calender/pkg/lock"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
	"github.com/AZMA1N/Debate-Calender/pkg/metrics"
)

// ErrRunInProgress is returned when another dispatcher holds the run lock.
var ErrRunInProgress = errors.New("reminder dispatch already running")

const lockKey = "reminders:dispatch"

type Config struct {
	DefaultOffsetMinutes int
	Location             *time.Location
	FallbackURL          string
	// ClaimTTL bounds how long a crashed run can hold a subscription.
	ClaimTTL time.Duration
	LockTTL  time.Duration
}

type Dispatcher struct {
	subs     repository.SubscriptionRepository
	email    email.Sender
	push     push.Sender
	schedule Schedule
	config   Config
	locker   lock.Locker
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewDispatcher(
	subs repository.SubscriptionRepository,
	emailSender email.Sender,
	pushSender push.Sender,
	config Config,
	locker lock.Locker,
	m *metrics.Metrics,
	log *logger.Logger,
) *Dispatcher {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.FallbackURL == "" {
		config.FallbackURL = "/"
	}
	if config.ClaimTTL <= 0 {
		config.ClaimTTL = 10 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 5 * time.Minute
	}
	if locker == nil {
		locker = lock.Nop{}
	}
	if m == nil {
		m = metrics.NewMetrics("reminder", prometheus.NewRegistry())
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Dispatcher{
		subs:     subs,
		email:    emailSender,
		push:     pushSender,
		schedule: NewSchedule(config.DefaultOffsetMinutes),
		config:   config,
		locker:   locker,
		metrics:  m,
		logger:   log,
	}
}

// delivery is one due subscription's unit of work.
type delivery struct {
	id      uuid.UUID
	channel model.Channel
	eventID uuid.UUID
	send    func(ctx context.Context) error
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeClaimedElsewhere
)

// RunOnce sends every reminder whose window contains now, at most once per
// subscription. Deliveries run concurrently and fail independently; a
// started batch runs to completion even if ctx is cancelled.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (model.DispatchResult, error) {
	timer := prometheus.NewTimer(d.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	release, ok, err := d.locker.Acquire(ctx, lockKey, d.config.LockTTL)
	if err != nil {
		d.metrics.DispatchRuns.WithLabelValues("error").Inc()
		return model.DispatchResult{}, err
	}
	if !ok {
		d.metrics.DispatchRuns.WithLabelValues("locked").Inc()
		return model.DispatchResult{}, ErrRunInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			d.logger.Error(err, "Failed to release dispatch lock")
		}
	}()

	deliveries, err := d.collect(ctx, now)
	if err != nil {
		d.metrics.DispatchRuns.WithLabelValues("error").Inc()
		return model.DispatchResult{}, err
	}

	result := d.deliverAll(context.WithoutCancel(ctx), deliveries, now)
	d.metrics.DispatchRuns.WithLabelValues("ok").Inc()

	d.logger.Info("Reminder dispatch finished",
		"processed", result.Processed,
		"sent", result.Sent,
		"failed", result.Failed)

	return result, nil
}

// collect loads pending subscriptions and keeps the ones that are due.
func (d *Dispatcher) collect(ctx context.Context, now time.Time) ([]delivery, error) {
	emails, err := d.subs.ListPendingEmail(ctx)
	if err != nil {
		d.metrics.DatabaseOperations.WithLabelValues("list_pending_email", "error").Inc()
		return nil, fmt.Errorf("failed to load pending email subscriptions: %w", err)
	}
	d.metrics.DatabaseOperations.WithLabelValues("list_pending_email", "success").Inc()

	pushes, err := d.subs.ListPendingPush(ctx)
	if err != nil {
		d.metrics.DatabaseOperations.WithLabelValues("list_pending_push", "error").Inc()
		return nil, fmt.Errorf("failed to load pending push subscriptions: %w", err)
	}
	d.metrics.DatabaseOperations.WithLabelValues("list_pending_push", "success").Inc()

	d.metrics.PendingReminders.WithLabelValues(string(model.ChannelEmail)).Set(float64(len(emails)))
	d.metrics.PendingReminders.WithLabelValues(string(model.ChannelPush)).Set(float64(len(pushes)))

	deliveries := make([]delivery, 0)

	for _, p := range emails {
		sub, event := p.Subscription, p.Event
		if sub.Notified {
			continue
		}
		if event == nil {
			d.skipOrphan(sub.ID, model.ChannelEmail, sub.EventID)
			continue
		}

		offset := d.schedule.EffectiveOffset(event, sub.CustomOffsetMinutes)
		if !InWindow(now, event.Start, offset) {
			continue
		}

		msg := RenderEmail(event, offset, d.config.Location)
		to := sub.Email
		deliveries = append(deliveries, delivery{
			id:      sub.ID,
			channel: model.ChannelEmail,
			eventID: event.ID,
			send: func(ctx context.Context) error {
				return d.email.Send(ctx, to, msg.Subject, msg.Body)
			},
		})
	}

	for _, p := range pushes {
		sub, event := p.Subscription, p.Event
		if sub.Notified {
			continue
		}
		if event == nil {
			d.skipOrphan(sub.ID, model.ChannelPush, sub.EventID)
			continue
		}
		if sub.Expired(now) {
			d.metrics.RemindersSkipped.WithLabelValues("expired").Inc()
			continue
		}

		offset := d.schedule.EffectiveOffset(event, sub.CustomOffsetMinutes)
		if !InWindow(now, event.Start, offset) {
			continue
		}

		payload := RenderPush(event, offset, d.config.FallbackURL)
		target := push.Target{Endpoint: sub.Endpoint, Keys: sub.Keys}
		deliveries = append(deliveries, delivery{
			id:      sub.ID,
			channel: model.ChannelPush,
			eventID: event.ID,
			send: func(ctx context.Context) error {
				return d.push.Send(ctx, target, payload)
			},
		})
	}

	return deliveries, nil
}

func (d *Dispatcher) skipOrphan(id uuid.UUID, channel model.Channel, eventID uuid.UUID) {
	d.metrics.RemindersSkipped.WithLabelValues("orphaned").Inc()
	d.logger.Warn("Skipping subscription for missing event",
		"subscription_id", id.String(),
		"channel", string(channel),
		"event_id", eventID.String())
}

// deliverAll scatters deliveries over goroutines and gathers the counts.
func (d *Dispatcher) deliverAll(ctx context.Context, deliveries []delivery, now time.Time) model.DispatchResult {
	var (
		wg     sync.WaitGroup
		sent   atomic.Int64
		failed atomic.Int64
	)

	for _, dl := range deliveries {
		wg.Add(1)
		go func(dl delivery) {
			defer wg.Done()
			switch d.deliver(ctx, dl, now) {
			case outcomeSent:
				sent.Add(1)
			case outcomeFailed:
				failed.Add(1)
			case outcomeClaimedElsewhere:
				d.metrics.RemindersSkipped.WithLabelValues("claimed").Inc()
			}
		}(dl)
	}
	wg.Wait()

	return model.DispatchResult{
		Processed: int(sent.Load() + failed.Load()),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
	}
}

// deliver claims, sends and records one subscription. Panics and errors
// stay inside this call.
func (d *Dispatcher) deliver(ctx context.Context, dl delivery, now time.Time) (result outcome) {
	log := d.logger.WithFields(map[string]interface{}{
		"subscription_id": dl.id.String(),
		"channel":         string(dl.channel),
		"event_id":        dl.eventID.String(),
	})
	claimed := false

	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Errorf("panic: %v", r), "Reminder delivery panicked")
			if claimed {
				d.release(ctx, dl, now, log)
			}
			d.metrics.RemindersFailed.WithLabelValues(string(dl.channel)).Inc()
			result = outcomeFailed
		}
	}()

	ok, err := d.subs.Claim(ctx, dl.id, dl.channel, now, d.config.ClaimTTL)
	if err != nil {
		log.Error(err, "Failed to claim subscription")
		d.metrics.RemindersFailed.WithLabelValues(string(dl.channel)).Inc()
		return outcomeFailed
	}
	if !ok {
		log.Debug("Subscription claimed by another run")
		return outcomeClaimedElsewhere
	}
	claimed = true

	if err := dl.send(ctx); err != nil {
		var statusErr *push.StatusError
		if errors.As(err, &statusErr) && statusErr.Gone() {
			log.Warn("Push service reports subscription gone", "status", statusErr.StatusCode)
		}
		log.Error(err, "Reminder delivery failed")
		if isTimeout(err) {
			// The relay may still accept the message; let the claim expire.
			log.Warn("Delivery outcome unknown, keeping claim until it expires", "claim_ttl", d.config.ClaimTTL.String())
		} else {
			d.release(ctx, dl, now, log)
		}
		d.metrics.RemindersFailed.WithLabelValues(string(dl.channel)).Inc()
		return outcomeFailed
	}

	// The message is out; a failed write only risks a resend after ClaimTTL.
	if err := d.subs.MarkNotified(ctx, dl.id, dl.channel, now); err != nil {
		if errors.Is(err, repository.ErrClaimLost) {
			log.Warn("Subscription changed during delivery, leaving it pending")
		} else {
			log.Error(err, "Failed to mark subscription notified")
		}
	}
	d.metrics.RemindersSent.WithLabelValues(string(dl.channel)).Inc()
	return outcomeSent
}

func (d *Dispatcher) release(ctx context.Context, dl delivery, claimedAt time.Time, log *logger.Logger) {
	if err := d.subs.Release(ctx, dl.id, dl.channel, claimedAt); err != nil {
		log.Error(err, "Failed to release subscription claim")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
