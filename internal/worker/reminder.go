package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/service/reminder"
	"github.com/AZMA1N/Debate-Calender/pkg/logger"
)

// Dispatcher runs one reminder batch.
type Dispatcher interface {
	RunOnce(ctx context.Context, now time.Time) (model.DispatchResult, error)
}

// ReminderWorker is the built-in periodic trigger. It can replace, or run
// next to, an external scheduler calling the HTTP trigger; the dispatch
// lock keeps overlapping runs apart.
type ReminderWorker struct {
	dispatcher Dispatcher
	interval   time.Duration
	schedule   cron.Schedule
	logger     *logger.Logger
	now        func() time.Time
}

func NewReminderWorker(dispatcher Dispatcher, interval time.Duration, log *logger.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReminderWorker{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     log.WithFields(map[string]interface{}{"worker": "reminder"}),
		now:        time.Now,
	}
}

// SetSchedule replaces the fixed interval with a cron expression such as
// "*/5 * * * *" or "@hourly".
func (w *ReminderWorker) SetSchedule(spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	w.schedule = schedule
	return nil
}

// next returns when the tick after t is due.
func (w *ReminderWorker) next(t time.Time) time.Time {
	if w.schedule != nil {
		return w.schedule.Next(t)
	}
	return t.Add(w.interval)
}

// Start runs a batch immediately and then on every tick until ctx is done.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info("Reminder worker started", "interval", w.interval.String(), "cron", w.schedule != nil)
	w.tick(ctx)

	timer := time.NewTimer(time.Until(w.next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reminder worker shutting down")
			return
		case <-timer.C:
			w.tick(ctx)
			timer.Reset(time.Until(w.next(time.Now())))
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	result, err := w.dispatcher.RunOnce(ctx, w.now())
	switch {
	case errors.Is(err, reminder.ErrRunInProgress):
		w.logger.Debug("Skipping tick, another dispatch is running")
	case err != nil:
		w.logger.Error(err, "Reminder dispatch failed")
	case result.Processed > 0:
		w.logger.Debug("Reminder tick done", "processed", result.Processed)
	}
}
