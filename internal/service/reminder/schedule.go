package reminder

import (
	"time"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

// DefaultOffsetMinutes is the lead time used when neither the subscription
// nor the event sets one.
const DefaultOffsetMinutes = 60

// Schedule decides when a subscription's reminder window is open.
//
// The window is [start - offset, start). An offset of zero gives an empty
// window and negative offsets invert it, so neither is ever due. That is
// kept as is rather than silently bumping such offsets.
type Schedule struct {
	fallback int
}

// NewSchedule uses fallbackMinutes when no override exists; non-positive
// values fall back to DefaultOffsetMinutes.
func NewSchedule(fallbackMinutes int) Schedule {
	if fallbackMinutes <= 0 {
		fallbackMinutes = DefaultOffsetMinutes
	}
	return Schedule{fallback: fallbackMinutes}
}

// EffectiveOffset resolves subscription override, then event default, then
// the schedule's fallback.
func (s Schedule) EffectiveOffset(event *model.Event, custom *int) int {
	if custom != nil {
		return *custom
	}
	if event != nil && event.ReminderOffsetMinutes != nil {
		return *event.ReminderOffsetMinutes
	}
	if s.fallback == 0 {
		return DefaultOffsetMinutes
	}
	return s.fallback
}

// ReminderAt is the instant the window opens.
func ReminderAt(start time.Time, offsetMinutes int) time.Time {
	return start.Add(-time.Duration(offsetMinutes) * time.Minute)
}

// IsDue reports whether now falls inside [ReminderAt, start). A nil event
// (orphaned subscription) is never due.
func (s Schedule) IsDue(now time.Time, event *model.Event, custom *int) bool {
	if event == nil {
		return false
	}
	return InWindow(now, event.Start, s.EffectiveOffset(event, custom))
}

// InWindow is the bare half-open window check.
func InWindow(now, start time.Time, offsetMinutes int) bool {
	return !now.Before(ReminderAt(start, offsetMinutes)) && now.Before(start)
}
