package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

func intPtr(v int) *int { return &v }

func TestEffectiveOffset(t *testing.T) {
	s := NewSchedule(0)

	tests := []struct {
		name   string
		event  *model.Event
		custom *int
		want   int
	}{
		{"fallback", &model.Event{}, nil, 60},
		{"event default", &model.Event{ReminderOffsetMinutes: intPtr(120)}, nil, 120},
		{"subscription override wins", &model.Event{ReminderOffsetMinutes: intPtr(120)}, intPtr(30), 30},
		{"override of zero is kept", &model.Event{ReminderOffsetMinutes: intPtr(120)}, intPtr(0), 0},
		{"nil event", nil, nil, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.EffectiveOffset(tt.event, tt.custom))
		})
	}
}

func TestNewScheduleFallback(t *testing.T) {
	assert.Equal(t, 45, NewSchedule(45).EffectiveOffset(&model.Event{}, nil))
	assert.Equal(t, DefaultOffsetMinutes, NewSchedule(-5).EffectiveOffset(&model.Event{}, nil))
	assert.Equal(t, DefaultOffsetMinutes, Schedule{}.EffectiveOffset(&model.Event{}, nil))
}

func TestIsDue(t *testing.T) {
	start := time.Date(2025, 2, 8, 9, 0, 0, 0, time.UTC)
	event := &model.Event{Start: start, ReminderOffsetMinutes: intPtr(60)}
	s := NewSchedule(0)

	tests := []struct {
		name   string
		now    time.Time
		custom *int
		want   bool
	}{
		{"before window", time.Date(2025, 2, 8, 7, 59, 59, 0, time.UTC), nil, false},
		{"window opens", time.Date(2025, 2, 8, 8, 0, 0, 0, time.UTC), nil, true},
		{"last instant", start.Add(-time.Nanosecond), nil, true},
		{"at start", start, nil, false},
		{"after start", start.Add(time.Minute), nil, false},
		{"zero offset", start.Add(-time.Second), intPtr(0), false},
		{"negative offset", start.Add(time.Minute), intPtr(-10), false},
		{"override narrows window", start.Add(-45 * time.Minute), intPtr(30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsDue(tt.now, event, tt.custom))
		})
	}
}

func TestIsDueOrphan(t *testing.T) {
	assert.False(t, NewSchedule(60).IsDue(time.Now(), nil, intPtr(60)))
}

func TestReminderAt(t *testing.T) {
	start := time.Date(2025, 2, 8, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 8, 8, 0, 0, 0, time.UTC), ReminderAt(start, 60))
	assert.Equal(t, start, ReminderAt(start, 0))
}
