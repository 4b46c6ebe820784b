package calendar

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

func TestFeed(t *testing.T) {
	link := "https://meet.example.com/r1"
	event := &model.Event{
		ID:          uuid.MustParse("7b0e8f0e-2f8a-4c59-9a57-5d2f1f5b8d11"),
		Title:       "Regional Qualifier",
		Start:       time.Date(2025, 4, 5, 13, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 4, 5, 17, 0, 0, 0, time.UTC),
		Location:    model.Location{Label: "Online", IsOnline: true, Link: &link},
		Category:    model.CategoryTournament,
		Description: "Four rounds.",
		Organizers:  []string{"Ada"},
	}
	stamp := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	out := Feed("Debate Club", []*model.Event{event}, stamp)

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "7b0e8f0e-2f8a-4c59-9a57-5d2f1f5b8d11@debate-calendar", ev.Id())
	assert.Equal(t, "Regional Qualifier", ev.GetProperty(ics.ComponentPropertySummary).Value)

	start, err := ev.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(event.Start))

	assert.Equal(t, "Tournament", ev.GetProperty(ics.ComponentPropertyCategories).Value)
	assert.Equal(t, link, ev.GetProperty(ics.ComponentPropertyUrl).Value)
}

func TestFeedEmpty(t *testing.T) {
	out := Feed("", nil, time.Now())
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
