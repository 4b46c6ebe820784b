// Package calendar exports events as iCalendar feeds.
package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/AZMA1N/Debate-Calender/internal/model"
)

const (
	productID = "-//Debate Club//Events Calendar//EN"
	uidDomain = "debate-calendar"
)

// Feed renders events into one VCALENDAR. stamp is written as DTSTAMP on
// every VEVENT.
func Feed(name string, events []*model.Event, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		addEvent(cal, e, stamp)
	}
	return cal.Serialize()
}

func addEvent(cal *ics.Calendar, e *model.Event, stamp time.Time) {
	ev := cal.AddEvent(e.ID.String() + "@" + uidDomain)
	ev.SetDtStampTime(stamp.UTC())
	if !e.CreatedAt.IsZero() {
		ev.SetCreatedTime(e.CreatedAt.UTC())
	}
	if !e.UpdatedAt.IsZero() {
		ev.SetModifiedAt(e.UpdatedAt.UTC())
	}
	ev.SetStartAt(e.Start.UTC())
	ev.SetEndAt(e.End.UTC())
	ev.SetSummary(e.Title)
	ev.SetLocation(location(e.Location))
	ev.AddProperty(ics.ComponentPropertyCategories, e.Category.Label())

	if desc := description(e); desc != "" {
		ev.SetDescription(desc)
	}
	if e.RegistrationURL != nil && *e.RegistrationURL != "" {
		ev.SetURL(*e.RegistrationURL)
	} else if e.Location.Link != nil && *e.Location.Link != "" {
		ev.SetURL(*e.Location.Link)
	}
}

func location(l model.Location) string {
	if l.IsOnline && l.Link != nil && *l.Link != "" {
		return l.Label + " (" + *l.Link + ")"
	}
	return l.Label
}

func description(e *model.Event) string {
	var parts []string
	if d := strings.TrimSpace(e.Description); d != "" {
		parts = append(parts, d)
	}
	if len(e.Organizers) > 0 {
		parts = append(parts, "Organizers: "+strings.Join(e.Organizers, ", "))
	}
	return strings.Join(parts, "\n\n")
}
