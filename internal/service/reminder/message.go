package reminder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/internal/push"
)

// startLayout renders times the way a US-English calendar would.
const startLayout = "Monday, January 2, 2006 at 3:04 PM MST"

type EmailMessage struct {
	Subject string
	Body    string
}

// LeadTime restates an offset in words: whole hours once it reaches an
// hour (rounded, prefixed with "about" when rounding happened), minutes
// below that.
func LeadTime(minutes int) string {
	if minutes >= 60 {
		hours := int(math.Round(float64(minutes) / 60))
		prefix := ""
		if minutes%60 != 0 {
			prefix = "about "
		}
		return prefix + plural(hours, "hour")
	}
	return plural(minutes, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// RenderEmail builds the reminder mail for event. Start is shown in loc.
func RenderEmail(event *model.Event, offsetMinutes int, loc *time.Location) EmailMessage {
	if loc == nil {
		loc = time.UTC
	}
	lead := LeadTime(offsetMinutes)

	var b strings.Builder
	b.WriteString("Hi,\n\n")
	fmt.Fprintf(&b, "This is a reminder that %q starts in %s.\n\n", event.Title, lead)
	fmt.Fprintf(&b, "When: %s\n", event.Start.In(loc).Format(startLayout))
	fmt.Fprintf(&b, "Where: %s\n", locationLine(event.Location))
	fmt.Fprintf(&b, "Category: %s\n", event.Category.Label())
	if len(event.Organizers) > 0 {
		fmt.Fprintf(&b, "Organizers: %s\n", strings.Join(event.Organizers, ", "))
	}
	if d := strings.TrimSpace(event.Description); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
		b.WriteString("\n")
	}
	if event.RegistrationURL != nil && *event.RegistrationURL != "" {
		fmt.Fprintf(&b, "\nRegister: %s\n", *event.RegistrationURL)
	}
	b.WriteString("\nYou are receiving this because you asked for a reminder for this event.\n")

	return EmailMessage{
		Subject: fmt.Sprintf("Reminder: %s starts in %s", event.Title, lead),
		Body:    b.String(),
	}
}

func locationLine(l model.Location) string {
	line := l.Label
	if l.IsOnline {
		line += " (online)"
	}
	if l.Link != nil && *l.Link != "" {
		line += " - " + *l.Link
	}
	return line
}

// RenderPush builds the short notification. URL is the location link when
// the event has one, fallbackURL otherwise.
func RenderPush(event *model.Event, offsetMinutes int, fallbackURL string) push.Payload {
	url := fallbackURL
	if event.Location.Link != nil && *event.Location.Link != "" {
		url = *event.Location.Link
	}

	return push.Payload{
		Title: event.Title,
		Body:  fmt.Sprintf("Starts in %s at %s", LeadTime(offsetMinutes), event.Location.Label),
		URL:   url,
	}
}
