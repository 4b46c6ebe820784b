package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of event kinds the club runs.
type Category string

const (
	CategoryTournament Category = "tournament"
	CategoryPractice   Category = "practice"
	CategoryWorkshop   Category = "workshop"
	CategorySelection  Category = "selection"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryTournament,
	CategoryPractice,
	CategoryWorkshop,
	CategorySelection,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryTournament, CategoryPractice, CategoryWorkshop, CategorySelection:
		return true
	}
	return false
}

// Label is the human readable name used in messages and calendar feeds.
func (c Category) Label() string {
	switch c {
	case CategoryTournament:
		return "Tournament"
	case CategoryPractice:
		return "Practice"
	case CategoryWorkshop:
		return "Workshop"
	case CategorySelection:
		return "Selection"
	}
	return string(c)
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

type Location struct {
	Label    string  `json:"label"`
	IsOnline bool    `json:"is_online"`
	Link     *string `json:"link,omitempty"`
}

type Event struct {
	ID                    uuid.UUID `json:"id"`
	Title                 string    `json:"title"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	Location              Location  `json:"location"`
	Category              Category  `json:"category"`
	Description           string    `json:"description"`
	RegistrationURL       *string   `json:"registration_url,omitempty"`
	ReminderOffsetMinutes *int      `json:"reminder_offset_minutes,omitempty"`
	Organizers            []string  `json:"organizers,omitempty"`
	Featured              bool      `json:"featured"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Clone returns a deep copy; the copy shares no pointers or slices with e.
func (e *Event) Clone() *Event {
	c := *e
	c.Location.Link = clonePtr(e.Location.Link)
	c.RegistrationURL = clonePtr(e.RegistrationURL)
	c.ReminderOffsetMinutes = clonePtr(e.ReminderOffsetMinutes)
	if e.Organizers != nil {
		c.Organizers = append([]string(nil), e.Organizers...)
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var (
	ErrEventTitleRequired  = errors.New("title is required")
	ErrEventEndBeforeStart = errors.New("end must not be before start")
	ErrEventLocationLabel  = errors.New("location label is required")
)

func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEventTitleRequired
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return errors.New("start and end are required")
	}
	if e.End.Before(e.Start) {
		return ErrEventEndBeforeStart
	}
	if !e.Category.Valid() {
		return fmt.Errorf("unknown category %q", e.Category)
	}
	if strings.TrimSpace(e.Location.Label) == "" {
		return ErrEventLocationLabel
	}
	return nil
}

// EventFilters narrows event listings. Zero values mean "no filter".
type EventFilters struct {
	Category *Category
	From     *time.Time
	To       *time.Time
	Featured *bool
	Search   string
}
