package event

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AZMA1N/Debate-Calender/internal/calendar"
	"github.com/AZMA1N/Debate-Calender/internal/handler"
	"github.com/AZMA1N/Debate-Calender/internal/model"
	eventService "github.com/AZMA1N/Debate-Calender/internal/service/event"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/httputil"
)

const (
	calendarName = "Debate Club Events"
	icsType      = "text/calendar; charset=utf-8"
)

type Handler struct {
	service eventService.EventServicer
	now     func() time.Time
}

func NewHandler(service eventService.EventServicer) *Handler {
	return &Handler{service: service, now: time.Now}
}

// RegisterRoutes mounts the public browse routes and the admin write routes
// behind requireAdmin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	events := r.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/calendar.ics", h.ExportCalendar)
		events.GET("/:id", h.GetEvent)
		events.GET("/:id/calendar.ics", h.ExportEvent)

		events.POST("", requireAdmin, h.CreateEvent)
		events.PUT("/:id", requireAdmin, h.UpdateEvent)
		events.DELETE("/:id", requireAdmin, h.DeleteEvent)
	}
}

type locationRequest struct {
	Label    string  `json:"label" binding:"required"`
	IsOnline bool    `json:"is_online"`
	Link     *string `json:"link" binding:"omitempty,url"`
}

type eventRequest struct {
	Title                 string          `json:"title" binding:"required,max=200"`
	Start                 time.Time       `json:"start" binding:"required"`
	End                   time.Time       `json:"end" binding:"required"`
	Location              locationRequest `json:"location" binding:"required"`
	Category              string          `json:"category" binding:"required,category"`
	Description           string          `json:"description" binding:"max=5000"`
	RegistrationURL       *string         `json:"registration_url" binding:"omitempty,url"`
	ReminderOffsetMinutes *int            `json:"reminder_offset_minutes" binding:"omitempty,gte=0,lte=10080"`
	Organizers            []string        `json:"organizers"`
	Featured              bool            `json:"featured"`
}

func (r *eventRequest) toModel(id uuid.UUID) *model.Event {
	return &model.Event{
		ID:    id,
		Title: strings.TrimSpace(r.Title),
		Start: r.Start,
		End:   r.End,
		Location: model.Location{
			Label:    r.Location.Label,
			IsOnline: r.Location.IsOnline,
			Link:     r.Location.Link,
		},
		Category:              model.Category(r.Category),
		Description:           r.Description,
		RegistrationURL:       r.RegistrationURL,
		ReminderOffsetMinutes: r.ReminderOffsetMinutes,
		Organizers:            r.Organizers,
		Featured:              r.Featured,
	}
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	event := req.toModel(uuid.Nil)
	if err := h.service.CreateEvent(c.Request.Context(), event); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, event)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, event)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	event := req.toModel(id)
	if err := h.service.UpdateEvent(c.Request.Context(), event); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, event)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListEvents(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	events, err := h.service.ListEvents(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, events)
}

// ExportCalendar serves the filtered listing as an iCalendar feed.
func (h *Handler) ExportCalendar(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	events, err := h.service.ListEvents(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="debate-club.ics"`)
	c.Data(http.StatusOK, icsType, []byte(calendar.Feed(calendarName, events, h.now())))
}

func (h *Handler) ExportEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, event.ID))
	c.Data(http.StatusOK, icsType, []byte(calendar.Feed("", []*model.Event{event}, h.now())))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid event ID", err))
		return uuid.Nil, false
	}
	return id, true
}

func parseFilters(c *gin.Context) (*model.EventFilters, error) {
	filters := &model.EventFilters{Search: c.Query("q")}

	if v := c.Query("category"); v != "" {
		category, err := model.ParseCategory(v)
		if err != nil {
			return nil, errors.BadRequest("invalid category", err)
		}
		filters.Category = &category
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{
		{"from", &filters.From},
		{"to", &filters.To},
	} {
		v := c.Query(p.key)
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, errors.BadRequest(fmt.Sprintf("invalid %s: expected RFC 3339 or YYYY-MM-DD", p.key), err)
		}
		*p.dst = &t
	}

	if v := c.Query("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.BadRequest("invalid featured flag", err)
		}
		filters.Featured = &featured
	}

	return filters, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
