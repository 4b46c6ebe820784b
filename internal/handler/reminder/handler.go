package reminder

import (
	"context"
	"crypto/subtle"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AZMA1N/Debate-Calender/internal/handler"
	"github.com/AZMA1N/Debate-Calender/internal/middleware"
	"github.com/AZMA1N/Debate-Calender/internal/model"
	reminderService "github.com/AZMA1N/Debate-Calender/internal/service/reminder"
	subscriptionService "github.com/AZMA1N/Debate-Calender/internal/service/subscription"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/httputil"
)

// Dispatcher runs one reminder batch.
type Dispatcher interface {
	RunOnce(ctx context.Context, now time.Time) (model.DispatchResult, error)
}

type Config struct {
	CronSecret string
	// ConfigError is set at startup when dispatch cannot run; the trigger
	// then answers 500 without checking credentials.
	ConfigError    error
	VAPIDPublicKey string
}

type Handler struct {
	dispatcher Dispatcher
	subs       subscriptionService.SubscriptionServicer
	config     Config
	now        func() time.Time
}

func NewHandler(dispatcher Dispatcher, subs subscriptionService.SubscriptionServicer, config Config) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		subs:       subs,
		config:     config,
		now:        time.Now,
	}
}

// RegisterRoutes mounts the trigger and the opt-in routes. limit guards
// the unauthenticated opt-in writes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, limit gin.HandlerFunc) {
	reminders := r.Group("/reminders")
	{
		reminders.GET("/dispatch", h.Dispatch)
		reminders.POST("/dispatch", h.Dispatch)

		reminders.POST("/email", limit, h.SubscribeEmail)
		reminders.DELETE("/email", limit, h.UnsubscribeEmail)
		reminders.POST("/push", limit, h.SubscribePush)
		reminders.DELETE("/push", limit, h.UnsubscribePush)
		reminders.GET("/push/public-key", h.PublicKey)
	}
}

// Dispatch runs one batch for an external scheduler.
func (h *Handler) Dispatch(c *gin.Context) {
	if h.config.ConfigError != nil || h.config.CronSecret == "" || h.dispatcher == nil {
		err := h.config.ConfigError
		if err == nil {
			err = stderrors.New("cron secret is not configured")
		}
		httputil.RespondWithError(c, errors.Configuration(err))
		return
	}

	token, ok := middleware.BearerToken(c)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.config.CronSecret)) != 1 {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	result, err := h.dispatcher.RunOnce(c.Request.Context(), h.now())
	if err != nil {
		if stderrors.Is(err, reminderService.ErrRunInProgress) {
			httputil.RespondWithError(c, errors.Conflict("reminder dispatch already running", err))
			return
		}
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type emailRequest struct {
	Email               string `json:"email" binding:"required,email"`
	EventID             string `json:"event_id" binding:"required,uuid"`
	CustomOffsetMinutes *int   `json:"custom_offset_minutes" binding:"omitempty,gte=0,lte=10080"`
}

type unsubscribeEmailRequest struct {
	Email   string `json:"email" binding:"required,email"`
	EventID string `json:"event_id" binding:"required,uuid"`
}

// pushSubscriptionJSON matches PushSubscription.toJSON() in the browser.
// expirationTime is epoch milliseconds or null.
type pushSubscriptionJSON struct {
	Endpoint       string         `json:"endpoint" binding:"required,url"`
	ExpirationTime *int64         `json:"expirationTime"`
	Keys           model.PushKeys `json:"keys" binding:"required"`
}

type pushRequest struct {
	Subscription        pushSubscriptionJSON `json:"subscription" binding:"required"`
	EventID             string               `json:"event_id" binding:"required,uuid"`
	CustomOffsetMinutes *int                 `json:"custom_offset_minutes" binding:"omitempty,gte=0,lte=10080"`
}

type unsubscribePushRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	EventID  string `json:"event_id" binding:"required,uuid"`
}

func (h *Handler) SubscribeEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	sub := &model.EmailSubscription{
		Email:               req.Email,
		EventID:             uuid.MustParse(req.EventID),
		CustomOffsetMinutes: req.CustomOffsetMinutes,
	}
	if err := h.subs.SubscribeEmail(c.Request.Context(), sub); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, sub)
}

func (h *Handler) UnsubscribeEmail(c *gin.Context) {
	var req unsubscribeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	if err := h.subs.UnsubscribeEmail(c.Request.Context(), req.Email, uuid.MustParse(req.EventID)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SubscribePush(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	sub := &model.PushSubscription{
		Endpoint:            req.Subscription.Endpoint,
		Keys:                req.Subscription.Keys,
		EventID:             uuid.MustParse(req.EventID),
		CustomOffsetMinutes: req.CustomOffsetMinutes,
	}
	if ms := req.Subscription.ExpirationTime; ms != nil {
		t := time.UnixMilli(*ms).UTC()
		sub.ExpirationTime = &t
	}

	if err := h.subs.SubscribePush(c.Request.Context(), sub); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, sub)
}

func (h *Handler) UnsubscribePush(c *gin.Context) {
	var req unsubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	if err := h.subs.UnsubscribePush(c.Request.Context(), req.Endpoint, uuid.MustParse(req.EventID)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PublicKey hands the VAPID application server key to the browser.
func (h *Handler) PublicKey(c *gin.Context) {
	if h.config.VAPIDPublicKey == "" {
		httputil.RespondWithError(c, errors.Configuration(stderrors.New("push is not configured")))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"public_key": h.config.VAPIDPublicKey})
}
