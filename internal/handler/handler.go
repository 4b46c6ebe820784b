package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AZMA1N/Debate-Calender/internal/middleware"
	"github.com/AZMA1N/Debate-Calender/pkg/httputil"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves health and metrics endpoints
type Handler struct {
	db       Pinger
	gatherer prometheus.Gatherer
}

// NewHandler builds the health handler. db may be nil when the in-memory
// store is used; gatherer defaults to the global registry.
func NewHandler(db Pinger, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{db: db, gatherer: gatherer}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  "database unreachable",
				"time":   time.Now(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// RespondWithBindError answers a failed ShouldBind* with a 400 listing the
// offending fields when the validator produced them.
func RespondWithBindError(c *gin.Context, err error) {
	if fields := middleware.ValidationErrors(err); len(fields) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, &httputil.Response{
			Status:  "error",
			Message: "invalid request",
			Data:    gin.H{"errors": fields},
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid request body"))
}
