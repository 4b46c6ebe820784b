package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.GET("/", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondWithSuccess(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		RespondWithSuccess(c, http.StatusCreated, gin.H{"id": "1"})
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, map[string]interface{}{"id": "1"}, body.Data)
}

func TestRespondWithAppError(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		RespondWithError(c, errors.NotFound("event", nil))
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "event not found", body.Message)
}

func TestRespondWithPlainErrorHidesDetail(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		RespondWithError(c, stderrors.New("pq: password authentication failed"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
}
