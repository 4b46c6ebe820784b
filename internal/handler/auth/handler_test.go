package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AZMA1N/Debate-Calender/internal/model"
	pkgauth "github.com/AZMA1N/Debate-Calender/pkg/auth"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	args := m.Called(email, password)
	if tokens, ok := args.Get(0).(*model.TokenResponse); ok {
		return tokens, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*pkgauth.Claims, error) {
	args := m.Called(token)
	return nil, args.Error(1)
}

func login(t *testing.T, svc *mockAuthService, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	svc := new(mockAuthService)
	expires := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	svc.On("Login", "admin@example.com", "correct horse").
		Return(&model.TokenResponse{AccessToken: "tok", TokenType: "Bearer", ExpiresAt: expires}, nil)

	w := login(t, svc, gin.H{"email": "admin@example.com", "password": "correct horse"})

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string              `json:"status"`
		Data   model.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "tok", body.Data.AccessToken)
	assert.True(t, expires.Equal(body.Data.ExpiresAt))
	svc.AssertExpectations(t)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", "admin@example.com", "wrong password").
		Return(nil, errors.Unauthorized(model.ErrInvalidCredentials))

	w := login(t, svc, gin.H{"email": "admin@example.com", "password": "wrong password"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	svc := new(mockAuthService)

	w := login(t, svc, gin.H{"email": "not-an-email", "password": "short"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}
