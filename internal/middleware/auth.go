package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	authService "github.com/AZMA1N/Debate-Calender/internal/service/auth"
	"github.com/AZMA1N/Debate-Calender/pkg/errors"
	"github.com/AZMA1N/Debate-Calender/pkg/httputil"
)

const ContextAdminEmail = "adminEmail"

type AuthMiddleware struct {
	authService authService.AuthServicer
}

func NewAuthMiddleware(authService authService.AuthServicer) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the admin JWT and stores the admin email in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextAdminEmail, claims.Email)
		c.Next()
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
