package middleware

import (
	"errors"
	"strings"

	"github.com/distill-app/core/internal/pkg/jwt"
	"github.com/distill-app/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces JWT authentication.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validateToken(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

func validateToken(rawToken string) (*jwt.Claims, error) {
	if rawToken == "" {
		return nil, errors.New("token is required")
	}
	return jwt.Parse(rawToken)
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return normalizeToken(auth)
	}
	return normalizeToken(c.Query("token"))
}

// normalizeToken trims spaces and strips an optional Bearer prefix.
func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
