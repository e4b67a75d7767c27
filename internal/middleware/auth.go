package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/internal/session"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// SessionResolver looks up the user behind a session token
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, *session.Session, error)
}

const actorKey = "actor"

// Auth returns a middleware that requires a valid session cookie
func Auth(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookieName)

		user, _, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthenticated) {
				logger.FromContext(c.Request.Context()).Error("[Auth] Session lookup failed", "error", services.Cause(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
				"data":    nil,
			})
			return
		}

		actor := services.Actor{
			UserID:    user.ID,
			Email:     user.Email,
			Role:      user.Role,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		c.Set(actorKey, actor)

		log := logger.FromContext(c.Request.Context()).With("user_id", user.ID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		c.Next()
	}
}

// GetActor returns the authenticated caller. The zero Actor is returned on
// routes without the Auth middleware.
func GetActor(c *gin.Context) services.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	return services.Actor{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *gin.Context) bool {
	return GetActor(c).IsAdmin()
}

// RequireAdmin returns a middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Administrator access required",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}
