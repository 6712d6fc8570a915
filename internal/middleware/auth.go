package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/service"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// Authenticator verifies bearer tokens and loads the current user.
type Authenticator interface {
	ParseToken(raw string) (service.Claims, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// AuthMiddleware requires a valid bearer token for an existing user. The role
// is taken from the stored user, not from the token.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimSpace(header[7:]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(header[7:]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		user, err := auth.Profile(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperror.KindOf(err) == apperror.NotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
				return
			}
			GetLogger(c).ErrorContext(c.Request.Context(), "load authenticated user", "user_id", claims.UserID, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userRoleKey, user.Role)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not authorized as admin"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(userIDKey)
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetUserRole(c *gin.Context) model.Role {
	role, _ := c.Get(userRoleKey)
	r, _ := role.(model.Role)
	return r
}
