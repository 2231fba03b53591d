// Package middleware provides authentication and request validation middleware for the Gin web framework.
package middleware

import (
	"net/http"

	contextutils "linguaread/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
)

// RequireAuth returns a middleware that requires an authenticated session.
// Token issuance happens outside this service; the middleware only consumes
// the user id the auth layer stored in the session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(UserIDKey)

		if userID == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		userIDStr, ok := userID.(string)
		if !ok || userIDStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userIDStr)
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userIDStr))

		c.Next()
	}
}

// OptionalAuth resolves the session user id when present without requiring
// one. Read paths serve zeroed default progress to anonymous callers.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID, ok := session.Get(UserIDKey).(string); ok && userID != "" {
			c.Set(UserIDKey, userID)
			c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userID))
		}
		c.Next()
	}
}
