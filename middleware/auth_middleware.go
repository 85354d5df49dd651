package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"
	"malawiexplorer/analytics/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextProfile   = "auth_profile"

	AuthCookieName = "jwt_token"
)

// AuthRequired admits requests carrying the configured X-API-KEY or a valid
// reader token in the jwt_token cookie or a Bearer header. An empty apiKey
// disables key authentication.
func AuthRequired(apiKey string, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			c.Set(ContextProfile, models.Profile{Method: "api_key"})
			c.Next()
			return
		}

		tokenString, err := c.Cookie(AuthCookieName)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}

		claims, err := tokens.ValidateJWT(tokenString)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected reader token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextProfile, models.Profile{UserID: claims.UserID, Email: claims.Email, Method: "jwt"})
		c.Next()
	}
}
