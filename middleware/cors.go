package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackPath is the public ingest route.
const TrackPath = "/api/track"

// CORSMiddleware allows the dashboard origin to call the API with
// credentials. The tracking endpoint reflects any origin.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allow := origin
		if c.Request.URL.Path == TrackPath {
			if reqOrigin := c.GetHeader("Origin"); reqOrigin != "" {
				allow = reqOrigin
			}
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allow)
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-API-KEY, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
