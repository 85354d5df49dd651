package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus reachability of the primary store. The
// warehouse is optional and best-effort, so an unreachable one is reported
// without degrading the status.
func Health(db Pinger, warehouse Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok"}
		if warehouse != nil {
			body["warehouse"] = "ok"
			if err := warehouse.Ping(ctx); err != nil {
				body["warehouse"] = err.Error()
			}
		}
		if err := db.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}
