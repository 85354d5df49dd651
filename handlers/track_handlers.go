package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"malawiexplorer/analytics/ingest"
	"malawiexplorer/analytics/models"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie a browser client may use instead of
// sending session_id in the body.
const SessionCookieName = "session_id"

type PageViewTracker interface {
	Track(ctx context.Context, req models.TrackRequest, meta ingest.RequestMeta) (*models.Session, error)
}

type TrackHandlers struct {
	Ingest       PageViewTracker
	WriteTimeout time.Duration
}

func NewTrackHandlers(svc PageViewTracker, writeTimeout time.Duration) *TrackHandlers {
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	return &TrackHandlers{Ingest: svc, WriteTimeout: writeTimeout}
}

// TrackPageView records one page view. Only malformed requests are rejected;
// storage failures are logged by the ingest service and still answered with
// 202 because callers never wait on the outcome.
func (h *TrackHandlers) TrackPageView(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.SessionID == "" {
		if cookie, err := c.Cookie(SessionCookieName); err == nil {
			req.SessionID = cookie
		}
	}

	meta := ingest.RequestMeta{
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		IPAddress: c.ClientIP(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.WriteTimeout)
	defer cancel()

	if _, err := h.Ingest.Track(ctx, req, meta); errors.Is(err, ingest.ErrInvalidPageView) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
