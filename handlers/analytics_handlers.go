package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"malawiexplorer/analytics/analytics"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"
	"malawiexplorer/analytics/store"

	"github.com/gin-gonic/gin"
)

const (
	readTimeout          = 10 * time.Second
	defaultTopPageWindow = 7 * 24 * time.Hour
)

type AnalyticsEngine interface {
	RealTime(ctx context.Context) models.RealTimeSnapshot
	Historical(ctx context.Context, days int) ([]models.DailyStat, error)
	Sessions(ctx context.Context) ([]models.Session, error)
	Session(ctx context.Context, sessionID string) (*models.Session, error)
	TopPages(ctx context.Context, start, end time.Time, limit int) ([]models.PagePathCount, error)
	DefaultHistoryDays() int
}

type AnalyticsHandlers struct {
	Engine AnalyticsEngine
}

func NewAnalyticsHandlers(engine AnalyticsEngine) *AnalyticsHandlers {
	return &AnalyticsHandlers{Engine: engine}
}

// GetRealTime always answers 200; a failed read shows up as a zeroed snapshot.
func (h *AnalyticsHandlers) GetRealTime(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()
	c.JSON(http.StatusOK, h.Engine.RealTime(ctx))
}

func (h *AnalyticsHandlers) GetHistorical(c *gin.Context) {
	days := h.Engine.DefaultHistoryDays()
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	stats, err := h.Engine.Historical(ctx, days)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidDays) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Ctx(ctx).Error().Err(err).Int("days", days).Msg("historical analytics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandlers) GetSessions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	sessions, err := h.Engine.Sessions(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("session listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *AnalyticsHandlers) GetSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	sess, err := h.Engine.Session(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		logging.Ctx(ctx).Error().Err(err).Msg("session lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *AnalyticsHandlers) GetTopPages(c *gin.Context) {
	start, end, ok := parseTimeRange(c, defaultTopPageWindow)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	pages, err := h.Engine.TopPages(ctx, start, end, limit)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("top pages query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pages)
}

// parseTimeRange reads RFC3339 start/end query parameters, defaulting to the
// window ending now. It writes the 400 response itself on bad input.
func parseTimeRange(c *gin.Context, window time.Duration) (time.Time, time.Time, bool) {
	end := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end time format. Use RFC3339."})
			return time.Time{}, time.Time{}, false
		}
		end = t.UTC()
	}
	start := end.Add(-window)
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time format. Use RFC3339."})
			return time.Time{}, time.Time{}, false
		}
		start = t.UTC()
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
