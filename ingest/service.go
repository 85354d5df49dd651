// Package ingest turns tracking requests into stored page views.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/metrics"
	"malawiexplorer/analytics/models"
	"malawiexplorer/analytics/utils"

	"github.com/google/uuid"
)

var ErrInvalidPageView = errors.New("invalid page view")

// Recorder persists a page view together with its session update.
type Recorder interface {
	RecordPageView(ctx context.Context, pv *models.PageView) (*models.Session, error)
}

// Mirror receives stored page views for asynchronous replication. Enqueue
// must not block.
type Mirror interface {
	Enqueue(pv models.PageView) bool
}

// RequestMeta is what the transport knows about the caller.
type RequestMeta struct {
	UserAgent string
	Referrer  string
	IPAddress string
}

type Service struct {
	recorder Recorder
	mirror   Mirror
	now      func() time.Time
}

type Option func(*Service)

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(recorder Recorder, opts ...Option) *Service {
	s := &Service{recorder: recorder, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPageView validates req and derives the enriched page view. Values in
// the request body take precedence over transport metadata.
func (s *Service) BuildPageView(req models.TrackRequest, meta RequestMeta) (*models.PageView, error) {
	path := strings.TrimSpace(req.PagePath)
	if path == "" {
		return nil, fmt.Errorf("%w: page_path is required", ErrInvalidPageView)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidPageView)
	}

	ua := firstNonEmpty(req.UserAgent, meta.UserAgent)
	referrer := firstNonEmpty(req.Referrer, meta.Referrer)
	switch {
	case len(sessionID) > models.MaxSessionIDLength:
		return nil, fmt.Errorf("%w: session_id exceeds %d characters", ErrInvalidPageView, models.MaxSessionIDLength)
	case len(ua) > models.MaxUserAgentLength:
		return nil, fmt.Errorf("%w: user_agent exceeds %d characters", ErrInvalidPageView, models.MaxUserAgentLength)
	case len(referrer) > models.MaxReferrerLength:
		return nil, fmt.Errorf("%w: referrer exceeds %d characters", ErrInvalidPageView, models.MaxReferrerLength)
	}

	return &models.PageView{
		ID:         uuid.NewString(),
		PagePath:   path,
		PageTitle:  strings.TrimSpace(req.PageTitle),
		SessionID:  sessionID,
		UserAgent:  ua,
		Referrer:   referrer,
		IPAddress:  meta.IPAddress,
		DeviceType: utils.DeviceType(ua),
		Browser:    utils.Browser(ua),
		OS:         utils.OS(ua),
		Country:    strings.TrimSpace(req.Country),
		City:       strings.TrimSpace(req.City),
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
	}, nil
}

// Track stores one page view. Storage failures are logged and counted here;
// callers treat ingestion as fire-and-forget and only act on
// ErrInvalidPageView.
func (s *Service) Track(ctx context.Context, req models.TrackRequest, meta RequestMeta) (*models.Session, error) {
	pv, err := s.BuildPageView(req, meta)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("invalid").Inc()
		return nil, err
	}

	session, err := s.recorder.RecordPageView(ctx, pv)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("store").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("session_id", pv.SessionID).
			Str("page_path", pv.PagePath).
			Msg("failed to record page view")
		return nil, fmt.Errorf("failed to record page view: %w", err)
	}
	metrics.PageViewsIngested.Inc()

	if s.mirror != nil && !s.mirror.Enqueue(*pv) {
		logging.Ctx(ctx).Debug().Str("event_id", pv.ID).Msg("warehouse mirror queue full, page view not mirrored")
	}
	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
