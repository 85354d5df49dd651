package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"
)

// Tracker sends page views without making the caller wait. At most one send
// is in flight per Tracker; calls made while one is pending are dropped.
type Tracker struct {
	api      *Client
	identity *IdentityManager
	timeout  time.Duration
	referrer string

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

type TrackerOption func(*Tracker)

func WithReferrer(ref string) TrackerOption {
	return func(t *Tracker) { t.referrer = ref }
}

func WithSendTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.timeout = d }
}

func NewTracker(api *Client, identity *IdentityManager, opts ...TrackerOption) *Tracker {
	t := &Tracker{api: api, identity: identity, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackPageView records a view of pagePath in the background and returns
// immediately. Failures are logged, never returned.
func (t *Tracker) TrackPageView(pagePath, pageTitle string) {
	if !t.inFlight.CompareAndSwap(false, true) {
		logging.Debug().Str("page_path", pagePath).Msg("page view dropped, previous send still in flight")
		return
	}

	req := models.TrackRequest{
		PagePath:  pagePath,
		PageTitle: pageTitle,
		SessionID: t.identity.GetOrCreateSessionID(),
		UserAgent: t.api.UserAgent,
		Referrer:  t.referrer,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.inFlight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.api.Track(ctx, req); err != nil {
			logging.Warn().Err(err).Str("page_path", pagePath).Msg("failed to send page view")
		}
	}()
}

// Wait blocks until background sends have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
