package client

import (
	"context"
	"sync"
	"time"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"
)

// View is the state of one dashboard panel.
type View[T any] struct {
	Data      T
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

type viewState[T any] struct {
	view    View[T]
	issued  uint64
	applied uint64
	// clearOnError drops the previous data when a fetch fails.
	clearOnError bool
}

// begin marks a fetch as started and returns its sequence number.
func (s *viewState[T]) begin() uint64 {
	s.issued++
	s.view.Loading = true
	return s.issued
}

// finish applies a result unless a newer fetch already landed.
func (s *viewState[T]) finish(seq uint64, data T, err error, at time.Time) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	s.view.Loading = seq < s.issued
	s.view.Err = err
	switch {
	case err == nil:
		s.view.Data = data
		s.view.UpdatedAt = at
	case s.clearOnError:
		var zero T
		s.view.Data = zero
	}
	return true
}

// discardPending makes every fetch issued so far stale.
func (s *viewState[T]) discardPending() {
	s.applied = s.issued
	s.view.Loading = false
}

// DashboardAPI is the subset of Client the dashboard polls.
type DashboardAPI interface {
	RealTime(ctx context.Context) (models.RealTimeSnapshot, error)
	Historical(ctx context.Context, days int) ([]models.DailyStat, error)
	Sessions(ctx context.Context) ([]models.Session, error)
}

// Dashboard polls the three read endpoints on an interval. A response that
// arrives after a newer one for the same view is discarded, and Stop cancels
// anything in flight.
type Dashboard struct {
	api      DashboardAPI
	interval time.Duration
	days     int
	now      func() time.Time

	mu         sync.Mutex
	realtime   viewState[models.RealTimeSnapshot]
	historical viewState[[]models.DailyStat]
	sessions   viewState[[]models.Session]

	cancel   context.CancelFunc
	inflight map[uint64]context.CancelFunc
	fetchID  uint64
	wg       sync.WaitGroup
}

type DashboardOption func(*Dashboard)

func WithPollInterval(d time.Duration) DashboardOption {
	return func(db *Dashboard) {
		if d > 0 {
			db.interval = d
		}
	}
}

func WithHistoryDays(days int) DashboardOption {
	return func(db *Dashboard) { db.days = days }
}

func NewDashboard(api DashboardAPI, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		api:      api,
		interval: 30 * time.Second,
		now:      time.Now,
		inflight: make(map[uint64]context.CancelFunc),
	}
	// A failed history or session read empties the list; the live snapshot
	// keeps its last good values.
	d.historical.clearOnError = true
	d.sessions.clearOnError = true
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start refreshes immediately and then on every tick until ctx is done or
// Stop is called.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		d.Refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Refresh(ctx)
			}
		}
	}()
}

// Stop cancels polling and every in-flight fetch, including on-demand
// refreshes, and waits for the poll loop to return. Results that land after
// Stop are discarded.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	for id, c := range d.inflight {
		c()
		delete(d.inflight, id)
	}
	d.realtime.discardPending()
	d.historical.discardPending()
	d.sessions.discardPending()
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// Refresh fetches all three views concurrently and waits for them.
func (d *Dashboard) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); d.RefreshRealTime(ctx) }()
	go func() { defer wg.Done(); d.RefreshHistorical(ctx) }()
	go func() { defer wg.Done(); d.RefreshSessions(ctx) }()
	wg.Wait()
}

func (d *Dashboard) RefreshRealTime(ctx context.Context) {
	refresh(ctx, d, &d.realtime, "realtime", d.api.RealTime)
}

func (d *Dashboard) RefreshHistorical(ctx context.Context) {
	refresh(ctx, d, &d.historical, "historical", func(ctx context.Context) ([]models.DailyStat, error) {
		return d.api.Historical(ctx, d.days)
	})
}

func (d *Dashboard) RefreshSessions(ctx context.Context) {
	refresh(ctx, d, &d.sessions, "sessions", d.api.Sessions)
}

func refresh[T any](ctx context.Context, d *Dashboard, s *viewState[T], name string, fetch func(context.Context) (T, error)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	seq := s.begin()
	d.fetchID++
	id := d.fetchID
	d.inflight[id] = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, id)
		d.mu.Unlock()
	}()

	data, err := fetch(ctx)
	if ctx.Err() != nil {
		// Cancelled fetches never overwrite what is on screen.
		d.mu.Lock()
		if seq == s.issued {
			s.view.Loading = false
		}
		d.mu.Unlock()
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("view", name).Msg("dashboard refresh failed")
	}

	d.mu.Lock()
	applied := s.finish(seq, data, err, d.now())
	d.mu.Unlock()
	if !applied {
		logging.Debug().Str("view", name).Uint64("seq", seq).Msg("stale dashboard response discarded")
	}
}

func (d *Dashboard) RealTime() View[models.RealTimeSnapshot] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.realtime.view
}

func (d *Dashboard) Historical() View[[]models.DailyStat] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.historical.view
}

func (d *Dashboard) Sessions() View[[]models.Session] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions.view
}
