// Package warehouse mirrors stored page views into ClickHouse in batches,
// off the ingest path.
package warehouse

import (
	"context"
	"errors"
	"sync"
	"time"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/metrics"
	"malawiexplorer/analytics/models"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Inserter writes one batch to the warehouse.
type Inserter interface {
	InsertPageViews(ctx context.Context, views []models.PageView) error
}

type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
	// FailureThreshold consecutive failed flushes open the breaker for
	// OpenTimeout; batches flushed while it is open are dropped.
	FailureThreshold uint32
	OpenTimeout      time.Duration
	FlushTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 10000
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 3
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 30 * time.Second
	}
	return c
}

type Writer struct {
	sink    Inserter
	cfg     Config
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger

	queue  chan models.PageView
	stop   chan struct{}
	done   chan struct{}
	// mu orders Enqueue sends before Close so the final drain sees them.
	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewWriter(sink Inserter, cfg Config) *Writer {
	cfg = cfg.withDefaults()
	w := &Writer{
		sink:  sink,
		cfg:   cfg,
		queue: make(chan models.PageView, cfg.QueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   logging.With("warehouse_writer"),
	}
	w.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "clickhouse-mirror",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("warehouse circuit breaker state changed")
		},
	})
	return w
}

// Start launches the background flusher. Calling it again is a no-op.
func (w *Writer) Start() {
	w.startOnce.Do(func() { go w.run() })
}

// Enqueue offers pv to the mirror without blocking. It reports false when the
// queue is full or the writer is closed.
func (w *Writer) Enqueue(pv models.PageView) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		metrics.WarehouseDropped.Inc()
		return false
	}
	select {
	case w.queue <- pv:
		metrics.WarehouseQueued.Inc()
		return true
	default:
		metrics.WarehouseDropped.Inc()
		return false
	}
}

// Close stops accepting page views, flushes what is queued and waits for the
// flusher to exit or ctx to end.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.stopOnce.Do(func() { close(w.stop) })
	w.mu.Unlock()
	w.Start()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) State() string {
	return w.breaker.State().String()
}

func (w *Writer) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]models.PageView, 0, w.cfg.BatchSize)
	add := func(pv models.PageView) {
		metrics.WarehouseQueued.Dec()
		batch = append(batch, pv)
		if len(batch) >= w.cfg.BatchSize {
			w.flush(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case pv := <-w.queue:
			add(pv)
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.stop:
			for {
				select {
				case pv := <-w.queue:
					add(pv)
				default:
					if len(batch) > 0 {
						w.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (w *Writer) flush(batch []models.PageView) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FlushTimeout)
	defer cancel()

	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.sink.InsertPageViews(ctx, batch)
	})
	metrics.RecordWarehouseFlush(len(batch), err)
	switch {
	case err == nil:
		w.log.Debug().Int("rows", len(batch)).Msg("warehouse batch flushed")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.WarehouseDropped.Add(float64(len(batch)))
		w.log.Warn().Int("rows", len(batch)).Msg("warehouse unavailable, batch dropped")
	default:
		metrics.WarehouseDropped.Add(float64(len(batch)))
		w.log.Error().Err(err).Int("rows", len(batch)).Msg("warehouse batch insert failed")
	}
}
