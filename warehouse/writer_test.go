package warehouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"malawiexplorer/analytics/metrics"
	"malawiexplorer/analytics/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.PageView
	calls   int
	err     error
}

func (s *recordingSink) InsertPageViews(_ context.Context, views []models.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]models.PageView(nil), views...))
	return nil
}

func (s *recordingSink) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.batches))
	for i, b := range s.batches {
		out[i] = len(b)
	}
	return out
}

func pv(i int) models.PageView {
	return models.PageView{ID: fmt.Sprintf("e%d", i), SessionID: "S1", PagePath: "/"}
}

func TestBatchesBySizeAndFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	w := NewWriter(sink, Config{BatchSize: 3, FlushInterval: time.Hour, QueueSize: 100})
	for i := 0; i < 7; i++ {
		if !w.Enqueue(pv(i)) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	w.Start()
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := sink.sizes()
	want := []int{3, 3, 1}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("batch sizes = %v, want %v", got, want)
	}
	if sink.batches[0][0].ID != "e0" || sink.batches[2][0].ID != "e6" {
		t.Errorf("batches out of order: %+v", sink.batches)
	}
}

func TestFlushesOnInterval(t *testing.T) {
	sink := &recordingSink{}
	w := NewWriter(sink, Config{BatchSize: 100, FlushInterval: 10 * time.Millisecond, QueueSize: 10})
	w.Start()
	defer w.Close(context.Background())

	w.Enqueue(pv(1))
	w.Enqueue(pv(2))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sizes := sink.sizes(); len(sizes) == 1 && sizes[0] == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no interval flush, batches = %v", sink.sizes())
}

func TestEnqueueDropsWhenFullOrClosed(t *testing.T) {
	w := NewWriter(&recordingSink{}, Config{QueueSize: 1, FlushInterval: time.Hour})
	if !w.Enqueue(pv(1)) {
		t.Fatal("first enqueue rejected")
	}
	if w.Enqueue(pv(2)) {
		t.Error("enqueue into full queue accepted")
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.Enqueue(pv(3)) {
		t.Error("enqueue after close accepted")
	}
}

func TestBreakerStopsCallingFailingSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("clickhouse down")}
	w := NewWriter(sink, Config{BatchSize: 1, FlushInterval: time.Hour, QueueSize: 10, FailureThreshold: 2, OpenTimeout: time.Minute})
	for i := 0; i < 5; i++ {
		w.Enqueue(pv(i))
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.calls != 2 {
		t.Errorf("sink called %d times, want 2 before the breaker opened", sink.calls)
	}
	if w.State() != "open" {
		t.Errorf("breaker state = %s, want open", w.State())
	}
}

func TestConcurrentEnqueueDuringCloseLosesNothing(t *testing.T) {
	sink := &recordingSink{}
	w := NewWriter(sink, Config{BatchSize: 50, FlushInterval: time.Hour, QueueSize: 10000})
	w.Start()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if w.Enqueue(pv(g*1000 + i)) {
					accepted.Add(1)
				}
			}
		}(g)
	}
	time.Sleep(time.Millisecond)
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	var flushed int64
	for _, n := range sink.sizes() {
		flushed += int64(n)
	}
	if flushed != accepted.Load() {
		t.Errorf("flushed %d rows, accepted %d", flushed, accepted.Load())
	}
	if q := testutil.ToFloat64(metrics.WarehouseQueued); q != 0 {
		t.Errorf("queue gauge = %v, want 0", q)
	}
}
