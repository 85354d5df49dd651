package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"malawiexplorer/analytics/models"
)

type scriptedAPI struct {
	realtime   func(ctx context.Context) (models.RealTimeSnapshot, error)
	historical func(ctx context.Context) ([]models.DailyStat, error)
	calls      atomic.Int32
}

func (a *scriptedAPI) RealTime(ctx context.Context) (models.RealTimeSnapshot, error) {
	a.calls.Add(1)
	return a.realtime(ctx)
}

func (a *scriptedAPI) Historical(ctx context.Context, _ int) ([]models.DailyStat, error) {
	if a.historical != nil {
		return a.historical(ctx)
	}
	return []models.DailyStat{{Date: "2026-10-18", PageViews: 1, UniqueVisitors: 1}}, nil
}

func (a *scriptedAPI) Sessions(context.Context) ([]models.Session, error) {
	return nil, errors.New("sessions down")
}

func TestDashboardDiscardsStaleResponse(t *testing.T) {
	slow := make(chan struct{})
	var n atomic.Int32
	api := &scriptedAPI{realtime: func(ctx context.Context) (models.RealTimeSnapshot, error) {
		if n.Add(1) == 1 {
			<-slow
			return models.RealTimeSnapshot{ActiveVisitors: 1}, nil
		}
		return models.RealTimeSnapshot{ActiveVisitors: 2}, nil
	}}
	d := NewDashboard(api)

	done := make(chan struct{})
	go func() {
		d.RefreshRealTime(context.Background())
		close(done)
	}()
	for n.Load() < 1 {
		time.Sleep(time.Millisecond)
	}

	d.RefreshRealTime(context.Background())
	if got := d.RealTime().Data.ActiveVisitors; got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}

	close(slow)
	<-done
	view := d.RealTime()
	if view.Data.ActiveVisitors != 2 {
		t.Errorf("stale response applied: active = %d", view.Data.ActiveVisitors)
	}
}

func TestDashboardRefreshKeepsErrorsPerView(t *testing.T) {
	api := &scriptedAPI{realtime: func(context.Context) (models.RealTimeSnapshot, error) {
		return models.RealTimeSnapshot{ActiveVisitors: 5}, nil
	}}
	d := NewDashboard(api, WithHistoryDays(7))
	d.Refresh(context.Background())

	if v := d.RealTime(); v.Err != nil || v.Data.ActiveVisitors != 5 || v.Loading || v.UpdatedAt.IsZero() {
		t.Errorf("realtime view = %+v", v)
	}
	if v := d.Historical(); v.Err != nil || len(v.Data) != 1 {
		t.Errorf("historical view = %+v", v)
	}
	if v := d.Sessions(); v.Err == nil || v.Loading {
		t.Errorf("sessions view = %+v, want error", v)
	}
}

func TestDashboardStopCancelsInFlight(t *testing.T) {
	api := &scriptedAPI{realtime: func(ctx context.Context) (models.RealTimeSnapshot, error) {
		<-ctx.Done()
		return models.RealTimeSnapshot{ActiveVisitors: 9}, ctx.Err()
	}}
	d := NewDashboard(api, WithPollInterval(time.Hour))
	d.Start(context.Background())
	for api.calls.Load() < 1 {
		time.Sleep(time.Millisecond)
	}

	d.Stop()

	v := d.RealTime()
	if v.Data.ActiveVisitors != 0 || v.Err != nil || v.Loading {
		t.Errorf("view after stop = %+v", v)
	}
}

func TestDashboardStopDiscardsOnDemandRefresh(t *testing.T) {
	release := make(chan struct{})
	var n atomic.Int32
	api := &scriptedAPI{realtime: func(ctx context.Context) (models.RealTimeSnapshot, error) {
		if n.Add(1) == 1 {
			return models.RealTimeSnapshot{ActiveVisitors: 7}, nil
		}
		// Ignores cancellation so the result lands after Stop.
		<-release
		return models.RealTimeSnapshot{ActiveVisitors: 42}, nil
	}}
	d := NewDashboard(api, WithPollInterval(time.Hour))
	d.Start(context.Background())
	for d.RealTime().Data.ActiveVisitors != 7 {
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		d.RefreshRealTime(context.Background())
		close(done)
	}()
	for n.Load() < 2 {
		time.Sleep(time.Millisecond)
	}

	d.Stop()
	close(release)
	<-done

	v := d.RealTime()
	if v.Data.ActiveVisitors != 7 || v.Loading {
		t.Errorf("view after stop = %+v, want active=7 and not loading", v)
	}
}

func TestDashboardFailureClearsListsOnly(t *testing.T) {
	var failing atomic.Bool
	api := &scriptedAPI{
		realtime: func(context.Context) (models.RealTimeSnapshot, error) {
			if failing.Load() {
				return models.RealTimeSnapshot{}, errors.New("realtime down")
			}
			return models.RealTimeSnapshot{ActiveVisitors: 3}, nil
		},
		historical: func(context.Context) ([]models.DailyStat, error) {
			if failing.Load() {
				return nil, errors.New("history down")
			}
			return []models.DailyStat{{Date: "2026-10-18", PageViews: 2, UniqueVisitors: 1}}, nil
		},
	}
	d := NewDashboard(api)
	d.Refresh(context.Background())
	if len(d.Historical().Data) != 1 {
		t.Fatalf("historical = %+v", d.Historical())
	}

	failing.Store(true)
	d.Refresh(context.Background())

	if v := d.Historical(); v.Err == nil || len(v.Data) != 0 {
		t.Errorf("historical after failure = %+v, want error and no data", v)
	}
	if v := d.RealTime(); v.Err == nil || v.Data.ActiveVisitors != 3 {
		t.Errorf("realtime after failure = %+v, want error and previous data", v)
	}
}
