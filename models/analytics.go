package models

import "time"

type PagePathCount struct {
	Path  string `json:"path"`
	Title string `json:"title"`
	Count int64  `json:"count"`
}

type RealTimeSnapshot struct {
	ActiveVisitors      int64            `json:"activeVisitors"`
	TotalPageViewsToday int64            `json:"totalPageViewsToday"`
	UniqueVisitorsToday int64            `json:"uniqueVisitorsToday"`
	PageViewsByPath     []PagePathCount  `json:"pageViewsByPath"`
	DeviceBreakdown     map[string]int64 `json:"deviceBreakdown"`
	BrowserBreakdown    map[string]int64 `json:"browserBreakdown"`
	OSBreakdown         map[string]int64 `json:"osBreakdown"`
	LastUpdated         time.Time        `json:"lastUpdated"`
}

// EmptySnapshot is what readers get when the underlying query fails.
func EmptySnapshot(at time.Time) RealTimeSnapshot {
	return RealTimeSnapshot{
		PageViewsByPath:  []PagePathCount{},
		DeviceBreakdown:  map[string]int64{},
		BrowserBreakdown: map[string]int64{},
		OSBreakdown:      map[string]int64{},
		LastUpdated:      at,
	}
}

// DailyStat is one UTC calendar day of traffic.
type DailyStat struct {
	Date           string `json:"date"`
	PageViews      int64  `json:"pageViews"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}
