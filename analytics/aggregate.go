package analytics

import (
	"sort"
	"time"

	"malawiexplorer/analytics/models"
)

const unknownDevice = "unknown"

// buildSnapshot aggregates views from the last day window. Both window
// boundaries are inclusive.
func buildSnapshot(views []models.PageView, now time.Time, activeWindow time.Duration, topN int) models.RealTimeSnapshot {
	snap := models.EmptySnapshot(now)
	activeSince := now.Add(-activeWindow)

	active := make(map[string]struct{})
	unique := make(map[string]struct{})
	for _, pv := range views {
		snap.TotalPageViewsToday++
		unique[pv.SessionID] = struct{}{}
		if !pv.CreatedAt.Before(activeSince) {
			active[pv.SessionID] = struct{}{}
		}

		device := pv.DeviceType
		if device == "" {
			device = unknownDevice
		}
		snap.DeviceBreakdown[device]++
		snap.BrowserBreakdown[orUnknown(pv.Browser)]++
		snap.OSBreakdown[orUnknown(pv.OS)]++
	}

	snap.ActiveVisitors = int64(len(active))
	snap.UniqueVisitorsToday = int64(len(unique))
	snap.PageViewsByPath = topPages(views, topN)
	return snap
}

// topPages counts views per path, keeps the title of each path's newest view
// (falling back to the path when that title is empty) and returns the n
// busiest paths. Ties break on path.
func topPages(views []models.PageView, n int) []models.PagePathCount {
	type agg struct {
		count    int64
		title    string
		newestAt time.Time
		seen     bool
	}
	byPath := make(map[string]*agg)
	for _, pv := range views {
		a := byPath[pv.PagePath]
		if a == nil {
			a = &agg{}
			byPath[pv.PagePath] = a
		}
		a.count++
		if !a.seen || pv.CreatedAt.After(a.newestAt) {
			a.title, a.newestAt, a.seen = pv.PageTitle, pv.CreatedAt, true
		}
	}

	pages := make([]models.PagePathCount, 0, len(byPath))
	for path, a := range byPath {
		title := a.title
		if title == "" {
			title = path
		}
		pages = append(pages, models.PagePathCount{Path: path, Title: title, Count: a.count})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Count != pages[j].Count {
			return pages[i].Count > pages[j].Count
		}
		return pages[i].Path < pages[j].Path
	})
	if len(pages) > n {
		pages = pages[:n]
	}
	return pages
}

// dailyRollup buckets views by UTC calendar day, oldest day first.
func dailyRollup(views []models.PageView) []models.DailyStat {
	type bucket struct {
		views    int64
		sessions map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, pv := range views {
		day := pv.CreatedAt.UTC().Format(time.DateOnly)
		b := buckets[day]
		if b == nil {
			b = &bucket{sessions: make(map[string]struct{})}
			buckets[day] = b
		}
		b.views++
		b.sessions[pv.SessionID] = struct{}{}
	}

	stats := make([]models.DailyStat, 0, len(buckets))
	for day, b := range buckets {
		stats = append(stats, models.DailyStat{
			Date:           day,
			PageViews:      b.views,
			UniqueVisitors: int64(len(b.sessions)),
		})
	}
	// YYYY-MM-DD sorts lexically in date order.
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}
