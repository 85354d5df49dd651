package models

import "time"

// Session is the per-visitor aggregate keyed by the client session token.
type Session struct {
	SessionID          string    `json:"session_id"`
	FirstVisitAt       time.Time `json:"first_visit_at"`
	LastVisitAt        time.Time `json:"last_visit_at"`
	TotalVisits        int       `json:"total_visits"`
	TotalPageViews     int       `json:"total_page_views"`
	DeviceType         string    `json:"device_type"`
	Browser            string    `json:"browser"`
	OS                 string    `json:"os"`
	Country            string    `json:"country,omitempty"`
	City               string    `json:"city,omitempty"`
	IsReturningVisitor bool      `json:"is_returning_visitor"`
}
