package models

import "time"

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"

	Unknown = "Unknown"
)

// PageView is a single recorded page view. Rows are append-only.
type PageView struct {
	ID         string    `json:"id"`
	PagePath   string    `json:"page_path"`
	PageTitle  string    `json:"page_title"`
	SessionID  string    `json:"session_id"`
	UserAgent  string    `json:"user_agent"`
	Referrer   string    `json:"referrer"`
	IPAddress  string    `json:"ip_address,omitempty"`
	DeviceType string    `json:"device_type"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Length limits shared by the request body and the cookie/header fallbacks.
const (
	MaxPagePathLength  = 2048
	MaxSessionIDLength = 128
	MaxUserAgentLength = 1024
	MaxReferrerLength  = 2048
)

// TrackRequest is the body accepted by the ingest endpoint. SessionID may be
// omitted when the client carries it in the session_id cookie.
type TrackRequest struct {
	PagePath  string `json:"page_path" binding:"required,max=2048"`
	PageTitle string `json:"page_title" binding:"max=512"`
	SessionID string `json:"session_id" binding:"max=128"`
	UserAgent string `json:"user_agent" binding:"max=1024"`
	Referrer  string `json:"referrer" binding:"max=2048"`
	Country   string `json:"country" binding:"max=64"`
	City      string `json:"city" binding:"max=128"`
}
