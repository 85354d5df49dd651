package models

import "time"

// SignupRequest creates a dashboard reader. Only callers already holding the
// API key or a valid token may use it.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// User is an admin allowed to read analytics.
type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	HashedPassword []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile is the identity attached to an authenticated request. UserID is
// zero when the caller authenticated with the API key.
type Profile struct {
	UserID int    `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Method string `json:"auth_method"`
}
