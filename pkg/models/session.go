package models

import "time"

// Session is the server-side proof of a completed login, referenced by an
// opaque token. Owned exclusively by the session store.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
