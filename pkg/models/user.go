package models

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	UserID   int    `json:"userId"`
	Token    string `json:"token"`
	// Seconds until the session token expires.
	ExpiresIn int `json:"expires_in"`
}
