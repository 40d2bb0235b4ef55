// Package models defines server-side records persisted in PostgreSQL and
// returned by the HTTP API.
package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage *string   `json:"profile_image"`
	RoleID       int64     `json:"role_id"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Role struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Author is the public projection of a user attached to models and comments.
type Author struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profile_image"`
}
