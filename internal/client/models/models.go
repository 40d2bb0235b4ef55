// Package models defines the records the SketchHub CLI caches locally and
// patches from broadcast events.
package models

import "time"

// Record is anything the client keeps in an id-addressed list.
type Record interface {
	GetID() int64
}

type Author struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profile_image"`
}

type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

func (c Category) GetID() int64 { return c.ID }

type Model struct {
	ID              int64     `json:"id"`
	AuthorID        int64     `json:"author_id"`
	CategoryID      *int64    `json:"category_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	FavoriteCount   int64     `json:"favorite_count"`
	PreviewImageURL *string   `json:"preview_image_url"`
	EnvMapURL       *string   `json:"env_map_url"`
	ModelGLBURL     *string   `json:"model_glb_url"`
	FileURL         string    `json:"file_url"`
	CreatedAt       time.Time `json:"created_at"`
	Author          *Author   `json:"author,omitempty"`
	Category        *Category `json:"category,omitempty"`
}

func (m Model) GetID() int64 { return m.ID }

type User struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"profile_image"`
	Role         string  `json:"role,omitempty"`
}

func (u User) GetID() int64 { return u.ID }

// Favorite is one entry of the caller's favorites; Model is a summary.
type Favorite struct {
	ID      int64  `json:"id"`
	ModelID int64  `json:"model_id"`
	Model   *Model `json:"model,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id"`
	ModelID   int64     `json:"model_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	User      *Author   `json:"user,omitempty"`
}

// Page is one keyset page; NextCursor is nil on the last page.
type Page[T any] struct {
	Data       []T    `json:"data"`
	NextCursor *int64 `json:"next_cursor"`
}

// Session is the logged-in user plus the token pair.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}
