package models

import "time"

type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

// Model is a published 3D model. Asset fields hold object-storage keys on
// write and public URLs once the service has resolved them for a response.
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
	UpdatedAt       time.Time `json:"updated_at"`
	Author          *Author   `json:"author,omitempty"`
	Category        *Category `json:"category,omitempty"`
}

// ModelSummary is the short model view embedded in favorites listings.
type ModelSummary struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	PreviewImageURL *string `json:"preview_image_url"`
	FavoriteCount   int64   `json:"favorite_count"`
}

type Favorite struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	ModelID   int64         `json:"model_id"`
	CreatedAt time.Time     `json:"created_at"`
	Model     *ModelSummary `json:"model,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id"`
	ModelID   int64     `json:"model_id"`
	UserID    int64     `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	User      *Author   `json:"user,omitempty"`
}

// Page is one keyset page; NextCursor is nil on the last page.
type Page[T any] struct {
	Data       []T    `json:"data"`
	NextCursor *int64 `json:"next_cursor"`
}
