// Package dto holds the JSON bodies exchanged between the SketchHub HTTP
// API and its clients.
package dto

type RegisterRequest struct {
	Name                 string `json:"name"`
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type CreateModelRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	CategoryID  *int64   `json:"category_id"`
	Assets      []string `json:"assets"`
}

type FavoriteRequest struct {
	ModelID int64 `json:"model_id"`
}

type FavoriteStatus struct {
	IsFavorited bool `json:"isFavorited"`
}

type CommentRequest struct {
	ModelID int64  `json:"model_id"`
	Comment string `json:"comment"`
}

// CategoryRequest is used for create and partial update; nil fields are
// left unchanged on update.
type CategoryRequest struct {
	Title *string `json:"title"`
	Code  *string `json:"code"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

type Message struct {
	Message string `json:"message"`
}
