package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/sketchhub/internal/dto"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// bind decodes the JSON body; a malformed body is 422.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abort(c, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// --- auth ---

func (h *handler) register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bind(c, &req) {
		return
	}
	_, err := h.svc.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name:                 req.Name,
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "account registered"})
}

type loginUser struct {
	*models.User
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *handler) login(c *gin.Context) {
	var req dto.CredentialsRequest
	if !bind(c, &req) {
		return
	}
	user, pair, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "logged in",
		"user":    loginUser{User: user, Token: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

func (h *handler) checkCredentials(c *gin.Context) {
	var req dto.CredentialsRequest
	if !bind(c, &req) {
		return
	}
	if _, err := h.svc.Auth.CheckCredentials(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "credentials are valid"})
}

func (h *handler) refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenPair{Token: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handler) logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), identity(c).UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "logged out"})
}

func (h *handler) me(c *gin.Context) {
	u, err := h.svc.Users.Me(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// --- models ---

func (h *handler) listModels(c *gin.Context) {
	cursor, ok := cursorQuery(c)
	if !ok {
		return
	}
	p, err := h.svc.Models.List(c.Request.Context(), cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) popularModels(c *gin.Context) {
	items, err := h.svc.Models.Popular(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handler) searchModels(c *gin.Context) {
	items, err := h.svc.Models.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handler) modelsByCategory(c *gin.Context) {
	cursor, ok := cursorQuery(c)
	if !ok {
		return
	}
	p, err := h.svc.Models.ByCategory(c.Request.Context(), c.Param("code"), cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) showModel(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.Models.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handler) createModel(c *gin.Context) {
	var req dto.CreateModelRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Models.Create(c.Request.Context(), identity(c).UserID, services.CreateModelInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Assets:      req.Assets,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handler) deleteModel(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Models.Delete(c.Request.Context(), identity(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "model deleted"})
}

// --- favorites ---

func (h *handler) addFavorite(c *gin.Context) {
	var req dto.FavoriteRequest
	if !bind(c, &req) {
		return
	}
	fav, err := h.svc.Favorites.Add(c.Request.Context(), identity(c).UserID, req.ModelID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "model added to favorites", "favorite": fav})
}

func (h *handler) removeFavorite(c *gin.Context) {
	modelID, ok := int64Param(c, "modelId")
	if !ok {
		return
	}
	if err := h.svc.Favorites.Remove(c.Request.Context(), identity(c).UserID, modelID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "model removed from favorites"})
}

func (h *handler) favoriteStatus(c *gin.Context) {
	modelID, ok := int64Param(c, "modelId")
	if !ok {
		return
	}
	fav, err := h.svc.Favorites.Status(c.Request.Context(), identity(c).UserID, modelID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FavoriteStatus{IsFavorited: fav})
}

func (h *handler) listFavorites(c *gin.Context) {
	items, err := h.svc.Favorites.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// --- comments ---

func (h *handler) listComments(c *gin.Context) {
	modelID, err := strconv.ParseInt(c.Query("model_id"), 10, 64)
	if err != nil || modelID <= 0 {
		abort(c, http.StatusUnprocessableEntity, "model_id must be a positive integer")
		return
	}
	cursor, ok := cursorQuery(c)
	if !ok {
		return
	}
	p, err := h.svc.Comments.List(c.Request.Context(), modelID, cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) createComment(c *gin.Context) {
	var req dto.CommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.svc.Comments.Create(c.Request.Context(), identity(c).UserID, req.ModelID, req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment, "message": "comment added"})
}

// --- categories ---

func (h *handler) listCategories(c *gin.Context) {
	items, err := h.svc.Categories.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handler) createCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bind(c, &req) {
		return
	}
	cat, err := h.svc.Categories.Create(c.Request.Context(), deref(req.Title), deref(req.Code))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *handler) updateCategory(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bind(c, &req) {
		return
	}
	cat, err := h.svc.Categories.Update(c.Request.Context(), id, req.Title, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *handler) deleteCategory(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Categories.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "category deleted"})
}

// --- users ---

func (h *handler) listUsers(c *gin.Context) {
	items, err := h.svc.Users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *handler) listRoles(c *gin.Context) {
	items, err := h.svc.Users.Roles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *handler) changeRole(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.RoleRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Users.ChangeRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": u})
}

func (h *handler) deleteUser(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Users.Delete(c.Request.Context(), identity(c).UserID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message{Message: "user deleted"})
}

func (h *handler) updateProfileImage(c *gin.Context) {
	up, err := h.svc.Users.UpdateProfileImage(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
