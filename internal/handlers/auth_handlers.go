package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
)

// AuthHandlers serves login/token issuance for the dashboard.
type AuthHandlers struct {
	users *store.Store
	auth  *middleware.AuthService
}

func NewAuthHandlers(users *store.Store, auth *middleware.AuthService) *AuthHandlers {
	return &AuthHandlers{users: users, auth: auth}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// Login verifies credentials and returns a signed bearer token.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if err := middleware.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	user, ok := h.users.CheckPassword(c.Request.Context(), req.Username, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.auth.GenerateToken(user.Username, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	})
}
