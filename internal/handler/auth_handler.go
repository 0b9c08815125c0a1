package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// AuthHandler serves the admin panel login.
type AuthHandler struct {
	auth *service.AdminAuthService
}

func NewAuthHandler(auth *service.AdminAuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/admin/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		utils.Success(c, http.StatusOK, "Login successful", session)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountInactive):
		utils.Error(c, http.StatusUnauthorized, utils.CodeInvalidCredentials, err.Error())
	default:
		respondError(c, err)
	}
}

// Session handles GET /v1/admin/auth/session and echoes the token's admin.
func (h *AuthHandler) Session(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Session active", gin.H{
		"adminId": c.GetInt(utils.ContextAdminID),
		"email":   c.GetString(utils.ContextAdminEmail),
	})
}
