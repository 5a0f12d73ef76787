package handler

import (
	"net/http"

	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase *auth.TokenUseCase
}

func NewAuthHandler(authUseCase *auth.TokenUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
	}
}

// DevLogin issues a token for an arbitrary user id (development only)
// @Summary Development login
// @Description Create a throwaway identity and token without the identity service
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.DevLoginRequest true "Identity"
// @Success 200 {object} auth.DevLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/dev [post]
func (h *AuthHandler) DevLogin(c *gin.Context) {
	var req auth.DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	resp, err := h.authUseCase.DevLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns current user info
// @Summary Get current user
// @Description Get the id carried by the bearer token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
	})
}
