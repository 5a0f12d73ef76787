package handler

import (
	"net/http"

	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/friendship"
	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	friendshipUseCase *friendship.FriendshipUseCase
}

func NewFriendHandler(friendshipUseCase *friendship.FriendshipUseCase) *FriendHandler {
	return &FriendHandler{
		friendshipUseCase: friendshipUseCase,
	}
}

// ListFriends handles GET /friends
// @Summary List friends
// @Description Friends made through mutual yes in a random session, newest first
// @Tags friends
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} friendship.Friend
// @Router /friends [get]
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	friends, err := h.friendshipUseCase.ListFriends(c.Request.Context(), userID, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}
