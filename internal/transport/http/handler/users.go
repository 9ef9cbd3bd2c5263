package handler

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/ops-dashboard/internal/usecase"
	"github.com/gin-gonic/gin"
)

type userStatuser interface {
	UserStatus(ctx context.Context) []usecase.UserStatus
}

type UsersHandler struct {
	users userStatuser
}

func NewUsersHandler(users userStatuser) *UsersHandler {
	return &UsersHandler{users: users}
}

// GET /api/users/status
func (h *UsersHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": h.users.UserStatus(c.Request.Context())})
}
