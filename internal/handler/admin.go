package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
	users *service.UserService
}

func NewAdminHandler(admin *service.AdminService, users *service.UserService) *AdminHandler {
	return &AdminHandler{admin: admin, users: users}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"stats": dto.NewStatsResponse(stats)})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": len(users), "users": dto.NewAdminUserList(users)})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidRole.Wrap(err))
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), id, model.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User role updated", "user": dto.NewUserResponse(user)})
}
