package handler

import (
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Any authenticated user
	router.PUT("/users/me/password", h.ChangePassword)

	users := router.Group("/users")
	{
		users.GET("", middleware.RequireAuthority(model.PermUserView), h.ListUsers)
		users.GET("/:id", middleware.RequireAuthority(model.PermUserView), h.GetUser)
		users.POST("", middleware.RequireAuthority(model.PermUserCreate), h.CreateUser)
		users.PUT("/:id", middleware.RequireAuthority(model.PermUserUpdate), h.UpdateUser)
		users.DELETE("/:id", middleware.RequireAuthority(model.PermUserDelete), h.DeleteUser)
		users.POST("/:id/reset-password", middleware.RequireAuthority(model.PermUserResetPassword), h.ResetPassword)
		users.POST("/:id/unlock", middleware.RequireAuthority(model.PermUserUpdate), h.UnlockUser)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.UserFilter{
		Keyword:  c.Query("keyword"),
		BranchID: queryUint(c, "branchId"),
		Status:   c.Query("status"),
	}
	items, total, err := h.userService.ListUsers(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}

// CreateUser handles POST /users; the password is hashed before it is stored
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"message": "User deleted"})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), actorID(c), id, req); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"message": "Password reset"})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), actorID(c), req); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"message": "Password changed"})
}

func (h *UserHandler) UnlockUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	user, err := h.userService.UnlockUser(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}
