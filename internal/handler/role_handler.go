package handler

import (
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := middleware.RequireAuthority(model.PermRoleView)

	roles := router.Group("/roles")
	{
		roles.GET("", view, h.ListRoles)
		roles.GET("/active", view, h.ListActiveRoles)
		roles.GET("/:id", view, h.GetRole)
		roles.POST("", middleware.RequireAuthority(model.PermRoleCreate), h.CreateRole)
		roles.PUT("/:id", middleware.RequireAuthority(model.PermRoleUpdate), h.UpdateRole)
		roles.DELETE("/:id", middleware.RequireAuthority(model.PermRoleDelete), h.DeleteRole)
	}

	perms := router.Group("/permissions", middleware.RequireAuthority(model.PermPermissionView))
	{
		perms.GET("", h.ListPermissions)
		perms.GET("/grouped", h.ListPermissionsByModule)
	}
}

func (h *RoleHandler) ListRoles(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.roleService.ListRoles(c.Request.Context(), c.Query("keyword"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *RoleHandler) ListActiveRoles(c *gin.Context) {
	items, err := h.roleService.ListActiveRoles(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *RoleHandler) GetRole(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.roleService.GetRole(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.roleService.CreateRole(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, res)
}

func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.roleService.UpdateRole(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.roleService.DeleteRole(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"message": "Role deleted"})
}

func (h *RoleHandler) ListPermissions(c *gin.Context) {
	items, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *RoleHandler) ListPermissionsByModule(c *gin.Context) {
	items, err := h.roleService.ListPermissionsByModule(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}
