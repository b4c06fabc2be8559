package handler

import (
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AccountTypeHandler struct {
	typeService service.AccountTypeService
}

func NewAccountTypeHandler(typeService service.AccountTypeService) *AccountTypeHandler {
	return &AccountTypeHandler{typeService: typeService}
}

func (h *AccountTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := middleware.RequireAuthority(model.PermTypeView)
	update := middleware.RequireAuthority(model.PermTypeUpdate)

	types := router.Group("/account-types")
	{
		types.GET("", view, h.ListAccountTypes)
		types.GET("/active", view, h.ListActive)
		types.GET("/stats", view, h.Stats)
		types.GET("/:id", view, h.GetAccountType)
		types.POST("", middleware.RequireAuthority(model.PermTypeCreate), h.CreateAccountType)
		types.PUT("/:id", update, h.UpdateAccountType)
		types.PUT("/:id/status", update, h.UpdateStatus)
	}
}

func (h *AccountTypeHandler) ListAccountTypes(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AccountTypeFilter{
		Keyword:  c.Query("keyword"),
		Category: model.AccountCategory(c.Query("category")),
		Status:   c.Query("status"),
	}
	items, total, err := h.typeService.ListAccountTypes(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *AccountTypeHandler) ListActive(c *gin.Context) {
	items, err := h.typeService.ListActiveAccountTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *AccountTypeHandler) Stats(c *gin.Context) {
	res, err := h.typeService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountTypeHandler) GetAccountType(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.typeService.GetAccountType(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountTypeHandler) CreateAccountType(c *gin.Context) {
	var req service.CreateAccountTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.typeService.CreateAccountType(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, res)
}

func (h *AccountTypeHandler) UpdateAccountType(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateAccountTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.typeService.UpdateAccountType(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountTypeHandler) UpdateStatus(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.typeService.UpdateStatus(c.Request.Context(), actorID(c), id, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}
