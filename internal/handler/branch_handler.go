package handler

import (
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	branchService service.BranchService
}

func NewBranchHandler(branchService service.BranchService) *BranchHandler {
	return &BranchHandler{branchService: branchService}
}

func (h *BranchHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := middleware.RequireAuthority(model.PermBranchView)

	branches := router.Group("/branches")
	{
		branches.GET("", view, h.ListBranches)
		branches.GET("/active", view, h.ListActive)
		branches.GET("/:id", view, h.GetBranch)
		branches.POST("", middleware.RequireAuthority(model.PermBranchCreate), h.CreateBranch)
		branches.PUT("/:id", middleware.RequireAuthority(model.PermBranchUpdate), h.UpdateBranch)
		branches.DELETE("/:id", middleware.RequireAuthority(model.PermBranchDelete), h.DeleteBranch)
	}
}

func (h *BranchHandler) ListBranches(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.branchService.ListBranches(c.Request.Context(), c.Query("keyword"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *BranchHandler) ListActive(c *gin.Context) {
	items, err := h.branchService.ListActiveBranches(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *BranchHandler) GetBranch(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.branchService.GetBranch(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *BranchHandler) CreateBranch(c *gin.Context) {
	var req service.CreateBranchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.branchService.CreateBranch(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, res)
}

func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateBranchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.branchService.UpdateBranch(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *BranchHandler) DeleteBranch(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.branchService.DeleteBranch(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"message": "Branch deleted"})
}
