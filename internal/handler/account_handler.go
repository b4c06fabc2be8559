package handler

import (
	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := middleware.RequireAuthority(model.PermAccountView)
	update := middleware.RequireAuthority(model.PermAccountUpdate)

	accounts := router.Group("/accounts")
	{
		accounts.GET("", view, h.ListAccounts)
		accounts.GET("/stats", view, h.Stats)
		accounts.GET("/branch/:id/stats", view, h.BranchStats)
		accounts.GET("/number/:number", view, h.GetByNumber)
		accounts.GET("/:id", view, h.GetAccount)
		accounts.POST("", middleware.RequireAuthority(model.PermAccountCreate), h.OpenAccount)
		accounts.PUT("/:id", update, h.UpdateAccount)
		accounts.PUT("/:id/balance", update, h.UpdateBalance)
		accounts.PUT("/:id/status", update, h.UpdateStatus)
		accounts.POST("/:id/freeze", update, h.Freeze)
		accounts.POST("/:id/unfreeze", update, h.Unfreeze)
		accounts.POST("/:id/close", middleware.RequireAuthority(model.PermAccountClose), h.Close)
	}
}

// ListAccounts handles GET /accounts?keyword=&status=&branchId=&customerId=
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AccountFilter{
		Keyword:    c.Query("keyword"),
		BranchID:   queryUint(c, "branchId"),
		CustomerID: queryUint(c, "customerId"),
	}
	if s := c.Query("status"); s != "" {
		status, valid := model.ParseAccountStatus(s)
		if !valid {
			writeError(c, apperr.Validation(map[string]string{"status": "Unknown account status '" + s + "'"}))
			return
		}
		filter.Status = status
	}
	items, total, err := h.accountService.ListAccounts(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) GetByNumber(c *gin.Context) {
	res, err := h.accountService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) Stats(c *gin.Context) {
	res, err := h.accountService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) BranchStats(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.accountService.BranchStats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

// OpenAccount handles POST /accounts
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req service.OpenAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.accountService.OpenAccount(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, res)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.accountService.UpdateAccount(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) UpdateBalance(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateBalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.accountService.UpdateBalance(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

// UpdateStatus handles PUT /accounts/:id/status?status=&reason=. The status
// literal must match exactly.
func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	raw := c.Query("status")
	status, known := model.ParseAccountStatus(raw)
	if !known {
		writeError(c, apperr.Validation(map[string]string{"status": "Unknown account status '" + raw + "'"}))
		return
	}
	res, err := h.accountService.UpdateStatus(c.Request.Context(), actorID(c), id, status, c.Query("reason"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) Freeze(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	reason, valid := h.reason(c)
	if !valid {
		return
	}
	res, err := h.accountService.Freeze(c.Request.Context(), actorID(c), id, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) Unfreeze(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.accountService.Unfreeze(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *AccountHandler) Close(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	reason, valid := h.reason(c)
	if !valid {
		return
	}
	res, err := h.accountService.Close(c.Request.Context(), actorID(c), id, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

// reason reads ?reason= or, when a body is sent, {"reason": "..."}.
func (h *AccountHandler) reason(c *gin.Context) (string, bool) {
	if r := c.Query("reason"); r != "" {
		return r, true
	}
	if c.Request.ContentLength <= 0 {
		return "", true
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return "", false
	}
	return req.Reason, true
}
