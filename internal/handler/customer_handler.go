package handler

import (
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := middleware.RequireAuthority(model.PermCustomerView)
	update := middleware.RequireAuthority(model.PermCustomerUpdate)

	customers := router.Group("/customers")
	{
		customers.GET("", view, h.ListCustomers)
		customers.GET("/stats", view, h.Stats)
		customers.GET("/number/:number", view, h.GetByNumber)
		customers.GET("/:id", view, h.GetCustomer)
		customers.POST("", middleware.RequireAuthority(model.PermCustomerCreate), h.CreateCustomer)
		customers.PUT("/:id", update, h.UpdateCustomer)
		customers.PUT("/:id/status", update, h.UpdateStatus)
		customers.POST("/:id/verify-kyc", update, h.VerifyKyc)
	}
}

// ListCustomers handles GET /customers?keyword=&type=&status=&branchId=
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.CustomerFilter{
		Keyword:  c.Query("keyword"),
		Type:     model.CustomerType(c.Query("type")),
		Status:   c.Query("status"),
		BranchID: queryUint(c, "branchId"),
	}
	items, total, err := h.customerService.ListCustomers(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *CustomerHandler) GetByNumber(c *gin.Context) {
	res, err := h.customerService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *CustomerHandler) Stats(c *gin.Context) {
	res, err := h.customerService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.customerService.CreateCustomer(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, res)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.customerService.UpdateCustomer(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

// UpdateStatus handles PUT /customers/:id/status?status=
func (h *CustomerHandler) UpdateStatus(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.customerService.UpdateStatus(c.Request.Context(), actorID(c), id, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (h *CustomerHandler) VerifyKyc(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.customerService.VerifyKyc(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}
