package handler

import (
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/audit-logs", middleware.RequireAuthority(model.PermAuditView))
	{
		logs.GET("", h.Search)
		logs.GET("/actions", h.Actions)
		logs.GET("/modules", h.Modules)
		logs.GET("/entity/:type/:id", h.ForEntity)
	}
}

// Search handles GET /audit-logs?userId=&action=&module=&entityType=&entityId=&from=&to=
// Dates are YYYY-MM-DD or RFC 3339; a date-only "to" includes the whole day.
func (h *AuditHandler) Search(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		UserID:     queryUint(c, "userId"),
		Action:     c.Query("action"),
		Module:     c.Query("module"),
		EntityType: c.Query("entityType"),
		EntityID:   queryUint(c, "entityId"),
	}
	fields := map[string]string{}
	if v := c.Query("from"); v != "" {
		if t, _, err := parseTimeParam(v); err == nil {
			filter.From = &t
		} else {
			fields["from"] = "Must be YYYY-MM-DD or an RFC 3339 timestamp"
		}
	}
	if v := c.Query("to"); v != "" {
		if t, dateOnly, err := parseTimeParam(v); err == nil {
			if dateOnly {
				t = t.AddDate(0, 0, 1)
			}
			filter.To = &t
		} else {
			fields["to"] = "Must be YYYY-MM-DD or an RFC 3339 timestamp"
		}
	}
	if len(fields) > 0 {
		writeError(c, apperr.Validation(fields))
		return
	}

	items, total, err := h.auditService.Search(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, pagination.NewPage(items, total, p))
}

func (h *AuditHandler) ForEntity(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	items, err := h.auditService.ForEntity(c.Request.Context(), c.Param("type"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *AuditHandler) Actions(c *gin.Context) {
	items, err := h.auditService.DistinctActions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func (h *AuditHandler) Modules(c *gin.Context) {
	items, err := h.auditService.DistinctModules(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, items)
}

func parseTimeParam(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}
