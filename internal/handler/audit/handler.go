package audit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/audit"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	logs := r.Group("/audit-logs", mw.Auth.Authenticate())
	{
		viewer := logs.Group("", mw.Auth.RequirePermission(model.PermAuditLogView))
		viewer.GET("", h.ListLogs)
		viewer.GET("/export", h.ExportLogs)
		viewer.GET("/stats", h.GetStats)
		viewer.GET("/:id", h.GetLog)

		logs.DELETE("/cleanup", mw.Auth.RequireSuperAdmin(), h.Cleanup)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	var filter model.AuditFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.Normalize()

	logs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, logs, filter.Page, filter.Limit, total)
}

func (h *Handler) GetLog(c *gin.Context) {
	id, ok := handler.ParseID(c, "Audit log")
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry, "")
}

// ExportLogs streams the filtered logs as CSV.
func (h *Handler) ExportLogs(c *gin.Context) {
	var filter model.AuditFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Status(http.StatusOK)

	if _, err := h.service.Export(c.Request.Context(), filter, c.Writer); err != nil {
		// Rows written before the failure have already reached the client.
		_ = c.Error(err)
	}
}

func (h *Handler) GetStats(c *gin.Context) {
	var filter model.AuditFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats, "")
}

func (h *Handler) Cleanup(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "days must be a number")
		return
	}

	deleted, err := h.service.Cleanup(c.Request.Context(), days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": deleted},
		fmt.Sprintf("Deleted %d audit logs older than %d days", deleted, days))
}
