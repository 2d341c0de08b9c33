package department

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/department"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

// Departments are presented to visitors as the clinic's services.
const resourceType = "Service"

type Handler struct {
	svc *department.Service
}

func NewHandler(svc *department.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the resource under /services and its /departments alias.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	for _, path := range []string{"/services", "/departments"} {
		g := r.Group(path)
		g.GET("", mw.Cache(), h.List)
		g.GET("/:id", mw.Cache(), h.Get)

		admin := g.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermServiceManagement),
			mw.Audit.Track(resourceType),
		)
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items, "")
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d, "")
}

func (h *Handler) Create(c *gin.Context) {
	var req model.DepartmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	d, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: d.ID.Hex(), Name: d.Name.En})
	httputil.RespondWithCreated(c, d, "Service created")
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	var req model.DepartmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: d.ID.Hex(), Name: d.Name.En})
	httputil.RespondWithSuccess(c, d, "Service updated")
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	d, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: d.ID.Hex(), Name: d.Name.En})
	httputil.RespondWithMessage(c, http.StatusOK, "Service deleted")
}
