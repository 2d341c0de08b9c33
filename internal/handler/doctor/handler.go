package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/doctor"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Doctor"

type Handler struct {
	svc *doctor.Service
}

func NewHandler(svc *doctor.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", mw.Cache(), h.List)
		doctors.GET("/:id", mw.Cache(), h.Get)

		admin := doctors.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermDoctorManagement),
			mw.Audit.Track(resourceType),
		)
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	var params model.ListParams
	if !handler.BindQuery(c, &params) {
		return
	}
	if params.Search == "" {
		params.Search = c.Query("q")
	}
	params.Normalize()

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, items, params.Page, params.Limit, total)
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
	var req model.DoctorRequest
	if !handler.BindPayload(c, &req) {
		return
	}

	photo, done, err := handler.FormFile(c, "photo")
	defer done()
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid photo upload")
		return
	}

	d, err := h.svc.Create(c.Request.Context(), &req, photo)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: d.ID.Hex(), Name: d.Name.En})
	httputil.RespondWithCreated(c, d, "Doctor created")
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	var req model.DoctorRequest
	if !handler.BindPayload(c, &req) {
		return
	}

	photo, done, err := handler.FormFile(c, "photo")
	defer done()
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid photo upload")
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, &req, photo)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: d.ID.Hex(), Name: d.Name.En})
	httputil.RespondWithSuccess(c, d, "Doctor updated")
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
	httputil.RespondWithMessage(c, http.StatusOK, "Doctor deleted")
}
