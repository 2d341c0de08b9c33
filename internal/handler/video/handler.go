package video

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/video"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Video"

type Handler struct {
	svc *video.Service
}

func NewHandler(svc *video.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	videos := r.Group("/videos")
	{
		videos.GET("", mw.Cache(), h.List)
		videos.GET("/:id", mw.Cache(), h.Get)

		admin := videos.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermVideoManagement),
			mw.Audit.Track(resourceType),
		)
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	var filter model.VideoFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.Normalize()

	items, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, items, filter.Page, filter.Limit, total)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v, "")
}

func (h *Handler) Create(c *gin.Context) {
	var req model.VideoRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: v.ID.Hex(), Name: v.Title.En})
	httputil.RespondWithCreated(c, v, "Video created")
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	var req model.VideoRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: v.ID.Hex(), Name: v.Title.En})
	httputil.RespondWithSuccess(c, v, "Video updated")
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	v, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: v.ID.Hex(), Name: v.Title.En})
	httputil.RespondWithMessage(c, http.StatusOK, "Video deleted")
}
