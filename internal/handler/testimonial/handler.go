package testimonial

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/testimonial"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Testimonial"

type Handler struct {
	svc *testimonial.Service
}

func NewHandler(svc *testimonial.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	testimonials := r.Group("/testimonials")
	{
		testimonials.GET("", mw.Cache(), h.ListApproved)
		testimonials.POST("", handler.Guard(mw.TestimonialLimit), h.Submit)

		admin := testimonials.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermTestimonialManagement),
			mw.Audit.Track(resourceType),
		)
		admin.GET("/all", h.List)
		admin.PATCH("/:id/status", h.SetStatus)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) ListApproved(c *gin.Context) {
	var params model.ListParams
	if !handler.BindQuery(c, &params) {
		return
	}
	params.Normalize()

	items, total, err := h.svc.Approved(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, items, params.Page, params.Limit, total)
}

// Submit accepts a visitor testimonial, held as pending until moderated.
func (h *Handler) Submit(c *gin.Context) {
	var req model.CreateTestimonialRequest
	if !handler.BindPayload(c, &req) {
		return
	}

	image, done, err := handler.FormFile(c, "image")
	defer done()
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid image upload")
		return
	}

	t, err := h.svc.Submit(c.Request.Context(), &req, c.ClientIP(), image)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, t, "Thank you! Your testimonial will appear once approved.")
}

func (h *Handler) List(c *gin.Context) {
	var filter model.TestimonialFilter
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

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	var req model.TestimonialStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.svc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	action := model.AuditActionUpdate
	switch req.Status {
	case model.TestimonialStatusApproved:
		action = "approve"
	case model.TestimonialStatusRejected:
		action = "reject"
	}
	event.RecordAction(c, action, event.Resource{Type: resourceType, ID: t.ID.Hex(), Name: t.Name})
	httputil.RespondWithSuccess(c, t, "Testimonial "+req.Status)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	t, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: t.ID.Hex(), Name: t.Name})
	httputil.RespondWithMessage(c, http.StatusOK, "Testimonial deleted")
}
