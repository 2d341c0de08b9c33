package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/appointment"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Appointment"

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Book)

		admin := appointments.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermAppointmentManagement),
			mw.Audit.Track(resourceType),
		)
		admin.GET("", h.List)
		admin.GET("/:id", h.Get)
		admin.PATCH("/:id/confirm", h.Confirm)
		admin.PATCH("/:id/cancel", h.Cancel)
		admin.DELETE("/:id", h.Delete)
	}
}

// Book is the public booking form. Alerts and acknowledgements are sent in
// the background and never fail the request.
func (h *Handler) Book(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.svc.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, a, "Appointment request received. We will contact you shortly.")
}

func (h *Handler) List(c *gin.Context) {
	var filter model.AppointmentFilter
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

	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a, "")
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	a, err := h.svc.Confirm(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.RecordAction(c, "confirm", event.Resource{Type: resourceType, ID: a.ID.Hex(), Name: a.PatientName})
	httputil.RespondWithSuccess(c, a, "Appointment confirmed")
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	var req model.CancelAppointmentRequest
	if c.Request.ContentLength != 0 && !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.RecordAction(c, "cancel", event.Resource{Type: resourceType, ID: a.ID.Hex(), Name: a.PatientName})
	httputil.RespondWithSuccess(c, a, "Appointment cancelled")
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	a, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: a.ID.Hex(), Name: a.PatientName})
	httputil.RespondWithMessage(c, http.StatusOK, "Appointment deleted")
}
