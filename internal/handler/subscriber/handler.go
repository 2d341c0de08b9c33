package subscriber

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/subscriber"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Subscriber"

type Handler struct {
	svc *subscriber.Service
}

func NewHandler(svc *subscriber.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	subs := r.Group("/subscribers")
	{
		subs.POST("", h.Subscribe)
		subs.POST("/unsubscribe", h.Unsubscribe)

		admin := subs.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermSubscriberManagement),
			mw.Audit.Track(resourceType),
		)
		admin.GET("", h.List)
		admin.DELETE("/:id", h.Delete)
		admin.POST("/newsletter", h.Newsletter)
	}
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	sub, created, err := h.svc.Subscribe(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if created {
		httputil.RespondWithCreated(c, sub, "Subscribed successfully")
		return
	}
	httputil.RespondWithSuccess(c, sub, "You are subscribed")
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.Unsubscribe(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "Unsubscribed successfully")
}

func (h *Handler) List(c *gin.Context) {
	var filter model.SubscriberFilter
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

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	sub, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: sub.ID.Hex(), Name: sub.Email})
	httputil.RespondWithMessage(c, http.StatusOK, "Subscriber deleted")
}

// Newsletter queues a broadcast and answers before delivery finishes.
func (h *Handler) Newsletter(c *gin.Context) {
	var req model.NewsletterRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	count, err := h.svc.Broadcast(c.Request.Context(), req.Subject, req.Message)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.RecordAction(c, "send", event.Resource{Type: "Newsletter", Name: req.Subject})
	httputil.RespondWithKey(c, http.StatusAccepted, "data", gin.H{"recipients": count}, "Newsletter is being sent")
}
