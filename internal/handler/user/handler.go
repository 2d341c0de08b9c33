package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/user"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

type Handler struct {
	svc *user.Service
}

func NewHandler(svc *user.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	users := r.Group("/users",
		mw.Auth.Authenticate(),
		mw.Auth.RequirePermission(model.PermUserManagement),
		mw.Audit.Track("User"),
	)
	{
		users.GET("", h.List)
		users.GET("/:id", h.Get)
		users.POST("", h.Create)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	var filter model.UserFilter
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
	id, ok := handler.ParseID(c, "User")
	if !ok {
		return
	}

	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithKey(c, http.StatusOK, "user", u, "")
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := handler.CurrentUser(c)
	if !ok {
		return
	}

	var req model.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.svc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, target(u))
	httputil.RespondWithKey(c, http.StatusCreated, "user", u, "User created")
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := handler.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "User")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.svc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, target(u))
	httputil.RespondWithKey(c, http.StatusOK, "user", u, "User updated")
}

// Delete removes the account together with the patient's results.
func (h *Handler) Delete(c *gin.Context) {
	actor, ok := handler.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "User")
	if !ok {
		return
	}

	u, err := h.svc.Delete(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, target(u))
	httputil.RespondWithMessage(c, http.StatusOK, "User deleted")
}

// target names staff accounts "Admin" in the audit trail.
func target(u *model.User) event.Resource {
	kind := "User"
	if u.IsAdmin() {
		kind = "Admin"
	}
	return event.Resource{Type: kind, ID: u.ID.Hex(), Name: u.Name}
}
