package result

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/middleware"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/result"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

const resourceType = "Result"

type Handler struct {
	svc *result.Service
}

func NewHandler(svc *result.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	results := r.Group("/results", middleware.NoStore())
	{
		patient := results.Group("", mw.Auth.Authenticate(), mw.Auth.LoadUser())
		patient.GET("/patient", h.Mine)
		patient.PATCH("/:id/read", h.MarkRead)
		patient.GET("/file/*publicId", h.File)

		admin := results.Group("",
			mw.Auth.Authenticate(),
			mw.Auth.RequirePermission(model.PermResultManagement),
			mw.Audit.Track(resourceType),
		)
		admin.POST("", h.Create)
		admin.GET("", h.List)
		admin.GET("/:id", h.Get)
		admin.POST("/:id/send-email", h.SendEmail)
		admin.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	if !handler.IsMultipart(c) {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Results must be uploaded as multipart/form-data")
		return
	}

	var req model.CreateResultRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, middleware.ValidationMessage(err))
		return
	}

	files, done, err := handler.FormFiles(c, "files")
	defer done()
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid file upload")
		return
	}

	uploader, _ := middleware.CurrentUserID(c)
	res, err := h.svc.Create(c.Request.Context(), uploader, &req, files)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: res.ID.Hex(), Name: res.Title})
	httputil.RespondWithKey(c, http.StatusCreated, "result", res, "Result uploaded")
}

func (h *Handler) List(c *gin.Context) {
	var filter model.ResultFilter
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

	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithKey(c, http.StatusOK, "result", res, "")
}

func (h *Handler) SendEmail(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	res, err := h.svc.SendEmail(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.RecordAction(c, "send", event.Resource{Type: resourceType, ID: res.ID.Hex(), Name: res.Title})
	httputil.RespondWithKey(c, http.StatusOK, "result", res, "Result email sent")
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	res, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	event.Record(c, event.Resource{Type: resourceType, ID: res.ID.Hex(), Name: res.Title})
	httputil.RespondWithMessage(c, http.StatusOK, "Result deleted")
}

// Mine lists the caller's own results.
func (h *Handler) Mine(c *gin.Context) {
	patientID, _ := middleware.CurrentUserID(c)
	items, err := h.svc.ForPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items, "")
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParseID(c, resourceType)
	if !ok {
		return
	}

	patientID, _ := middleware.CurrentUserID(c)
	res, err := h.svc.MarkRead(c.Request.Context(), patientID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithKey(c, http.StatusOK, "result", res, "")
}

// File streams one result attachment. ?download=1 asks the browser to save it.
func (h *Handler) File(c *gin.Context) {
	caller, ok := handler.CurrentUser(c)
	if !ok {
		return
	}

	publicID := strings.TrimPrefix(c.Param("publicId"), "/")
	dl, err := h.svc.OpenFile(c.Request.Context(), caller, publicID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	defer dl.Object.Body.Close()

	disposition := "inline"
	if handler.Truthy(c.Query("download")) {
		disposition = "attachment"
	}

	size := dl.Object.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, dl.Object.ContentType, dl.Object.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType(disposition, map[string]string{"filename": dl.File.FileName}),
	})
}
