// Package handler holds helpers shared by the per-resource HTTP handlers:
// path id parsing, request binding and multipart file extraction.
package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/middleware"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

// Middleware is what the resource handlers need to guard their routes.
type Middleware struct {
	Auth  *middleware.AuthMiddleware
	Audit *middleware.AuditMiddleware

	PublicCache gin.HandlerFunc

	LoginLimit          gin.HandlerFunc
	ForgotPasswordLimit gin.HandlerFunc
	OTPLimit            gin.HandlerFunc
	TestimonialLimit    gin.HandlerFunc
}

// Cache returns the public cache middleware, or a pass-through when unset.
func (m *Middleware) Cache() gin.HandlerFunc {
	if m.PublicCache == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return m.PublicCache
}

// Guard wraps a limiter that may be nil.
func Guard(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h
}

// ParseID reads the :id path parameter. A malformed id is reported as a
// missing resource.
func ParseID(c *gin.Context, resource string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusNotFound, resource+" not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, middleware.ValidationMessage(err))
		return false
	}
	return true
}

func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, middleware.ValidationMessage(err))
		return false
	}
	return true
}

// BindPayload accepts JSON or multipart bodies. Multipart requests carry the
// JSON document in a "data" field when the payload is nested, otherwise the
// plain form fields are bound.
func BindPayload(c *gin.Context, obj interface{}) bool {
	if !IsMultipart(c) {
		return BindJSON(c, obj)
	}

	if raw := c.PostForm("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), obj); err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid data field")
			return false
		}
		if err := binding.Validator.ValidateStruct(obj); err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, middleware.ValidationMessage(err))
			return false
		}
		return true
	}

	if err := c.ShouldBindWith(obj, binding.FormMultipart); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, middleware.ValidationMessage(err))
		return false
	}
	return true
}

func IsMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// FormFile opens an optional single upload. The returned close func is never nil.
func FormFile(c *gin.Context, field string) (*storage.Upload, func(), error) {
	if !IsMultipart(c) {
		return nil, func() {}, nil
	}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	ups, closeAll, err := open([]*multipart.FileHeader{header})
	if err != nil {
		return nil, closeAll, err
	}
	return &ups[0], closeAll, nil
}

// FormFiles opens every upload sent under field.
func FormFiles(c *gin.Context, field string) ([]storage.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, err
	}
	return open(form.File[field])
}

func open(headers []*multipart.FileHeader) ([]storage.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	ups := make([]storage.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		ups = append(ups, storage.Upload{
			FileName:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Body:        f,
		})
	}
	return ups, closeAll, nil
}

// Truthy reads flags such as ?download=1 or ?download=true.
func Truthy(v string) bool {
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return v == "yes"
	}
	return b
}

// CurrentUser returns the account loaded by the auth gates, responding 401
// when the route was registered without one.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Not authorized")
		return nil, false
	}
	return user, true
}
