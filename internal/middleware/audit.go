package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/audit"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
)

const auditWriteTimeout = 5 * time.Second

type AuditMiddleware struct {
	auditSvc *audit.Service
}

func NewAuditMiddleware(auditSvc *audit.Service) *AuditMiddleware {
	return &AuditMiddleware{auditSvc: auditSvc}
}

// Track records successful mutating requests made by an authenticated admin.
// The handler names the resource through event.Record; resourceType is the
// default when it does not.
func (m *AuditMiddleware) Track(resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ec := event.Begin(c, resourceType)

		c.Next()

		if !isMutating(c.Request.Method) {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		adminID, ok := CurrentUserID(c)
		if !ok {
			return
		}

		if !ec.Recorded && ec.ID == "" {
			ec.ID = c.Param("id")
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), auditWriteTimeout)
		defer cancel()

		actor, err := m.auditSvc.Actor(ctx, adminID)
		if err != nil {
			log.Warn().Err(err).Str("admin_id", adminID.Hex()).Msg("audit: could not resolve actor")
			actor = audit.Actor{Name: "Unknown"}
		}

		action := ec.Action
		if action == "" {
			action = actionFor(c.Request.Method)
		}

		entry := &model.AuditLog{
			AdminID:      adminID,
			AdminName:    actor.Name,
			AdminEmail:   actor.Email,
			Action:       action,
			ResourceType: ec.Type,
			ResourceID:   ec.ID,
			ResourceName: ec.Name,
			Description:  Describe(actor.Name, action, ec.Type, ec.Name),
			Method:       c.Request.Method,
			Path:         c.Request.URL.Path,
			StatusCode:   status,
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}

		if err := m.auditSvc.Log(ctx, entry); err != nil {
			log.Error().
				Err(err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", entry.Path).
				Msg("audit: failed to write log")
		}
	}
}

// Describe renders e.g. `Jane created Doctor "Dr. Abebe"`.
func Describe(adminName, action, resourceType, resourceName string) string {
	desc := fmt.Sprintf("%s %s %s", adminName, pastTense(action), resourceType)
	if resourceName != "" {
		desc += fmt.Sprintf(" %q", resourceName)
	}
	return desc
}

func pastTense(verb string) string {
	switch {
	case verb == "":
		return "changed"
	case verb == "cancel":
		return "cancelled"
	case verb == "send":
		return "sent"
	case strings.HasSuffix(verb, "e"):
		return verb + "d"
	default:
		return verb + "ed"
	}
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return model.AuditActionCreate
	case http.MethodDelete:
		return model.AuditActionDelete
	default:
		return model.AuditActionUpdate
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
