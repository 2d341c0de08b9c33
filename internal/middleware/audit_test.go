package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/audit"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/event"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		action, resourceType, name string
		want                       string
	}{
		{"create", "Doctor", "Dr. Abebe", `Jane created Doctor "Dr. Abebe"`},
		{"update", "Video", "Vaccines", `Jane updated Video "Vaccines"`},
		{"delete", "Subscriber", "a@b.com", `Jane deleted Subscriber "a@b.com"`},
		{"confirm", "Appointment", "Liya", `Jane confirmed Appointment "Liya"`},
		{"cancel", "Appointment", "Liya", `Jane cancelled Appointment "Liya"`},
		{"send", "Newsletter", "June news", `Jane sent Newsletter "June news"`},
		{"approve", "Testimonial", "", `Jane approved Testimonial`},
		{"reject", "Testimonial", "Sam", `Jane rejected Testimonial "Sam"`},
		{"", "User", "", `Jane changed User`},
	}

	for _, tt := range tests {
		t.Run(tt.action+"/"+tt.resourceType, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe("Jane", tt.action, tt.resourceType, tt.name))
		})
	}
}

type auditFixture struct {
	engine *gin.Engine
	repos  *repotest.Repositories
	admin  *model.User
}

func newAuditFixture(t *testing.T, authenticated bool, handler gin.HandlerFunc) *auditFixture {
	gin.SetMode(gin.TestMode)

	repos := repotest.New()
	admin := &model.User{Name: "Jane Admin", Email: "jane@clinic.test", Role: model.RoleAdmin}
	require.NoError(t, repos.Users.Create(context.Background(), admin))

	svc := audit.NewService(repos.Audit, repos.Users, nil, time.Minute)
	m := NewAuditMiddleware(svc)

	engine := gin.New()
	group := engine.Group("/doctors", func(c *gin.Context) {
		if authenticated {
			c.Set(ContextUserID, admin.ID)
		}
		c.Next()
	}, m.Track("Doctor"))
	group.Any("/:id", handler)

	return &auditFixture{engine: engine, repos: repos, admin: admin}
}

func (f *auditFixture) serve(method, path string) int {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestTrackUsesRecordedResource(t *testing.T) {
	f := newAuditFixture(t, true, func(c *gin.Context) {
		event.Record(c, event.Resource{Type: "Doctor", ID: "d1", Name: "Dr. Abebe"})
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, f.serve(http.MethodPut, "/doctors/d1"))

	logs := f.repos.Audit.All()
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, f.admin.ID, entry.AdminID)
	assert.Equal(t, "Jane Admin", entry.AdminName)
	assert.Equal(t, "jane@clinic.test", entry.AdminEmail)
	assert.Equal(t, model.AuditActionUpdate, entry.Action)
	assert.Equal(t, "Doctor", entry.ResourceType)
	assert.Equal(t, "d1", entry.ResourceID)
	assert.Equal(t, "Dr. Abebe", entry.ResourceName)
	assert.Equal(t, `Jane Admin updated Doctor "Dr. Abebe"`, entry.Description)
	assert.Equal(t, "/doctors/d1", entry.Path)
	assert.Equal(t, http.StatusOK, entry.StatusCode)
}

func TestTrackFallsBackToPathID(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	f := newAuditFixture(t, true, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, f.serve(http.MethodDelete, "/doctors/"+id))

	logs := f.repos.Audit.All()
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionDelete, logs[0].Action)
	assert.Equal(t, id, logs[0].ResourceID)
	assert.Empty(t, logs[0].ResourceName)
}

func TestTrackSkips(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		status        int
		authenticated bool
	}{
		{"read request", http.MethodGet, http.StatusOK, true},
		{"failed request", http.MethodPut, http.StatusBadRequest, true},
		{"not found", http.MethodDelete, http.StatusNotFound, true},
		{"anonymous caller", http.MethodPost, http.StatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuditFixture(t, tt.authenticated, func(c *gin.Context) {
				event.Record(c, event.Resource{ID: "d1", Name: "Dr. Abebe"})
				c.Status(tt.status)
			})

			assert.Equal(t, tt.status, f.serve(tt.method, "/doctors/d1"))
			assert.Empty(t, f.repos.Audit.All())
		})
	}
}

func TestTrackUnknownActor(t *testing.T) {
	f := newAuditFixture(t, true, func(c *gin.Context) {
		event.RecordAction(c, "approve", event.Resource{Type: "Testimonial", ID: "t1", Name: "Sam"})
		c.Status(http.StatusOK)
	})
	require.NoError(t, f.repos.Users.Delete(context.Background(), f.admin.ID))

	require.Equal(t, http.StatusOK, f.serve(http.MethodPatch, "/doctors/t1"))

	logs := f.repos.Audit.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "Unknown", logs[0].AdminName)
	assert.Equal(t, "Testimonial", logs[0].ResourceType)
	assert.Equal(t, `Unknown approved Testimonial "Sam"`, logs[0].Description)
}
