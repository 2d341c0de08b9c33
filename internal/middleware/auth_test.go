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

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/auth"
)

type authFixture struct {
	jwt    auth.JWTService
	users  *repotest.UserRepository
	engine *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	gin.SetMode(gin.TestMode)

	f := &authFixture{
		jwt: auth.NewJWTService(auth.Config{
			Secret:        "access",
			RefreshSecret: "refresh",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "test",
		}),
		users: repotest.NewUserRepository(),
	}
	m := NewAuthMiddleware(f.jwt, f.users)

	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	f.engine = gin.New()
	f.engine.GET("/me", m.Authenticate(), m.LoadUser(), ok)
	f.engine.GET("/admin", m.Authenticate(), m.RequireAdmin(), ok)
	f.engine.GET("/doctors", m.Authenticate(), m.RequirePermission(model.PermDoctorManagement), ok)
	f.engine.GET("/cleanup", m.Authenticate(), m.RequireSuperAdmin(), ok)
	return f
}

func (f *authFixture) user(t *testing.T, role string, perms model.Permissions) string {
	u := &model.User{Name: role, Email: role + "@clinic.test", Role: role, Permissions: perms}
	require.NoError(t, f.users.Create(context.Background(), u))

	pair, err := f.jwt.GeneratePair(auth.Subject{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return pair.AccessToken
}

func (f *authFixture) get(path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w.Code
}

func TestAuthenticateRejectsBadHeaders(t *testing.T) {
	f := newAuthFixture(t)
	token := f.user(t, model.RoleUser, model.Permissions{})

	pair, err := f.jwt.GeneratePair(auth.Subject{UserID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no scheme", token},
		{"wrong scheme", "Basic " + token},
		{"empty token", "Bearer "},
		{"refresh token as access", "Bearer " + pair.RefreshToken},
		{"tampered", "Bearer " + token + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, f.get("/me", tt.header))
		})
	}

	assert.Equal(t, http.StatusNoContent, f.get("/me", "Bearer "+token))
	assert.Equal(t, http.StatusNoContent, f.get("/me", "bearer "+token))
}

func TestLoadUserRejectsDeletedAccount(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.jwt.GeneratePair(auth.Subject{UserID: "65f0c0ffee0000000000abcd", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.get("/me", "Bearer "+pair.AccessToken))
}

func TestGates(t *testing.T) {
	f := newAuthFixture(t)
	patient := "Bearer " + f.user(t, model.RoleUser, model.Permissions{DoctorManagement: true})
	admin := "Bearer " + f.user(t, model.RoleAdmin, model.Permissions{})
	doctorAdmin := "Bearer " + f.user(t, "admin_doctors", model.Permissions{})
	super := "Bearer " + f.user(t, model.RoleSuperAdmin, model.Permissions{})

	// admin_doctors is not a real role, so it holds nothing
	assert.Equal(t, http.StatusForbidden, f.get("/admin", doctorAdmin))

	assert.Equal(t, http.StatusForbidden, f.get("/admin", patient))
	assert.Equal(t, http.StatusNoContent, f.get("/admin", admin))
	assert.Equal(t, http.StatusNoContent, f.get("/admin", super))

	// flags on a patient account grant nothing
	assert.Equal(t, http.StatusForbidden, f.get("/doctors", patient))
	assert.Equal(t, http.StatusForbidden, f.get("/doctors", admin))
	assert.Equal(t, http.StatusNoContent, f.get("/doctors", super))

	assert.Equal(t, http.StatusForbidden, f.get("/cleanup", admin))
	assert.Equal(t, http.StatusNoContent, f.get("/cleanup", super))
}

func TestRequirePermissionReadsStoredFlags(t *testing.T) {
	f := newAuthFixture(t)
	token := "Bearer " + f.user(t, model.RoleAdmin, model.Permissions{DoctorManagement: true})
	require.Equal(t, http.StatusNoContent, f.get("/doctors", token))

	u, err := f.users.GetByEmail(context.Background(), "admin@clinic.test")
	require.NoError(t, err)
	u.Permissions.DoctorManagement = false
	require.NoError(t, f.users.Update(context.Background(), u))

	// the same token loses access as soon as the flag is revoked
	assert.Equal(t, http.StatusForbidden, f.get("/doctors", token))
}
