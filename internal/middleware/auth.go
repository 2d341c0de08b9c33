package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/auth"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextUser     = "user"
)

type AuthMiddleware struct {
	jwtSvc auth.JWTService
	users  repository.UserRepository
}

func NewAuthMiddleware(jwtSvc auth.JWTService, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSvc: jwtSvc,
		users:  users,
	}
}

// Authenticate verifies the bearer access token and stores the caller's id
// and role in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtSvc.ValidateAccessToken(parts[1])
		if err != nil {
			msg := "Not authorized, token failed"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Token expired"
			}
			httputil.RespondWithStatus(c, http.StatusUnauthorized, msg)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// LoadUser fetches the caller's account. Roles and flags are read from the
// store, not the token, so revocations apply immediately.
func (m *AuthMiddleware) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.load(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireAdmin allows admin and super_admin accounts.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.load(c)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			httputil.RespondWithStatus(c, http.StatusForbidden, "Access denied. Admin only.")
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin allows super_admin accounts only.
func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.load(c)
		if !ok {
			return
		}
		if !user.IsSuperAdmin() {
			httputil.RespondWithStatus(c, http.StatusForbidden, "Access denied. Super admin only.")
			return
		}
		c.Next()
	}
}

// RequirePermission allows super_admin unconditionally and admins holding the flag.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.load(c)
		if !ok {
			return
		}
		if !user.Can(permission) {
			httputil.RespondWithStatus(c, http.StatusForbidden,
				"Access denied. You do not have "+permission+" permission.")
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) load(c *gin.Context) (*model.User, bool) {
	if user, ok := CurrentUser(c); ok {
		return user, true
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Not authorized")
		return nil, false
	}

	user, err := m.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "Not authorized, user not found")
			return nil, false
		}
		httputil.RespondWithError(c, err)
		return nil, false
	}

	c.Set(ContextUser, user)
	return user, true
}

func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// CurrentUser returns the account loaded by LoadUser or one of the gates.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
