package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/middleware"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/auth"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *handler.Middleware) {
	authGroup := r.Group("/auth", middleware.NoStore())
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", handler.Guard(mw.LoginLimit), h.Login)
		authGroup.POST("/refresh-token", h.RefreshToken)
		authGroup.POST("/forgot-password", handler.Guard(mw.ForgotPasswordLimit), h.ForgotPassword)
		authGroup.POST("/verify-otp", handler.Guard(mw.OTPLimit), h.VerifyOTP)
		authGroup.POST("/reset-password", handler.Guard(mw.OTPLimit), h.ResetPassword)

		session := authGroup.Group("", mw.Auth.Authenticate())
		session.POST("/logout", h.Logout)
		session.GET("/me", h.Me)
		session.PUT("/me", h.UpdateProfile)
		session.PUT("/change-password", h.ChangePassword)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, res, "Registration successful")
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, res, "Login successful")
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, res, "")
}

func (h *Handler) Logout(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	if err := h.svc.Logout(c.Request.Context(), userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "Logged out successfully")
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, auth.MsgResetRequested)
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.VerifyOTP(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "OTP verified")
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "Password reset successfully")
}

func (h *Handler) Me(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	user, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithKey(c, http.StatusOK, "user", user, "")
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	user, err := h.svc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithKey(c, http.StatusOK, "user", user, "Profile updated")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	if err := h.svc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "Password changed successfully")
}
