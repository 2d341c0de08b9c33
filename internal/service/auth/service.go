package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/auth"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/otp"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
)

const (
	otpExpiry = 10 * time.Minute

	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidOTP         = "Invalid or expired OTP"
	MsgResetRequested     = "If that email is registered, a reset code has been sent"
)

type Service struct {
	users    repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	notifier notification.Service
	now      func() time.Time
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService,
	hasher security.PasswordHasher, notifier notification.Service) *Service {
	return &Service{
		users:    users,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error) {
	addr := normalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, addr); err == nil {
		return nil, apperrors.BadRequest(msgUserExists, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        addr,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         model.RoleUser,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest(msgUserExists, err)
		}
		return nil, apperrors.Internal(err)
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.notifier.Go(notification.KindWelcome, func(ctx context.Context) {
		_ = s.notifier.Email(ctx, notification.KindWelcome, email.Welcome(user.Email, user.Name))
	})

	return result, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials, nil)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidCredentials, nil)
	}

	now := s.now()
	user.LastLoginAt = &now

	return s.issue(ctx, user)
}

// Refresh rotates the token pair. The presented token must be the one stored
// on the account, so a token replaced by a later login is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err)
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid refresh token", nil)
		}
		return nil, apperrors.Internal(err)
	}
	if user.ID.Hex() != claims.UserID {
		return nil, apperrors.Unauthorized("Invalid refresh token", nil)
	}

	return s.issue(ctx, user)
}

func (s *Service) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return repository.AsAppError("User", err)
	}
	return nil
}

// ForgotPassword stores a fresh OTP hash and mails the code. Unknown emails
// succeed silently so the endpoint does not reveal which accounts exist.
func (s *Service) ForgotPassword(ctx context.Context, req *model.ForgotPasswordRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}

	code, err := otp.Generate()
	if err != nil {
		return apperrors.Internal(err)
	}

	expiry := s.now().Add(otpExpiry)
	user.ResetOTPHash = otp.Hash(code)
	user.ResetOTPExpiry = &expiry
	user.ResetOTPVerified = false
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}

	if err := s.notifier.Email(ctx, notification.KindPasswordReset,
		email.PasswordResetOTP(user.Email, user.Name, code, otpExpiry)); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("password reset email not delivered")
	}
	return nil
}

func (s *Service) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error {
	user, err := s.checkOTP(ctx, req.Email, req.OTP)
	if err != nil {
		return err
	}

	user.ResetOTPVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ResetPassword requires a verified OTP. It clears the OTP and the stored
// refresh token, ending every other session.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	user, err := s.checkOTP(ctx, req.Email, req.OTP)
	if err != nil {
		return err
	}
	if !user.ResetOTPVerified {
		return apperrors.BadRequest("OTP has not been verified", nil)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	user.PasswordHash = hash
	user.ResetOTPHash = ""
	user.ResetOTPExpiry = nil
	user.ResetOTPVerified = false
	user.RefreshToken = ""
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) Me(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, repository.AsAppError("User", err)
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, repository.AsAppError("User", err)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, req *model.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return repository.AsAppError("User", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperrors.BadRequest("Current password is incorrect", nil)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) checkOTP(ctx context.Context, emailAddr, code string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest(msgInvalidOTP, nil)
		}
		return nil, apperrors.Internal(err)
	}

	if user.ResetOTPExpiry == nil || s.now().After(*user.ResetOTPExpiry) {
		return nil, apperrors.BadRequest(msgInvalidOTP, nil)
	}
	if err := otp.Verify(user.ResetOTPHash, code); err != nil {
		return nil, apperrors.BadRequest(msgInvalidOTP, err)
	}
	return user, nil
}

// issue signs a new pair and persists the refresh token, replacing any
// previous session.
func (s *Service) issue(ctx context.Context, user *model.User) (*model.AuthResult, error) {
	pair, err := s.jwtSvc.GeneratePair(auth.Subject{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user.RefreshToken = pair.RefreshToken
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
