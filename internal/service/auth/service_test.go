package auth

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification/notificationtest"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
)

var codePattern = regexp.MustCompile(`code is (\d{6})`)

type fixture struct {
	svc      *Service
	users    *repotest.UserRepository
	notifier *notificationtest.Recorder
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		users:    repotest.NewUserRepository(),
		notifier: &notificationtest.Recorder{},
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	jwtSvc := auth.NewJWTService(auth.Config{Secret: "access", RefreshSecret: "refresh", Issuer: "test"})
	f.svc = NewService(f.users, jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), f.notifier)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) register(t *testing.T, addr string) *model.AuthResult {
	res, err := f.svc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Meron",
		Email:    addr,
		Password: "password123",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) lastCode(t *testing.T) string {
	sent := f.notifier.Sent()
	require.NotEmpty(t, sent)
	m := codePattern.FindStringSubmatch(sent[len(sent)-1].TextBody)
	require.Len(t, m, 2, "reset email carries the code")
	return m[1]
}

func statusOf(t *testing.T, err error) int {
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an app error, got %v", err)
	return appErr.StatusCode()
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	res := f.register(t, " Meron@Example.com ")
	assert.Equal(t, "meron@example.com", res.User.Email)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)

	stored, err := f.users.GetByEmail(context.Background(), "meron@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.RefreshToken, stored.RefreshToken)
	assert.NotEqual(t, "password123", stored.PasswordHash)

	assert.Equal(t, []string{notification.KindWelcome}, f.notifier.Kinds)

	_, err = f.svc.Register(context.Background(), &model.RegisterRequest{
		Name: "Again", Email: "MERON@example.com", Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestLogoutRevokesRefresh(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "meron@example.com")

	require.NoError(t, f.svc.Logout(context.Background(), res.User.ID))

	_, err := f.svc.Refresh(context.Background(), res.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "meron@example.com")

	next, err := f.svc.Refresh(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), res.RefreshToken)
	assert.Error(t, err, "a rotated token cannot be reused")
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), &model.ForgotPasswordRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.Sent())
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "meron@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, &model.ForgotPasswordRequest{Email: "meron@example.com"}))
	code := f.lastCode(t)

	stored, err := f.users.GetByEmail(ctx, "meron@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, code, stored.ResetOTPHash, "only the hash is stored")

	// reset before verification is refused
	err = f.svc.ResetPassword(ctx, &model.ResetPasswordRequest{Email: "meron@example.com", OTP: code, NewPassword: "newpassword1"})
	require.Error(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = f.svc.VerifyOTP(ctx, &model.VerifyOTPRequest{Email: "meron@example.com", OTP: wrong})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, f.svc.VerifyOTP(ctx, &model.VerifyOTPRequest{Email: "meron@example.com", OTP: code}))
	require.NoError(t, f.svc.ResetPassword(ctx, &model.ResetPasswordRequest{Email: "meron@example.com", OTP: code, NewPassword: "newpassword1"}))

	_, err = f.svc.Login(ctx, &model.LoginRequest{Email: "meron@example.com", Password: "password123"})
	assert.Error(t, err)
	_, err = f.svc.Login(ctx, &model.LoginRequest{Email: "meron@example.com", Password: "newpassword1"})
	assert.NoError(t, err)

	// the old session ended with the reset
	_, err = f.svc.Refresh(ctx, res.RefreshToken)
	assert.Error(t, err)

	// the code is single use
	err = f.svc.VerifyOTP(ctx, &model.VerifyOTPRequest{Email: "meron@example.com", OTP: code})
	assert.Error(t, err)
}

func TestOTPExpires(t *testing.T) {
	f := newFixture(t)
	f.register(t, "meron@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, &model.ForgotPasswordRequest{Email: "meron@example.com"}))
	code := f.lastCode(t)

	f.clock = f.clock.Add(otpExpiry + time.Second)
	err := f.svc.VerifyOTP(ctx, &model.VerifyOTPRequest{Email: "meron@example.com", OTP: code})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "meron@example.com")
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, res.User.ID, &model.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, f.svc.ChangePassword(ctx, res.User.ID, &model.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpassword1"}))
	_, err = f.svc.Login(ctx, &model.LoginRequest{Email: "meron@example.com", Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "meron@example.com")

	name := "  Meron Alemu "
	user, err := f.svc.UpdateProfile(context.Background(), res.User.ID, &model.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Meron Alemu", user.Name)
	assert.Equal(t, "meron@example.com", user.Email)
}
