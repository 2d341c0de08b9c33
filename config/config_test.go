package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "pediatric_clinic", cfg.Mongo.Database)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 3, cfg.RateLimit.TestimonialLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.TestimonialWindow)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Secrets.MongoURI)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MONGO_URI", "mongodb://db")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("RATE_LIMIT_LOGIN_LIMIT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 10, cfg.RateLimit.LoginLimit)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Driver: "s3"},
		Secrets: Secrets{JWTSecret: "a", JWTRefreshSecret: "b"},
		RateLimit: RateLimitConfig{
			LoginLimit:          5,
			LoginWindow:         15 * time.Minute,
			TestimonialLimit:    3,
			TestimonialWindow:   15 * time.Minute,
			PasswordResetLimit:  3,
			PasswordResetWindow: 15 * time.Minute,
		},
	}
	assert.Error(t, cfg.Validate(), "s3 without bucket")

	cfg.Storage.Bucket = "assets"
	assert.NoError(t, cfg.Validate())

	cfg.Secrets.JWTRefreshSecret = "a"
	assert.Error(t, cfg.Validate(), "shared jwt secrets")
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: "local"},
			Secrets: Secrets{JWTSecret: "a", JWTRefreshSecret: "b"},
			RateLimit: RateLimitConfig{
				LoginLimit:          5,
				LoginWindow:         15 * time.Minute,
				TestimonialLimit:    3,
				TestimonialWindow:   15 * time.Minute,
				PasswordResetLimit:  3,
				PasswordResetWindow: 15 * time.Minute,
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*RateLimitConfig){
		"zero login limit":        func(r *RateLimitConfig) { r.LoginLimit = 0 },
		"negative testimonial":    func(r *RateLimitConfig) { r.TestimonialLimit = -1 },
		"zero password reset":     func(r *RateLimitConfig) { r.PasswordResetLimit = 0 },
		"zero testimonial window": func(r *RateLimitConfig) { r.TestimonialWindow = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg.RateLimit)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
