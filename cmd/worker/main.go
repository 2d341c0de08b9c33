// Command worker runs maintenance jobs against the clinic database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwalitptl/pediatric-clinic-api/config"
	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/mongodb"
	auditService "github.com/jwalitptl/pediatric-clinic-api/internal/service/audit"
	"github.com/jwalitptl/pediatric-clinic-api/internal/worker"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
)

type env struct {
	cfg    *config.Config
	log    *zap.Logger
	client *mongo.Client
	repos  *repository.Set
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Maintenance jobs for the pediatric clinic API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAuditCleanupCmd(logger), newSeedAdminCmd(logger))
	return root
}

func newAuditCleanupCmd(logger *zap.Logger) *cobra.Command {
	var (
		days int
		loop bool
	)

	cmd := &cobra.Command{
		Use:   "audit-cleanup",
		Short: "Delete audit logs older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer e.close()

			if days <= 0 {
				days = e.cfg.Audit.RetentionDays
			}
			svc := auditService.NewService(e.repos.Audit, e.repos.Users, nil, 0)
			w := worker.NewAuditCleanupWorker(svc, days, e.cfg.Audit.CleanupInterval)

			if loop {
				e.log.Info("audit cleanup running",
					zap.Int("retention_days", days),
					zap.Duration("interval", e.cfg.Audit.CleanupInterval))
				w.Start(ctx)
				return nil
			}

			n, err := w.RunOnce(ctx)
			if err != nil {
				return err
			}
			e.log.Info("audit cleanup finished", zap.Int64("deleted", n), zap.Int("retention_days", days))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to audit.retention_days)")
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running on audit.cleanup_interval")
	return cmd
}

func newSeedAdminCmd(logger *zap.Logger) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first super_admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SEED_ADMIN_PASSWORD")
			}
			if email == "" || len(password) < security.MinPasswordLen {
				return fmt.Errorf("--email and a password of at least %d characters are required", security.MinPasswordLen)
			}

			e, err := connect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer e.close()

			created, err := seedAdmin(cmd.Context(), e.repos.Users, security.NewBcryptHasher(security.DefaultCost), name, email, password)
			if err != nil {
				return err
			}
			if !created {
				e.log.Info("account already exists, nothing to do", zap.String("email", email))
				return nil
			}
			e.log.Info("super admin created", zap.String("email", email))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password (or SEED_ADMIN_PASSWORD)")
	return cmd
}

// seedAdmin creates a super_admin unless the email is already registered.
func seedAdmin(ctx context.Context, users repository.UserRepository, hasher security.PasswordHasher,
	name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, err
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		Role:         model.RoleSuperAdmin,
		Permissions:  model.AllPermissions(),
		PasswordHash: hash,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func connect(ctx context.Context, logger *zap.Logger) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	client, db, err := mongodb.Connect(ctx, cfg.Secrets.MongoURI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		log:    logger.With(zap.String("database", cfg.Mongo.Database)),
		client: client,
		repos:  mongodb.NewRepositories(db, metrics.NewNop()),
	}, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.client.Disconnect(ctx); err != nil {
		e.log.Warn("disconnect failed", zap.Error(err))
	}
}
