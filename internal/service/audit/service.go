package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
)

const (
	exportPageSize = model.MaxPageSize
	exportMaxRows  = 50000
)

// Actor is the admin identity stamped on an audit entry.
type Actor struct {
	Name  string
	Email string
}

type Service struct {
	repo    repository.AuditRepository
	users   repository.UserRepository
	metrics *metrics.Metrics
	actors  *cache.Cache
}

func NewService(repo repository.AuditRepository, users repository.UserRepository, m *metrics.Metrics, actorTTL time.Duration) *Service {
	if actorTTL <= 0 {
		actorTTL = 5 * time.Minute
	}
	return &Service{
		repo:    repo,
		users:   users,
		metrics: m,
		actors:  cache.New(actorTTL, 2*actorTTL),
	}
}

// Log writes one entry.
func (s *Service) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		return fmt.Errorf("write audit log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AuditWrites.Inc()
	}
	return nil
}

// Actor resolves an admin's display identity, cached per id.
func (s *Service) Actor(ctx context.Context, id primitive.ObjectID) (Actor, error) {
	key := id.Hex()
	if v, ok := s.actors.Get(key); ok {
		return v.(Actor), nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	a := Actor{Name: user.Name, Email: user.Email}
	s.actors.SetDefault(key, a)
	return a, nil
}

func (s *Service) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return logs, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.AuditLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Audit log", err)
	}
	return log, nil
}

func (s *Service) Stats(ctx context.Context, filter model.AuditFilter) (*model.AuditStats, error) {
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

var exportHeader = []string{
	"createdAt", "adminName", "adminEmail", "action", "resourceType",
	"resourceId", "resourceName", "description", "method", "path",
	"statusCode", "ipAddress",
}

// Export writes every matching entry as CSV, newest first.
func (s *Service) Export(ctx context.Context, filter model.AuditFilter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	filter.Limit = exportPageSize
	rows := 0
	for filter.Page = 1; rows < exportMaxRows; filter.Page++ {
		logs, _, err := s.repo.List(ctx, filter)
		if err != nil {
			return rows, apperrors.Internal(err)
		}
		for _, l := range logs {
			if err := cw.Write([]string{
				l.CreatedAt.UTC().Format(time.RFC3339),
				l.AdminName,
				l.AdminEmail,
				l.Action,
				l.ResourceType,
				l.ResourceID,
				l.ResourceName,
				l.Description,
				l.Method,
				l.Path,
				strconv.Itoa(l.StatusCode),
				l.IPAddress,
			}); err != nil {
				return rows, err
			}
			rows++
		}
		if len(logs) < exportPageSize {
			break
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

// Cleanup removes entries older than the given number of days.
func (s *Service) Cleanup(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, apperrors.BadRequest("days must be at least 1", nil)
	}

	before := time.Now().AddDate(0, 0, -days)
	n, err := s.repo.Cleanup(ctx, before)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.AuditLogsPurged.Add(float64(n))
	}
	return n, nil
}
