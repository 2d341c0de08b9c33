package department

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

const listKey = "all"

// Service manages the clinic's service lines.
type Service struct {
	repo  repository.DepartmentRepository
	cache *cache.Cache
}

func NewService(repo repository.DepartmentRepository, ttl time.Duration) *Service {
	s := &Service{repo: repo}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]*model.Department, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(listKey); ok {
			return v.([]*model.Department), nil
		}
	}

	depts, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if s.cache != nil {
		s.cache.SetDefault(listKey, depts)
	}
	return depts, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Service", err)
	}
	return dept, nil
}

func (s *Service) Create(ctx context.Context, req *model.DepartmentRequest) (*model.Department, error) {
	dept := &model.Department{}
	apply(dept, req)
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidate()
	return dept, nil
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, req *model.DepartmentRequest) (*model.Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Service", err)
	}
	apply(dept, req)
	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, repository.AsAppError("Service", err)
	}
	s.invalidate()
	return dept, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Service", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Service", err)
	}
	s.invalidate()
	return dept, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Delete(listKey)
	}
}

func apply(d *model.Department, req *model.DepartmentRequest) {
	d.Name = req.Name
	d.Description = req.Description
	d.Icon = req.Icon
	d.Order = req.Order
}
