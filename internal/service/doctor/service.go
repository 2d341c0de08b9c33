package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

const photoFolder = "doctors"

type page struct {
	items []*model.Doctor
	total int64
}

type Service struct {
	repo   repository.DoctorRepository
	assets storage.Store
	cache  *cache.Cache
}

// NewService caches public list pages for ttl. A zero ttl disables caching.
func NewService(repo repository.DoctorRepository, assets storage.Store, ttl time.Duration) *Service {
	s := &Service{repo: repo, assets: assets}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) List(ctx context.Context, params model.ListParams) ([]*model.Doctor, int64, error) {
	params.Normalize()
	key := fmt.Sprintf("%d:%d:%s", params.Page, params.Limit, params.Search)

	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			p := v.(page)
			return p.items, p.total, nil
		}
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if s.cache != nil {
		s.cache.SetDefault(key, page{items: items, total: total})
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Doctor", err)
	}
	return doctor, nil
}

func (s *Service) Create(ctx context.Context, req *model.DoctorRequest, photo *storage.Upload) (*model.Doctor, error) {
	doctor := &model.Doctor{}
	apply(doctor, req)

	if photo != nil {
		asset, err := s.putPhoto(ctx, *photo)
		if err != nil {
			return nil, err
		}
		doctor.PhotoURL, doctor.PhotoID = asset.URL, asset.Key
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		s.dropAsset(ctx, doctor.PhotoID)
		return nil, apperrors.Internal(err)
	}
	s.invalidate()
	return doctor, nil
}

// Update replaces the profile. A new photo replaces the old asset.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, req *model.DoctorRequest, photo *storage.Upload) (*model.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Doctor", err)
	}
	apply(doctor, req)

	oldPhoto, newPhoto := "", ""
	if photo != nil {
		asset, err := s.putPhoto(ctx, *photo)
		if err != nil {
			return nil, err
		}
		oldPhoto, newPhoto = doctor.PhotoID, asset.Key
		doctor.PhotoURL, doctor.PhotoID = asset.URL, asset.Key
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		s.dropAsset(ctx, newPhoto)
		return nil, repository.AsAppError("Doctor", err)
	}
	s.dropAsset(ctx, oldPhoto)
	s.invalidate()
	return doctor, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Doctor", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Doctor", err)
	}
	s.dropAsset(ctx, doctor.PhotoID)
	s.invalidate()
	return doctor, nil
}

// putPhoto stores a checked image. Rejected files are reported as bad requests.
func (s *Service) putPhoto(ctx context.Context, photo storage.Upload) (*storage.Asset, error) {
	photo, err := storage.CheckImage(photo)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) || errors.Is(err, storage.ErrImageTooLarge) {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		return nil, apperrors.Internal(err)
	}
	asset, err := storage.Put(ctx, s.assets, photoFolder, photo)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("upload doctor photo: %w", err))
	}
	return asset, nil
}

func (s *Service) dropAsset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.assets.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("public_id", key).Msg("failed to delete doctor photo")
	}
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func apply(d *model.Doctor, req *model.DoctorRequest) {
	d.Name = req.Name
	d.Field = req.Field
	d.Experience = req.Experience
	d.Bio = req.Bio
}
