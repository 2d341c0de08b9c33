package testimonial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

const imageFolder = "testimonials"

type Service struct {
	repo   repository.TestimonialRepository
	assets storage.Store
}

func NewService(repo repository.TestimonialRepository, assets storage.Store) *Service {
	return &Service{repo: repo, assets: assets}
}

// Submit stores a public testimonial as pending moderation.
func (s *Service) Submit(ctx context.Context, req *model.CreateTestimonialRequest, ip string, image *storage.Upload) (*model.Testimonial, error) {
	t := &model.Testimonial{
		Name:      strings.TrimSpace(req.Name),
		Message:   strings.TrimSpace(req.Message),
		Rating:    req.Rating,
		Status:    model.TestimonialStatusPending,
		IPAddress: ip,
	}

	if image != nil {
		checked, err := storage.CheckImage(*image)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedImage) || errors.Is(err, storage.ErrImageTooLarge) {
				return nil, apperrors.BadRequest(err.Error(), err)
			}
			return nil, apperrors.Internal(err)
		}
		asset, err := storage.Put(ctx, s.assets, imageFolder, checked)
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("upload testimonial image: %w", err))
		}
		t.ImageURL, t.ImageID = asset.URL, asset.Key
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.dropImage(ctx, t.ImageID)
		return nil, apperrors.Internal(err)
	}
	return t, nil
}

// Approved lists what the public site shows.
func (s *Service) Approved(ctx context.Context, params model.ListParams) ([]*model.Testimonial, int64, error) {
	return s.List(ctx, model.TestimonialFilter{ListParams: params, Status: model.TestimonialStatusApproved})
}

func (s *Service) List(ctx context.Context, filter model.TestimonialFilter) ([]*model.Testimonial, int64, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return items, total, nil
}

func (s *Service) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*model.Testimonial, error) {
	t, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, repository.AsAppError("Testimonial", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Testimonial, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Testimonial", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Testimonial", err)
	}
	s.dropImage(ctx, t.ImageID)
	return t, nil
}

func (s *Service) dropImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.assets.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("public_id", key).Msg("failed to delete testimonial image")
	}
}
