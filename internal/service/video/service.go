package video

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

// Broadcaster sends a newsletter to active subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, subject, message string) (int, error)
}

type Service struct {
	repo        repository.VideoRepository
	broadcaster Broadcaster
}

func NewService(repo repository.VideoRepository, broadcaster Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

func (s *Service) List(ctx context.Context, filter model.VideoFilter) ([]*model.Video, int64, error) {
	videos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return videos, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.Video, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Video", err)
	}
	return video, nil
}

// Create stores the video and, when asked, announces it to subscribers.
// Announcement failures never fail the request.
func (s *Service) Create(ctx context.Context, req *model.VideoRequest) (*model.Video, error) {
	video := &model.Video{}
	apply(video, req)
	if err := s.repo.Create(ctx, video); err != nil {
		return nil, apperrors.Internal(err)
	}

	if req.NotifySubscribers && s.broadcaster != nil {
		subject := "New video: " + video.Title.En
		body := fmt.Sprintf("%s\n\n%s\n\nWatch: %s", video.Title.En, video.Description.En, video.YouTubeURL)
		if n, err := s.broadcaster.Broadcast(ctx, subject, body); err != nil {
			log.Warn().Err(err).Str("video_id", video.ID.Hex()).Msg("failed to queue video newsletter")
		} else {
			log.Info().Int("recipients", n).Str("video_id", video.ID.Hex()).Msg("video newsletter queued")
		}
	}
	return video, nil
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, req *model.VideoRequest) (*model.Video, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Video", err)
	}
	apply(video, req)
	if err := s.repo.Update(ctx, video); err != nil {
		return nil, repository.AsAppError("Video", err)
	}
	return video, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Video, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Video", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Video", err)
	}
	return video, nil
}

func apply(v *model.Video, req *model.VideoRequest) {
	v.Title = req.Title
	v.Description = req.Description
	v.YouTubeURL = req.YouTubeURL
	v.ThumbnailURL = req.ThumbnailURL
	v.Category = req.Category
}
