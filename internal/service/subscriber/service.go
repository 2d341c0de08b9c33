package subscriber

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

// batchSize bounds the BCC list of a single newsletter message.
const batchSize = 50

type Service struct {
	repo        repository.SubscriberRepository
	notifier    notification.Service
	frontendURL string
}

func NewService(repo repository.SubscriberRepository, notifier notification.Service, frontendURL string) *Service {
	return &Service{
		repo:        repo,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Subscribe adds the address or re-activates it. Subscribing twice is a no-op.
// created reports whether a new document was inserted.
func (s *Service) Subscribe(ctx context.Context, req *model.SubscribeRequest) (sub *model.Subscriber, created bool, err error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repo.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		if existing.Active {
			return existing, false, nil
		}
		existing.Active = true
		existing.UnsubscribedAt = nil
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, false, apperrors.Internal(err)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, apperrors.Internal(err)
	}

	sub = &model.Subscriber{Email: addr, Active: true}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, false, repository.AsAppError("Subscriber", err)
	}
	return sub, true, nil
}

func (s *Service) Unsubscribe(ctx context.Context, req *model.SubscribeRequest) error {
	sub, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return repository.AsAppError("Subscriber", err)
	}
	if !sub.Active {
		return nil
	}

	now := time.Now()
	sub.Active = false
	sub.UnsubscribedAt = &now
	if err := s.repo.Update(ctx, sub); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter model.SubscriberFilter) ([]*model.Subscriber, int64, error) {
	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return subs, total, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Subscriber, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Subscriber", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Subscriber", err)
	}
	return sub, nil
}

// Broadcast queues a newsletter to every active subscriber and returns the
// number of recipients. Delivery happens in the background.
func (s *Service) Broadcast(ctx context.Context, subject, message string) (int, error) {
	recipients, err := s.repo.ActiveEmails(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	unsubscribe := s.frontendURL + "/unsubscribe"
	s.notifier.Go(notification.KindNewsletter, func(ctx context.Context) {
		sent := 0
		for start := 0; start < len(recipients); start += batchSize {
			end := start + batchSize
			if end > len(recipients) {
				end = len(recipients)
			}
			batch := recipients[start:end]
			if err := s.notifier.Email(ctx, notification.KindNewsletter,
				email.Newsletter(subject, message, unsubscribeLink(unsubscribe, batch), batch)); err == nil {
				sent += len(batch)
			}
		}
		log.Info().
			Int("recipients", len(recipients)).
			Int("sent", sent).
			Str("subject", subject).
			Msg("newsletter delivered")
	})

	return len(recipients), nil
}

// unsubscribeLink prefills the address when a batch has a single recipient.
func unsubscribeLink(base string, batch []string) string {
	if len(batch) != 1 {
		return base
	}
	return base + "?email=" + url.QueryEscape(batch[0])
}
