package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/telegram"
)

const (
	channelEmail    = "email"
	channelTelegram = "telegram"

	defaultTimeout = 20 * time.Second
)

// Notification kinds, used as metric labels.
const (
	KindWelcome              = "welcome"
	KindPasswordReset        = "password_reset"
	KindAppointmentReceived  = "appointment_received"
	KindAppointmentConfirmed = "appointment_confirmed"
	KindAppointmentCancelled = "appointment_cancelled"
	KindAppointmentAlert     = "appointment_alert"
	KindResultReady          = "result_ready"
	KindNewsletter           = "newsletter"
)

// AlertSender posts a text alert to the staff chat.
type AlertSender interface {
	SendMessage(ctx context.Context, text string) error
}

// Service delivers best-effort side-channel messages. Errors are returned for
// callers that care, but are always logged and counted here.
type Service interface {
	Email(ctx context.Context, kind string, m email.Message) error
	Alert(ctx context.Context, kind, text string) error
	// Go runs fn in the background with a detached, bounded context.
	Go(kind string, fn func(ctx context.Context))
	// Wait blocks until background work has finished.
	Wait()
}

type service struct {
	mailer  email.Sender
	alerts  AlertSender
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewService(mailer email.Sender, alerts AlertSender, m *metrics.Metrics) Service {
	return &service{
		mailer:  mailer,
		alerts:  alerts,
		metrics: m,
		timeout: defaultTimeout,
	}
}

func (s *service) Email(ctx context.Context, kind string, m email.Message) error {
	if s.mailer == nil {
		return email.ErrDisabled{}
	}
	err := s.mailer.Send(ctx, m)
	s.record(channelEmail, kind, err)
	return err
}

func (s *service) Alert(ctx context.Context, kind, text string) error {
	if s.alerts == nil {
		return telegram.ErrDisabled
	}
	err := s.alerts.SendMessage(ctx, text)
	s.record(channelTelegram, kind, err)
	return err
}

func (s *service) Go(kind string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("kind", kind).Msg("background notification panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *service) Wait() {
	s.wg.Wait()
}

func (s *service) record(channel, kind string, err error) {
	if isDisabled(err) {
		log.Debug().Str("channel", channel).Str("kind", kind).Msg("notification channel disabled, skipped")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("kind", kind).Msg("notification failed")
		if s.metrics != nil {
			s.metrics.NotificationsFailed.WithLabelValues(channel, kind).Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(channel, kind).Inc()
	}
}

func isDisabled(err error) bool {
	var off email.ErrDisabled
	return errors.As(err, &off) || errors.Is(err, telegram.ErrDisabled)
}
