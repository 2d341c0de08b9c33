package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/telegram"
)

type stubMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubAlerts struct {
	err error
}

func (a *stubAlerts) SendMessage(context.Context, string) error {
	return a.err
}

func TestEmailCountsOutcome(t *testing.T) {
	m := metrics.NewNop()
	mailer := &stubMailer{}
	svc := NewService(mailer, nil, m)

	require.NoError(t, svc.Email(context.Background(), KindWelcome, email.Welcome("a@example.com", "A")))
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(channelEmail, KindWelcome)))

	mailer.err = errors.New("smtp: 421 service not available")
	assert.Error(t, svc.Email(context.Background(), KindWelcome, email.Welcome("b@example.com", "B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues(channelEmail, KindWelcome)))
}

func TestDisabledChannelsAreNotFailures(t *testing.T) {
	m := metrics.NewNop()
	svc := NewService(nil, &stubAlerts{err: telegram.ErrDisabled}, m)

	err := svc.Email(context.Background(), KindWelcome, email.Message{})
	var off email.ErrDisabled
	assert.ErrorAs(t, err, &off)

	assert.ErrorIs(t, svc.Alert(context.Background(), KindAppointmentAlert, "new booking"), telegram.ErrDisabled)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues(channelTelegram, KindAppointmentAlert)))
}

func TestGoRunsDetachedAndWaitDrains(t *testing.T) {
	svc := NewService(nil, nil, nil)

	var ran atomic.Int32
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 3; i++ {
		svc.Go(KindNewsletter, func(ctx context.Context) {
			// the request context is gone, the background one is not
			assert.Error(t, parent.Err())
			assert.NoError(t, ctx.Err())
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			time.Sleep(10 * time.Millisecond)
			ran.Add(1)
		})
	}
	svc.Wait()
	assert.EqualValues(t, 3, ran.Load())
}

func TestGoRecoversPanics(t *testing.T) {
	svc := NewService(nil, nil, nil)

	svc.Go(KindWelcome, func(context.Context) { panic("template exploded") })
	assert.NotPanics(t, svc.Wait)
}
