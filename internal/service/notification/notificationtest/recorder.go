package notificationtest

import (
	"context"
	"sync"

	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
)

// Recorder is an in-memory Service that runs background work inline.
// It is used by tests across the service and handler packages.
type Recorder struct {
	mu     sync.Mutex
	Emails []email.Message
	Kinds  []string
	Alerts []string

	// EmailErr and AlertErr, when set, are returned by every send.
	EmailErr error
	AlertErr error
}

var _ notification.Service = (*Recorder)(nil)

func (r *Recorder) Email(_ context.Context, kind string, m email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EmailErr != nil {
		return r.EmailErr
	}
	r.Emails = append(r.Emails, m)
	r.Kinds = append(r.Kinds, kind)
	return nil
}

func (r *Recorder) Alert(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AlertErr != nil {
		return r.AlertErr
	}
	r.Alerts = append(r.Alerts, text)
	return nil
}

func (r *Recorder) Go(_ string, fn func(ctx context.Context)) {
	fn(context.Background())
}

func (r *Recorder) Wait() {}

// Sent returns a copy of the recorded emails.
func (r *Recorder) Sent() []email.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]email.Message(nil), r.Emails...)
}
