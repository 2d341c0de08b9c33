package subscriber

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification/notificationtest"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

func newService() (*Service, *repotest.SubscriberRepository, *notificationtest.Recorder) {
	repo := repotest.NewSubscriberRepository()
	rec := &notificationtest.Recorder{}
	return NewService(repo, rec, "https://clinic.example/"), repo, rec
}

func TestSubscribeIsIdempotent(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	sub, created, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: " Parent@Example.com"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "parent@example.com", sub.Email)

	again, created, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "parent@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)
}

func TestResubscribeReactivates(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	sub, _, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "parent@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(ctx, &model.SubscribeRequest{Email: "parent@example.com"}))

	stored, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.NotNil(t, stored.UnsubscribedAt)

	again, created, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "parent@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.Active)
	assert.Nil(t, again.UnsubscribedAt)
}

func TestUnsubscribeUnknownEmail(t *testing.T) {
	svc, _, _ := newService()

	err := svc.Unsubscribe(context.Background(), &model.SubscribeRequest{Email: "nobody@example.com"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode())
}

func TestBroadcastBatchesActiveSubscribers(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	for i := 0; i < batchSize+1; i++ {
		_, _, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: fmt.Sprintf("p%02d@example.com", i)})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Unsubscribe(ctx, &model.SubscribeRequest{Email: "p00@example.com"}))

	n, err := svc.Broadcast(ctx, "Flu season", "Vaccines are available.\n\nBook today.")
	require.NoError(t, err)
	assert.Equal(t, batchSize, n)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].BCC, batchSize)
	assert.Empty(t, sent[0].To)
	assert.NotContains(t, sent[0].BCC, "p00@example.com")
	assert.Contains(t, sent[0].TextBody, "https://clinic.example/unsubscribe")
}

func TestBroadcastSingleRecipientLink(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	_, _, err := svc.Subscribe(ctx, &model.SubscribeRequest{Email: "a+b@example.com"})
	require.NoError(t, err)

	n, err := svc.Broadcast(ctx, "News", "Hello")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.Sent(), 1)
	assert.Contains(t, rec.Sent()[0].TextBody, "/unsubscribe?email=a%2Bb%40example.com")
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	svc, _, rec := newService()

	n, err := svc.Broadcast(context.Background(), "News", "Hello")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.Sent())
}
