package doctor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"

type fixture struct {
	svc    *Service
	repo   *repotest.DoctorRepository
	assets *storage.LocalStore
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	assets, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	repo := repotest.NewDoctorRepository()
	return &fixture{svc: NewService(repo, assets, ttl), repo: repo, assets: assets}
}

func photo(name, body string) *storage.Upload {
	return &storage.Upload{FileName: name, ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func request(name string) *model.DoctorRequest {
	return &model.DoctorRequest{
		Name:  model.Localized{En: name, Am: "ዶ/ር"},
		Field: model.Localized{En: "Pediatrics"},
	}
}

func (f *fixture) exists(t *testing.T, key string) bool {
	obj, err := f.assets.Open(context.Background(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	obj.Body.Close()
	return true
}

func status(t *testing.T, err error) int {
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an app error, got %v", err)
	return appErr.StatusCode()
}

func TestCreateStoresPhoto(t *testing.T) {
	f := newFixture(t, 0)

	d, err := f.svc.Create(context.Background(), request("Dr. Abebe"), photo("abebe.png", pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.PhotoID, "doctors/"))
	assert.True(t, strings.HasSuffix(d.PhotoURL, d.PhotoID))
	assert.True(t, f.exists(t, d.PhotoID))
}

func TestCreateRejectsNonImagePhoto(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.Create(context.Background(), request("Dr. Abebe"), photo("cv.html", "<html></html>"))
	assert.Equal(t, http.StatusBadRequest, status(t, err))

	items, total, err := f.repo.List(context.Background(), model.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestUpdateReplacesPhoto(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, request("Dr. Abebe"), photo("old.png", pngHeader))
	require.NoError(t, err)
	oldKey := d.PhotoID

	updated, err := f.svc.Update(ctx, d.ID, request("Dr. Abebe Kebede"), photo("new.png", pngHeader+"v2"))
	require.NoError(t, err)
	assert.Equal(t, "Dr. Abebe Kebede", updated.Name.En)
	assert.NotEqual(t, oldKey, updated.PhotoID)
	assert.False(t, f.exists(t, oldKey), "old photo is deleted")
	assert.True(t, f.exists(t, updated.PhotoID))

	kept, err := f.svc.Update(ctx, d.ID, request("Dr. Abebe K."), nil)
	require.NoError(t, err)
	assert.Equal(t, updated.PhotoID, kept.PhotoID, "no upload keeps the current photo")
}

type failingUpdates struct {
	*repotest.DoctorRepository
}

func (failingUpdates) Update(context.Context, *model.Doctor) error {
	return errors.New("mongo: write concern timeout")
}

// trackingStore remembers every key it stored.
type trackingStore struct {
	*storage.LocalStore
	keys []string
}

func (s *trackingStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (*storage.Asset, error) {
	asset, err := s.LocalStore.Upload(ctx, key, contentType, body, size)
	if err == nil {
		s.keys = append(s.keys, asset.Key)
	}
	return asset, err
}

func TestUpdateFailureDropsNewPhoto(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, request("Dr. Abebe"), photo("old.png", pngHeader))
	require.NoError(t, err)

	store := &trackingStore{LocalStore: f.assets}
	svc := NewService(failingUpdates{f.repo}, store, 0)
	_, err = svc.Update(ctx, d.ID, request("Dr. Abebe"), photo("new.png", pngHeader))
	assert.Equal(t, http.StatusInternalServerError, status(t, err))

	require.Len(t, store.keys, 1)
	assert.False(t, f.exists(t, store.keys[0]), "the uploaded replacement is removed")
	assert.True(t, f.exists(t, d.PhotoID), "current photo survives")

	stored, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.PhotoID, stored.PhotoID)
}

func TestDeleteRemovesPhoto(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, request("Dr. Abebe"), photo("abebe.png", pngHeader))
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, deleted.ID)
	assert.False(t, f.exists(t, d.PhotoID))

	_, err = f.svc.Delete(ctx, d.ID)
	assert.Equal(t, http.StatusNotFound, status(t, err))
}

func TestListCacheIsInvalidatedOnMutation(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, total, err := f.svc.List(ctx, model.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)

	// written behind the service: the cached page is still served
	require.NoError(t, f.repo.Create(ctx, &model.Doctor{Name: model.Localized{En: "Dr. Hidden"}}))
	_, total, err = f.svc.List(ctx, model.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.svc.Create(ctx, request("Dr. Abebe"), nil)
	require.NoError(t, err)
	_, total, err = f.svc.List(ctx, model.ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
