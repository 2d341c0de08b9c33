package result

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification/notificationtest"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

type fixture struct {
	svc      *Service
	repos    *repotest.Repositories
	assets   *storage.LocalStore
	notifier *notificationtest.Recorder
	staff    *model.User
	patient  *model.User
}

func newFixture(t *testing.T) *fixture {
	assets, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	f := &fixture{
		repos:    repotest.New(),
		assets:   assets,
		notifier: &notificationtest.Recorder{},
	}
	f.svc = NewService(f.repos.Results, f.repos.Users, assets, f.notifier, "https://clinic.example/")

	f.staff = &model.User{Name: "Lab", Email: "lab@clinic.test", Role: model.RoleAdmin,
		Permissions: model.Permissions{ResultManagement: true}}
	f.patient = &model.User{Name: "Noah", Email: "noah@example.com", Role: model.RoleUser}
	require.NoError(t, f.repos.Users.Create(context.Background(), f.staff))
	require.NoError(t, f.repos.Users.Create(context.Background(), f.patient))
	return f
}

func upload(name, content string) storage.Upload {
	return storage.Upload{
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

func (f *fixture) create(t *testing.T, files ...storage.Upload) *model.Result {
	r, err := f.svc.Create(context.Background(), f.staff.ID, &model.CreateResultRequest{
		PatientID: f.patient.ID.Hex(),
		Title:     " Urinalysis ",
	}, files)
	require.NoError(t, err)
	return r
}

func status(t *testing.T, err error) int {
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an app error, got %v", err)
	return appErr.StatusCode()
}

func TestCreateStoresFiles(t *testing.T) {
	f := newFixture(t)

	r := f.create(t, upload("a.pdf", "first"), upload("b.pdf", "second"))
	assert.Equal(t, "Urinalysis", r.Title)
	assert.Equal(t, f.staff.ID, r.UploadedBy)
	require.Len(t, r.Files, 2)
	assert.True(t, strings.HasPrefix(r.Files[0].PublicID, "results/"))
	assert.Equal(t, "a.pdf", r.Files[0].FileName)
	assert.EqualValues(t, 5, r.Files[0].Size)
}

func TestCreateValidatesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &model.CreateResultRequest{PatientID: f.patient.ID.Hex(), Title: "X"}

	_, err := f.svc.Create(ctx, f.staff.ID, req, nil)
	assert.Equal(t, http.StatusBadRequest, status(t, err))

	many := make([]storage.Upload, MaxFiles+1)
	for i := range many {
		many[i] = upload("f.pdf", "x")
	}
	_, err = f.svc.Create(ctx, f.staff.ID, req, many)
	assert.Equal(t, http.StatusBadRequest, status(t, err))

	big := upload("big.pdf", "x")
	big.Size = MaxFileSize + 1
	_, err = f.svc.Create(ctx, f.staff.ID, req, []storage.Upload{big})
	assert.Equal(t, http.StatusBadRequest, status(t, err))

	staffReq := &model.CreateResultRequest{PatientID: f.staff.ID.Hex(), Title: "X"}
	_, err = f.svc.Create(ctx, f.staff.ID, staffReq, []storage.Upload{upload("a.pdf", "x")})
	assert.Equal(t, http.StatusBadRequest, status(t, err))
}

type failingStore struct {
	*storage.LocalStore
	failAfter int
	uploads   int
}

func (s *failingStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (*storage.Asset, error) {
	s.uploads++
	if s.uploads > s.failAfter {
		return nil, errors.New("s3: slow down")
	}
	return s.LocalStore.Upload(ctx, key, contentType, body, size)
}

func TestCreateRollsBackUploadedFiles(t *testing.T) {
	f := newFixture(t)
	store := &failingStore{LocalStore: f.assets, failAfter: 1}
	svc := NewService(f.repos.Results, f.repos.Users, store, f.notifier, "")

	_, err := svc.Create(context.Background(), f.staff.ID, &model.CreateResultRequest{
		PatientID: f.patient.ID.Hex(), Title: "X",
	}, []storage.Upload{upload("a.pdf", "one"), upload("b.pdf", "two")})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status(t, err))

	items, err := f.repos.Results.ListByPatient(context.Background(), f.patient.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOpenFileChecksOwnership(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, upload("a.pdf", "payload"))
	key := r.Files[0].PublicID
	ctx := context.Background()

	stranger := &model.User{Role: model.RoleUser}
	stranger.ID = primitive.NewObjectID()
	_, err := f.svc.OpenFile(ctx, stranger, key)
	assert.Equal(t, http.StatusForbidden, status(t, err))

	for _, caller := range []*model.User{f.patient, f.staff} {
		dl, err := f.svc.OpenFile(ctx, caller, key)
		require.NoError(t, err)
		body, err := io.ReadAll(dl.Object.Body)
		dl.Object.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
		assert.Equal(t, "application/pdf", dl.Object.ContentType)
	}

	_, err = f.svc.OpenFile(ctx, f.patient, "../"+key)
	assert.Equal(t, http.StatusNotFound, status(t, err))

	_, err = f.svc.OpenFile(ctx, f.patient, "results/unknown.pdf")
	assert.Equal(t, http.StatusNotFound, status(t, err))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, upload("a.pdf", "x"))
	ctx := context.Background()

	_, err := f.svc.MarkRead(ctx, f.staff.ID, r.ID)
	assert.Equal(t, http.StatusNotFound, status(t, err))

	read, err := f.svc.MarkRead(ctx, f.patient.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	first := *read.ReadAt

	again, err := f.svc.MarkRead(ctx, f.patient.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *again.ReadAt)
}

func TestSendEmail(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, upload("a.pdf", "x"))
	ctx := context.Background()

	sent, err := f.svc.SendEmail(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, sent.EmailSent)
	assert.NotNil(t, sent.EmailSentAt)

	msgs := f.notifier.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"noah@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].TextBody, "https://clinic.example/my-results")

	f.notifier.EmailErr = errors.New("smtp down")
	_, err = f.svc.SendEmail(ctx, r.ID)
	assert.Equal(t, http.StatusInternalServerError, status(t, err))
}

func TestDeleteRemovesFiles(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, upload("a.pdf", "x"))
	ctx := context.Background()

	_, err := f.svc.Delete(ctx, r.ID)
	require.NoError(t, err)

	_, err = f.assets.Open(ctx, r.Files[0].PublicID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Delete(ctx, r.ID)
	assert.Equal(t, http.StatusNotFound, status(t, err))
}
