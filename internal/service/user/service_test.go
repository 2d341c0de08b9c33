package user

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

type fixture struct {
	svc    *Service
	repos  *repotest.Repositories
	assets *storage.LocalStore
}

func newFixture(t *testing.T) *fixture {
	assets, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	repos := repotest.New()
	return &fixture{
		svc:    NewService(repos.Users, repos.Results, assets, security.NewBcryptHasher(bcrypt.MinCost)),
		repos:  repos,
		assets: assets,
	}
}

func (f *fixture) account(t *testing.T, name, role string) *model.User {
	u := &model.User{Name: name, Email: strings.ToLower(name) + "@clinic.test", Role: role}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u
}

func code(t *testing.T, err error) int {
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an app error, got %v", err)
	return appErr.StatusCode()
}

func TestCreateAssignsPermissionsByRole(t *testing.T) {
	f := newFixture(t)
	actor := f.account(t, "Root", model.RoleSuperAdmin)
	ctx := context.Background()

	patient, err := f.svc.Create(ctx, actor, &model.CreateUserRequest{
		Name: "Patient", Email: "patient@example.com", Password: "password123",
		Permissions: &model.Permissions{UserManagement: true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, patient.Role)
	assert.Equal(t, model.Permissions{}, patient.Permissions)

	admin, err := f.svc.Create(ctx, actor, &model.CreateUserRequest{
		Name: "Desk", Email: "desk@example.com", Password: "password123", Role: model.RoleAdmin,
		Permissions: &model.Permissions{AppointmentManagement: true},
	})
	require.NoError(t, err)
	assert.True(t, admin.Permissions.AppointmentManagement)
	assert.False(t, admin.Permissions.DoctorManagement)

	super, err := f.svc.Create(ctx, actor, &model.CreateUserRequest{
		Name: "Other Root", Email: "root2@example.com", Password: "password123", Role: model.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AllPermissions(), super.Permissions)

	_, err = f.svc.Create(ctx, actor, &model.CreateUserRequest{
		Name: "Dup", Email: "DESK@example.com", Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, code(t, err))
}

func TestOnlySuperAdminManagesSuperAdmins(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "Admin", model.RoleAdmin)
	root := f.account(t, "Root", model.RoleSuperAdmin)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, admin, &model.CreateUserRequest{
		Name: "Sneaky", Email: "sneaky@example.com", Password: "password123", Role: model.RoleSuperAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, code(t, err))

	name := "Renamed"
	_, err = f.svc.Update(ctx, admin, root.ID, &model.UpdateUserRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, code(t, err))

	_, err = f.svc.Delete(ctx, admin, root.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, code(t, err))
}

func TestCannotChangeOwnRoleOrDeleteSelf(t *testing.T) {
	f := newFixture(t)
	root := f.account(t, "Root", model.RoleSuperAdmin)
	ctx := context.Background()

	role := model.RoleUser
	_, err := f.svc.Update(ctx, root, root.ID, &model.UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, code(t, err))

	_, err = f.svc.Delete(ctx, root, root.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, code(t, err))
}

func TestDemotionClearsPermissions(t *testing.T) {
	f := newFixture(t)
	root := f.account(t, "Root", model.RoleSuperAdmin)
	desk := f.account(t, "Desk", model.RoleAdmin)
	ctx := context.Background()

	desk.Permissions = model.Permissions{AppointmentManagement: true}
	require.NoError(t, f.repos.Users.Update(ctx, desk))

	role := model.RoleUser
	updated, err := f.svc.Update(ctx, root, desk.ID, &model.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, updated.Role)
	assert.Equal(t, model.Permissions{}, updated.Permissions)
}

func TestDeleteRemovesResultsAndFiles(t *testing.T) {
	f := newFixture(t)
	root := f.account(t, "Root", model.RoleSuperAdmin)
	patient := f.account(t, "Patient", model.RoleUser)
	other := f.account(t, "Other", model.RoleUser)
	ctx := context.Background()

	asset, err := storage.Put(ctx, f.assets, "results", storage.Upload{
		FileName: "cbc.pdf", ContentType: "application/pdf", Body: strings.NewReader("cbc"),
	})
	require.NoError(t, err)

	require.NoError(t, f.repos.Results.Create(ctx, &model.Result{
		PatientID: patient.ID,
		Title:     "CBC",
		Files:     []model.ResultFile{{PublicID: asset.Key, FileName: "cbc.pdf"}},
	}))
	require.NoError(t, f.repos.Results.Create(ctx, &model.Result{PatientID: other.ID, Title: "X-ray"}))

	deleted, err := f.svc.Delete(ctx, root, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, deleted.ID)

	mine, err := f.repos.Results.ListByPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := f.repos.Results.ListByPatient(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = f.assets.Open(ctx, asset.Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteMissingUser(t *testing.T) {
	f := newFixture(t)
	root := f.account(t, "Root", model.RoleSuperAdmin)
	_, err := f.svc.Delete(context.Background(), root, primitive.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, code(t, err))
}
