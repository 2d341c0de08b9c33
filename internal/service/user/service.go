package user

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

type Service struct {
	users   repository.UserRepository
	results repository.ResultRepository
	assets  storage.Store
	hasher  security.PasswordHasher
}

func NewService(users repository.UserRepository, results repository.ResultRepository,
	assets storage.Store, hasher security.PasswordHasher) *Service {
	return &Service{
		users:   users,
		results: results,
		assets:  assets,
		hasher:  hasher,
	}
}

func (s *Service) List(ctx context.Context, filter model.UserFilter) ([]*model.User, int64, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return users, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("User", err)
	}
	return user, nil
}

// Create adds an account on behalf of actor. Only a super_admin may create
// another super_admin.
func (s *Service) Create(ctx context.Context, actor *model.User, req *model.CreateUserRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role == model.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, apperrors.Forbidden("Only a super admin can create a super admin")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
		PasswordHash: hash,
	}
	user.Permissions = permissionsFor(role, req.Permissions)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("User already exists", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor *model.User, id primitive.ObjectID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("User", err)
	}

	// touching a super_admin, or promoting to one, is reserved to super_admins
	promoting := req.Role != nil && *req.Role == model.RoleSuperAdmin
	if (promoting || user.IsSuperAdmin()) && !actor.IsSuperAdmin() {
		return nil, apperrors.Forbidden("Only a super admin can manage super admins")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Role != nil {
		if user.ID == actor.ID && *req.Role != user.Role {
			return nil, apperrors.BadRequest("You cannot change your own role", nil)
		}
		user.Role = *req.Role
	}
	if req.Permissions != nil || req.Role != nil {
		perms := req.Permissions
		if perms == nil {
			perms = &user.Permissions
		}
		user.Permissions = permissionsFor(user.Role, perms)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// Delete removes the account, then every result it owns along with the stored
// files. The two deletes are not atomic; asset removal is best-effort.
func (s *Service) Delete(ctx context.Context, actor *model.User, id primitive.ObjectID) (*model.User, error) {
	if actor.ID == id {
		return nil, apperrors.BadRequest("You cannot delete your own account", nil)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("User", err)
	}
	if user.IsSuperAdmin() && !actor.IsSuperAdmin() {
		return nil, apperrors.Forbidden("Only a super admin can delete a super admin")
	}

	results, err := s.results.ListByPatient(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("User", err)
	}

	removed, err := s.results.DeleteByPatient(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id.Hex()).Msg("failed to delete results of removed user")
		return user, nil
	}

	for _, r := range results {
		for _, f := range r.Files {
			if err := s.assets.Delete(ctx, f.PublicID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				log.Warn().Err(err).Str("public_id", f.PublicID).Msg("failed to delete result file")
			}
		}
	}

	log.Info().
		Str("user_id", id.Hex()).
		Int64("results_removed", removed).
		Msg("user deleted")

	return user, nil
}

// permissionsFor keeps flags only on admin accounts. super_admin carries every
// flag so the stored record matches what the gate grants.
func permissionsFor(role string, requested *model.Permissions) model.Permissions {
	switch role {
	case model.RoleSuperAdmin:
		return model.AllPermissions()
	case model.RoleAdmin:
		if requested != nil {
			return *requested
		}
	}
	return model.Permissions{}
}
