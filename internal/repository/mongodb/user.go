package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
)

type userRepository struct {
	c collection
}

func NewUserRepository(db *mongo.Database, m *metrics.Metrics) repository.UserRepository {
	return &userRepository{c: newCollection(db, UsersCollection, m)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	user.Touch(time.Now())
	return r.c.insert(ctx, user)
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var user model.User
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.c.findOne(ctx, bson.M{"email": normalizeEmail(email)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	var user model.User
	if err := r.c.findOne(ctx, bson.M{"refreshToken": token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	user.Touch(time.Now())
	return r.c.replace(ctx, user.ID, user)
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.c.updateByID(ctx, id, bson.M{"$set": bson.M{
		"refreshToken": token,
		"updatedAt":    time.Now(),
	}})
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *userRepository) List(ctx context.Context, filter model.UserFilter) ([]*model.User, int64, error) {
	users := []*model.User{}
	total, err := r.c.page(ctx, userQuery(filter), newestFirst, filter.ListParams, &users)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func userQuery(filter model.UserFilter) bson.M {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["$or"] = searchAny(s, "name", "email", "phone")
	}
	return q
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
