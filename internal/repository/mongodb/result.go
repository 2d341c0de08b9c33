package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
)

type resultRepository struct {
	c collection
}

func NewResultRepository(db *mongo.Database, m *metrics.Metrics) repository.ResultRepository {
	return &resultRepository{c: newCollection(db, ResultsCollection, m)}
}

func (r *resultRepository) Create(ctx context.Context, result *model.Result) error {
	result.Touch(time.Now())
	return r.c.insert(ctx, result)
}

func (r *resultRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Result, error) {
	var result model.Result
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) GetByFilePublicID(ctx context.Context, publicID string) (*model.Result, error) {
	var result model.Result
	if err := r.c.findOne(ctx, bson.M{"files.publicId": publicID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) Update(ctx context.Context, result *model.Result) error {
	result.Touch(time.Now())
	return r.c.replace(ctx, result.ID, result)
}

func (r *resultRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *resultRepository) List(ctx context.Context, filter model.ResultFilter) ([]*model.Result, int64, error) {
	q, err := resultQuery(filter)
	if err != nil {
		return nil, 0, err
	}
	results := []*model.Result{}
	total, err := r.c.page(ctx, q, newestFirst, filter.ListParams, &results)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *resultRepository) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]*model.Result, error) {
	results := []*model.Result{}
	if err := r.c.find(ctx, bson.M{"patientId": patientID}, &results, options.Find().SetSort(newestFirst)); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	return r.c.deleteMany(ctx, bson.M{"patientId": patientID})
}

func resultQuery(filter model.ResultFilter) (bson.M, error) {
	q := bson.M{}
	if filter.PatientID != "" {
		id, err := primitive.ObjectIDFromHex(filter.PatientID)
		if err != nil {
			return nil, err
		}
		q["patientId"] = id
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["title"] = containsFold(s)
	}
	return q, nil
}
