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

type auditRepository struct {
	c collection
}

func NewAuditRepository(db *mongo.Database, m *metrics.Metrics) repository.AuditRepository {
	return &auditRepository{c: newCollection(db, AuditLogsCollection, m)}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return r.c.insert(ctx, log)
}

func (r *auditRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.AuditLog, error) {
	var log model.AuditLog
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *auditRepository) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error) {
	q, err := auditQuery(filter)
	if err != nil {
		return nil, 0, err
	}
	logs := []*model.AuditLog{}
	total, err := r.c.page(ctx, q, newestFirst, filter.ListParams, &logs)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

type countBucket struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (r *auditRepository) Stats(ctx context.Context, filter model.AuditFilter) (stats *model.AuditStats, err error) {
	defer r.c.track("aggregate", &err)()

	q, err := auditQuery(filter)
	if err != nil {
		return nil, err
	}

	group := func(field string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.M{"count": -1}},
		}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q}},
		{{Key: "$facet", Value: bson.M{
			"total":          bson.A{bson.M{"$count": "count"}},
			"byAction":       group("action"),
			"byResourceType": group("resourceType"),
		}}},
	}

	cursor, err := r.c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []struct {
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		ByAction       []countBucket `bson:"byAction"`
		ByResourceType []countBucket `bson:"byResourceType"`
	}
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}

	stats = &model.AuditStats{
		ByAction:       map[string]int64{},
		ByResourceType: map[string]int64{},
	}
	if len(out) == 0 {
		return stats, nil
	}
	if len(out[0].Total) > 0 {
		stats.Total = out[0].Total[0].Count
	}
	for _, b := range out[0].ByAction {
		stats.ByAction[b.Key] = b.Count
	}
	for _, b := range out[0].ByResourceType {
		stats.ByResourceType[b.Key] = b.Count
	}
	return stats, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return r.c.deleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": before}})
}

func auditQuery(filter model.AuditFilter) (bson.M, error) {
	q := bson.M{}
	if filter.AdminID != "" {
		id, err := primitive.ObjectIDFromHex(filter.AdminID)
		if err != nil {
			return nil, err
		}
		q["adminId"] = id
	}
	if filter.Action != "" {
		q["action"] = filter.Action
	}
	if filter.ResourceType != "" {
		q["resourceType"] = filter.ResourceType
	}
	created := bson.M{}
	if filter.From != nil {
		created["$gte"] = *filter.From
	}
	if filter.To != nil {
		// inclusive of the whole "to" day
		created["$lt"] = filter.To.AddDate(0, 0, 1)
	}
	if len(created) > 0 {
		q["createdAt"] = created
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["$or"] = searchAny(s, "description", "adminName", "adminEmail", "resourceName")
	}
	return q, nil
}
