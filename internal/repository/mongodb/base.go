package mongodb

import (
	"context"
	"errors"
	"regexp"
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

// collection wraps a driver collection with error mapping and metrics.
type collection struct {
	coll    *mongo.Collection
	name    string
	metrics *metrics.Metrics
}

func newCollection(db *mongo.Database, name string, m *metrics.Metrics) collection {
	return collection{coll: db.Collection(name), name: name, metrics: m}
}

func (c collection) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		status = "error"
	}
	c.metrics.DatabaseOperations.WithLabelValues(c.name, op, status).Inc()
	c.metrics.DatabaseLatency.WithLabelValues(c.name, op).Observe(time.Since(start).Seconds())
}

// track records the outcome of op when the returned func runs.
func (c collection) track(op string, err *error) func() {
	start := time.Now()
	return func() { c.observe(op, start, *err) }
}

func (c collection) insert(ctx context.Context, doc interface{}) (err error) {
	defer c.track("insert", &err)()

	if _, err = c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (c collection) findOne(ctx context.Context, filter interface{}, out interface{}) (err error) {
	defer c.track("find_one", &err)()

	err = c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func (c collection) replace(ctx context.Context, id primitive.ObjectID, doc interface{}) (err error) {
	defer c.track("replace", &err)()

	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c collection) updateByID(ctx context.Context, id primitive.ObjectID, update interface{}) (err error) {
	defer c.track("update", &err)()

	res, err := c.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c collection) deleteByID(ctx context.Context, id primitive.ObjectID) (err error) {
	defer c.track("delete", &err)()

	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c collection) deleteMany(ctx context.Context, filter interface{}) (n int64, err error) {
	defer c.track("delete_many", &err)()

	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// find runs a query and decodes every document into out, a pointer to a slice.
func (c collection) find(ctx context.Context, filter interface{}, out interface{}, opts ...*options.FindOptions) (err error) {
	defer c.track("find", &err)()

	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

// page runs a paginated query and the matching count.
func (c collection) page(ctx context.Context, filter interface{}, sort bson.D, params model.ListParams, out interface{}) (int64, error) {
	params.Normalize()

	opts := options.Find().
		SetSort(sort).
		SetSkip(params.Skip()).
		SetLimit(int64(params.Limit))

	if err := c.find(ctx, filter, out, opts); err != nil {
		return 0, err
	}

	start := time.Now()
	total, err := c.coll.CountDocuments(ctx, filter)
	c.observe("count", start, err)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// containsFold matches s anywhere in the field, case insensitively.
func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(s)), Options: "i"}
}

// searchAny builds an $or of case-insensitive matches over fields.
func searchAny(term string, fields ...string) bson.A {
	rx := containsFold(term)
	or := bson.A{}
	for _, f := range fields {
		or = append(or, bson.M{f: rx})
	}
	return or
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}
