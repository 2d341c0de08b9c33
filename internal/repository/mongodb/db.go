package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
)

// Collection names
const (
	UsersCollection        = "users"
	DoctorsCollection      = "doctors"
	DepartmentsCollection  = "departments"
	VideosCollection       = "videos"
	TestimonialsCollection = "testimonials"
	SubscribersCollection  = "subscribers"
	AppointmentsCollection = "appointments"
	ResultsCollection      = "results"
	AuditLogsCollection    = "auditlogs"
)

// Connect opens a client, pings the primary and returns the named database.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("pediatric-clinic-api"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(database), nil
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: options.Index().SetName("idx_refresh_token")},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_role_created")},
		},
		SubscribersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		AppointmentsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_status_created")},
			{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetName("idx_date")},
		},
		ResultsCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_patient_created")},
			{Keys: bson.D{{Key: "files.publicId", Value: 1}}, Options: options.Index().SetName("idx_file_public_id")},
		},
		TestimonialsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_status_created")},
		},
		AuditLogsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_created")},
			{Keys: bson.D{{Key: "adminId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_admin_created")},
			{Keys: bson.D{{Key: "resourceType", Value: 1}}, Options: options.Index().SetName("idx_resource_type")},
		},
		DepartmentsCollection: {
			{Keys: bson.D{{Key: "order", Value: 1}}, Options: options.Index().SetName("idx_order")},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// NewRepositories binds every repository to db.
func NewRepositories(db *mongo.Database, m *metrics.Metrics) *repository.Set {
	return &repository.Set{
		Users:        NewUserRepository(db, m),
		Doctors:      NewDoctorRepository(db, m),
		Departments:  NewDepartmentRepository(db, m),
		Videos:       NewVideoRepository(db, m),
		Testimonials: NewTestimonialRepository(db, m),
		Subscribers:  NewSubscriberRepository(db, m),
		Appointments: NewAppointmentRepository(db, m),
		Results:      NewResultRepository(db, m),
		Audit:        NewAuditRepository(db, m),
	}
}
