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

type appointmentRepository struct {
	c collection
}

func NewAppointmentRepository(db *mongo.Database, m *metrics.Metrics) repository.AppointmentRepository {
	return &appointmentRepository{c: newCollection(db, AppointmentsCollection, m)}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	appointment.Touch(time.Now())
	return r.c.insert(ctx, appointment)
}

func (r *appointmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	appointment.Touch(time.Now())
	return r.c.replace(ctx, appointment.ID, appointment)
}

func (r *appointmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *appointmentRepository) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int64, error) {
	appointments := []*model.Appointment{}
	total, err := r.c.page(ctx, appointmentQuery(filter), newestFirst, filter.ListParams, &appointments)
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func appointmentQuery(filter model.AppointmentFilter) bson.M {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Date != "" {
		q["date"] = filter.Date
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["$or"] = searchAny(s, "patientName", "parentName", "phone", "email")
	}
	return q
}
