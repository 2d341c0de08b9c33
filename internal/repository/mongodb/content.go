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

// Doctors

type doctorRepository struct {
	c collection
}

func NewDoctorRepository(db *mongo.Database, m *metrics.Metrics) repository.DoctorRepository {
	return &doctorRepository{c: newCollection(db, DoctorsCollection, m)}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	doctor.Touch(time.Now())
	return r.c.insert(ctx, doctor)
}

func (r *doctorRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	doctor.Touch(time.Now())
	return r.c.replace(ctx, doctor.ID, doctor)
}

func (r *doctorRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *doctorRepository) List(ctx context.Context, params model.ListParams) ([]*model.Doctor, int64, error) {
	q := bson.M{}
	if s := strings.TrimSpace(params.Search); s != "" {
		q["$or"] = searchAny(s, "name.en", "name.am", "field.en", "field.am")
	}
	doctors := []*model.Doctor{}
	total, err := r.c.page(ctx, q, newestFirst, params, &doctors)
	if err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

// Departments

type departmentRepository struct {
	c collection
}

func NewDepartmentRepository(db *mongo.Database, m *metrics.Metrics) repository.DepartmentRepository {
	return &departmentRepository{c: newCollection(db, DepartmentsCollection, m)}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	dept.Touch(time.Now())
	return r.c.insert(ctx, dept)
}

func (r *departmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Department, error) {
	var dept model.Department
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &dept); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	dept.Touch(time.Now())
	return r.c.replace(ctx, dept.ID, dept)
}

func (r *departmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *departmentRepository) List(ctx context.Context) ([]*model.Department, error) {
	depts := []*model.Department{}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}})
	if err := r.c.find(ctx, bson.M{}, &depts, opts); err != nil {
		return nil, err
	}
	return depts, nil
}

// Videos

type videoRepository struct {
	c collection
}

func NewVideoRepository(db *mongo.Database, m *metrics.Metrics) repository.VideoRepository {
	return &videoRepository{c: newCollection(db, VideosCollection, m)}
}

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	video.Touch(time.Now())
	return r.c.insert(ctx, video)
}

func (r *videoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Video, error) {
	var video model.Video
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) Update(ctx context.Context, video *model.Video) error {
	video.Touch(time.Now())
	return r.c.replace(ctx, video.ID, video)
}

func (r *videoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *videoRepository) List(ctx context.Context, filter model.VideoFilter) ([]*model.Video, int64, error) {
	q := bson.M{}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["$or"] = searchAny(s, "title.en", "title.am")
	}
	videos := []*model.Video{}
	total, err := r.c.page(ctx, q, newestFirst, filter.ListParams, &videos)
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// Testimonials

type testimonialRepository struct {
	c collection
}

func NewTestimonialRepository(db *mongo.Database, m *metrics.Metrics) repository.TestimonialRepository {
	return &testimonialRepository{c: newCollection(db, TestimonialsCollection, m)}
}

func (r *testimonialRepository) Create(ctx context.Context, t *model.Testimonial) error {
	t.Touch(time.Now())
	return r.c.insert(ctx, t)
}

func (r *testimonialRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Testimonial, error) {
	var t model.Testimonial
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *testimonialRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*model.Testimonial, error) {
	if err := r.c.updateByID(ctx, id, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *testimonialRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *testimonialRepository) List(ctx context.Context, filter model.TestimonialFilter) ([]*model.Testimonial, int64, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["$or"] = searchAny(s, "name", "message")
	}
	items := []*model.Testimonial{}
	total, err := r.c.page(ctx, q, newestFirst, filter.ListParams, &items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Subscribers

type subscriberRepository struct {
	c collection
}

func NewSubscriberRepository(db *mongo.Database, m *metrics.Metrics) repository.SubscriberRepository {
	return &subscriberRepository{c: newCollection(db, SubscribersCollection, m)}
}

func (r *subscriberRepository) Create(ctx context.Context, sub *model.Subscriber) error {
	sub.Email = normalizeEmail(sub.Email)
	sub.Touch(time.Now())
	return r.c.insert(ctx, sub)
}

func (r *subscriberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Subscriber, error) {
	var sub model.Subscriber
	if err := r.c.findOne(ctx, bson.M{"_id": id}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	var sub model.Subscriber
	if err := r.c.findOne(ctx, bson.M{"email": normalizeEmail(email)}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriberRepository) Update(ctx context.Context, sub *model.Subscriber) error {
	sub.Touch(time.Now())
	return r.c.replace(ctx, sub.ID, sub)
}

func (r *subscriberRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.c.deleteByID(ctx, id)
}

func (r *subscriberRepository) List(ctx context.Context, filter model.SubscriberFilter) ([]*model.Subscriber, int64, error) {
	q := bson.M{}
	if filter.Active != nil {
		q["active"] = *filter.Active
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q["email"] = containsFold(s)
	}
	subs := []*model.Subscriber{}
	total, err := r.c.page(ctx, q, newestFirst, filter.ListParams, &subs)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *subscriberRepository) ActiveEmails(ctx context.Context) ([]string, error) {
	var subs []struct {
		Email string `bson:"email"`
	}
	opts := options.Find().SetProjection(bson.M{"email": 1})
	if err := r.c.find(ctx, bson.M{"active": true}, &subs, opts); err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(subs))
	for _, s := range subs {
		emails = append(emails, s.Email)
	}
	return emails, nil
}
