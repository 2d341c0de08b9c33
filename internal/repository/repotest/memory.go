// Package repotest provides in-memory repositories for handler and service tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
)

// table is a concurrency-safe map of documents that hands out copies.
type table[T any] struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]T
	base func(*T) *model.Base
}

func newTable[T any](base func(*T) *model.Base) *table[T] {
	return &table[T]{rows: map[primitive.ObjectID]T{}, base: base}
}

func (t *table[T]) insert(doc *T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base(doc).Touch(time.Now())
	t.rows[t.base(doc).ID] = *doc
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (t *table[T]) replace(doc *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.base(doc).ID
	if _, ok := t.rows[id]; !ok {
		return repository.ErrNotFound
	}
	t.base(doc).Touch(time.Now())
	t.rows[id] = *doc
	return nil
}

func (t *table[T]) delete(id primitive.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// all returns matching rows, newest first.
func (t *table[T]) all(match func(*T) bool) []*T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := []*T{}
	for _, row := range t.rows {
		r := row
		if match == nil || match(&r) {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := t.base(out[i]), t.base(out[j])
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.Hex() > b.ID.Hex()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func paginate[T any](rows []*T, params model.ListParams) ([]*T, int64) {
	params.Normalize()
	total := int64(len(rows))
	start := int(params.Skip())
	if start >= len(rows) {
		return []*T{}, total
	}
	end := start + params.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total
}

func contains(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(term)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Users

type UserRepository struct {
	t *table[model.User]
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{t: newTable(func(u *model.User) *model.Base { return &u.Base })}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	if _, err := r.GetByEmail(context.Background(), user.Email); err == nil {
		return repository.ErrDuplicate
	}
	r.t.insert(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.t.get(id)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	rows := r.t.all(func(u *model.User) bool { return u.Email == email })
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (r *UserRepository) GetByRefreshToken(_ context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	rows := r.t.all(func(u *model.User) bool { return u.RefreshToken == token })
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	return r.t.replace(user)
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	user, err := r.t.get(id)
	if err != nil {
		return err
	}
	user.RefreshToken = token
	return r.t.replace(user)
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *UserRepository) List(_ context.Context, filter model.UserFilter) ([]*model.User, int64, error) {
	rows := r.t.all(func(u *model.User) bool {
		if filter.Role != "" && u.Role != filter.Role {
			return false
		}
		if filter.Search != "" {
			return contains(u.Name, filter.Search) || contains(u.Email, filter.Search) || contains(u.Phone, filter.Search)
		}
		return true
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

// Doctors

type DoctorRepository struct {
	t *table[model.Doctor]
}

var _ repository.DoctorRepository = (*DoctorRepository)(nil)

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{t: newTable(func(d *model.Doctor) *model.Base { return &d.Base })}
}

func (r *DoctorRepository) Create(_ context.Context, d *model.Doctor) error {
	r.t.insert(d)
	return nil
}

func (r *DoctorRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	return r.t.get(id)
}

func (r *DoctorRepository) Update(_ context.Context, d *model.Doctor) error {
	return r.t.replace(d)
}

func (r *DoctorRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *DoctorRepository) List(_ context.Context, params model.ListParams) ([]*model.Doctor, int64, error) {
	rows := r.t.all(func(d *model.Doctor) bool {
		return params.Search == "" || contains(d.Name.En, params.Search) || contains(d.Field.En, params.Search)
	})
	page, total := paginate(rows, params)
	return page, total, nil
}

// Departments

type DepartmentRepository struct {
	t *table[model.Department]
}

var _ repository.DepartmentRepository = (*DepartmentRepository)(nil)

func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{t: newTable(func(d *model.Department) *model.Base { return &d.Base })}
}

func (r *DepartmentRepository) Create(_ context.Context, d *model.Department) error {
	r.t.insert(d)
	return nil
}

func (r *DepartmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Department, error) {
	return r.t.get(id)
}

func (r *DepartmentRepository) Update(_ context.Context, d *model.Department) error {
	return r.t.replace(d)
}

func (r *DepartmentRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *DepartmentRepository) List(_ context.Context) ([]*model.Department, error) {
	rows := r.t.all(nil)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	return rows, nil
}

// Videos

type VideoRepository struct {
	t *table[model.Video]
}

var _ repository.VideoRepository = (*VideoRepository)(nil)

func NewVideoRepository() *VideoRepository {
	return &VideoRepository{t: newTable(func(v *model.Video) *model.Base { return &v.Base })}
}

func (r *VideoRepository) Create(_ context.Context, v *model.Video) error {
	r.t.insert(v)
	return nil
}

func (r *VideoRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Video, error) {
	return r.t.get(id)
}

func (r *VideoRepository) Update(_ context.Context, v *model.Video) error {
	return r.t.replace(v)
}

func (r *VideoRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *VideoRepository) List(_ context.Context, filter model.VideoFilter) ([]*model.Video, int64, error) {
	rows := r.t.all(func(v *model.Video) bool {
		if filter.Category != "" && v.Category != filter.Category {
			return false
		}
		return filter.Search == "" || contains(v.Title.En, filter.Search)
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

// Testimonials

type TestimonialRepository struct {
	t *table[model.Testimonial]
}

var _ repository.TestimonialRepository = (*TestimonialRepository)(nil)

func NewTestimonialRepository() *TestimonialRepository {
	return &TestimonialRepository{t: newTable(func(t *model.Testimonial) *model.Base { return &t.Base })}
}

func (r *TestimonialRepository) Create(_ context.Context, t *model.Testimonial) error {
	r.t.insert(t)
	return nil
}

func (r *TestimonialRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Testimonial, error) {
	return r.t.get(id)
}

func (r *TestimonialRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) (*model.Testimonial, error) {
	t, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	t.Status = status
	if err := r.t.replace(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TestimonialRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *TestimonialRepository) List(_ context.Context, filter model.TestimonialFilter) ([]*model.Testimonial, int64, error) {
	rows := r.t.all(func(t *model.Testimonial) bool {
		return filter.Status == "" || t.Status == filter.Status
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

// Subscribers

type SubscriberRepository struct {
	t *table[model.Subscriber]
}

var _ repository.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{t: newTable(func(s *model.Subscriber) *model.Base { return &s.Base })}
}

func (r *SubscriberRepository) Create(ctx context.Context, s *model.Subscriber) error {
	s.Email = normalizeEmail(s.Email)
	if _, err := r.GetByEmail(ctx, s.Email); err == nil {
		return repository.ErrDuplicate
	}
	r.t.insert(s)
	return nil
}

func (r *SubscriberRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Subscriber, error) {
	return r.t.get(id)
}

func (r *SubscriberRepository) GetByEmail(_ context.Context, email string) (*model.Subscriber, error) {
	email = normalizeEmail(email)
	rows := r.t.all(func(s *model.Subscriber) bool { return s.Email == email })
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (r *SubscriberRepository) Update(_ context.Context, s *model.Subscriber) error {
	return r.t.replace(s)
}

func (r *SubscriberRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *SubscriberRepository) List(_ context.Context, filter model.SubscriberFilter) ([]*model.Subscriber, int64, error) {
	rows := r.t.all(func(s *model.Subscriber) bool {
		if filter.Active != nil && s.Active != *filter.Active {
			return false
		}
		return filter.Search == "" || contains(s.Email, filter.Search)
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

func (r *SubscriberRepository) ActiveEmails(_ context.Context) ([]string, error) {
	var emails []string
	for _, s := range r.t.all(func(s *model.Subscriber) bool { return s.Active }) {
		emails = append(emails, s.Email)
	}
	return emails, nil
}

// Appointments

type AppointmentRepository struct {
	t *table[model.Appointment]
}

var _ repository.AppointmentRepository = (*AppointmentRepository)(nil)

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{t: newTable(func(a *model.Appointment) *model.Base { return &a.Base })}
}

func (r *AppointmentRepository) Create(_ context.Context, a *model.Appointment) error {
	r.t.insert(a)
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Appointment, error) {
	return r.t.get(id)
}

func (r *AppointmentRepository) Update(_ context.Context, a *model.Appointment) error {
	return r.t.replace(a)
}

func (r *AppointmentRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *AppointmentRepository) List(_ context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int64, error) {
	rows := r.t.all(func(a *model.Appointment) bool {
		if filter.Status != "" && a.Status != filter.Status {
			return false
		}
		if filter.Date != "" && a.Date != filter.Date {
			return false
		}
		return filter.Search == "" || contains(a.PatientName, filter.Search) || contains(a.Phone, filter.Search)
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

// Results

type ResultRepository struct {
	t *table[model.Result]
}

var _ repository.ResultRepository = (*ResultRepository)(nil)

func NewResultRepository() *ResultRepository {
	return &ResultRepository{t: newTable(func(r *model.Result) *model.Base { return &r.Base })}
}

func (r *ResultRepository) Create(_ context.Context, res *model.Result) error {
	r.t.insert(res)
	return nil
}

func (r *ResultRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.Result, error) {
	return r.t.get(id)
}

func (r *ResultRepository) GetByFilePublicID(_ context.Context, publicID string) (*model.Result, error) {
	rows := r.t.all(func(res *model.Result) bool {
		_, ok := res.File(publicID)
		return ok
	})
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (r *ResultRepository) Update(_ context.Context, res *model.Result) error {
	return r.t.replace(res)
}

func (r *ResultRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.t.delete(id)
}

func (r *ResultRepository) List(_ context.Context, filter model.ResultFilter) ([]*model.Result, int64, error) {
	rows := r.t.all(func(res *model.Result) bool {
		if filter.PatientID != "" && res.PatientID.Hex() != filter.PatientID {
			return false
		}
		return filter.Search == "" || contains(res.Title, filter.Search)
	})
	page, total := paginate(rows, filter.ListParams)
	return page, total, nil
}

func (r *ResultRepository) ListByPatient(_ context.Context, patientID primitive.ObjectID) ([]*model.Result, error) {
	return r.t.all(func(res *model.Result) bool { return res.PatientID == patientID }), nil
}

func (r *ResultRepository) DeleteByPatient(_ context.Context, patientID primitive.ObjectID) (int64, error) {
	var n int64
	for _, res := range r.t.all(func(res *model.Result) bool { return res.PatientID == patientID }) {
		if err := r.t.delete(res.ID); err == nil {
			n++
		}
	}
	return n, nil
}

// Audit logs

type AuditRepository struct {
	mu   sync.RWMutex
	logs []model.AuditLog
}

var _ repository.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.logs = append(r.logs, *log)
	return nil
}

func (r *AuditRepository) GetByID(_ context.Context, id primitive.ObjectID) (*model.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.logs {
		if l.ID == id {
			log := l
			return &log, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AuditRepository) match(filter model.AuditFilter) []*model.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.AuditLog{}
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if filter.AdminID != "" && l.AdminID.Hex() != filter.AdminID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
			continue
		}
		if filter.From != nil && l.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !l.CreatedAt.Before(filter.To.AddDate(0, 0, 1)) {
			continue
		}
		if filter.Search != "" && !contains(l.Description, filter.Search) {
			continue
		}
		out = append(out, &l)
	}
	return out
}

func (r *AuditRepository) List(_ context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error) {
	page, total := paginate(r.match(filter), filter.ListParams)
	return page, total, nil
}

func (r *AuditRepository) Stats(_ context.Context, filter model.AuditFilter) (*model.AuditStats, error) {
	stats := &model.AuditStats{ByAction: map[string]int64{}, ByResourceType: map[string]int64{}}
	for _, l := range r.match(filter) {
		stats.Total++
		stats.ByAction[l.Action]++
		stats.ByResourceType[l.ResourceType]++
	}
	return stats, nil
}

func (r *AuditRepository) Cleanup(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	var n int64
	for _, l := range r.logs {
		if l.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.logs = kept
	return n, nil
}

// All returns every stored log, oldest first.
func (r *AuditRepository) All() []model.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.AuditLog(nil), r.logs...)
}

// Repositories bundles one of each fake.
type Repositories struct {
	Users        *UserRepository
	Doctors      *DoctorRepository
	Departments  *DepartmentRepository
	Videos       *VideoRepository
	Testimonials *TestimonialRepository
	Subscribers  *SubscriberRepository
	Appointments *AppointmentRepository
	Results      *ResultRepository
	Audit        *AuditRepository
}

func New() *Repositories {
	return &Repositories{
		Users:        NewUserRepository(),
		Doctors:      NewDoctorRepository(),
		Departments:  NewDepartmentRepository(),
		Videos:       NewVideoRepository(),
		Testimonials: NewTestimonialRepository(),
		Subscribers:  NewSubscriberRepository(),
		Appointments: NewAppointmentRepository(),
		Results:      NewResultRepository(),
		Audit:        NewAuditRepository(),
	}
}

// Set exposes the fakes through the repository interfaces.
func (r *Repositories) Set() *repository.Set {
	return &repository.Set{
		Users:        r.Users,
		Doctors:      r.Doctors,
		Departments:  r.Departments,
		Videos:       r.Videos,
		Testimonials: r.Testimonials,
		Subscribers:  r.Subscribers,
		Appointments: r.Appointments,
		Results:      r.Results,
		Audit:        r.Audit,
	}
}
