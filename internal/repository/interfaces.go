package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		GetByRefreshToken(ctx context.Context, token string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.UserFilter) ([]*model.User, int64, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, params model.ListParams) ([]*model.Doctor, int64, error)
	}

	DepartmentRepository interface {
		Create(ctx context.Context, dept *model.Department) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Department, error)
		Update(ctx context.Context, dept *model.Department) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context) ([]*model.Department, error)
	}

	VideoRepository interface {
		Create(ctx context.Context, video *model.Video) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Video, error)
		Update(ctx context.Context, video *model.Video) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.VideoFilter) ([]*model.Video, int64, error)
	}

	TestimonialRepository interface {
		Create(ctx context.Context, t *model.Testimonial) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Testimonial, error)
		UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*model.Testimonial, error)
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.TestimonialFilter) ([]*model.Testimonial, int64, error)
	}

	SubscriberRepository interface {
		Create(ctx context.Context, sub *model.Subscriber) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Subscriber, error)
		GetByEmail(ctx context.Context, email string) (*model.Subscriber, error)
		Update(ctx context.Context, sub *model.Subscriber) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.SubscriberFilter) ([]*model.Subscriber, int64, error)
		ActiveEmails(ctx context.Context) ([]string, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int64, error)
	}

	ResultRepository interface {
		Create(ctx context.Context, result *model.Result) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.Result, error)
		GetByFilePublicID(ctx context.Context, publicID string) (*model.Result, error)
		Update(ctx context.Context, result *model.Result) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.ResultFilter) ([]*model.Result, int64, error)
		ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]*model.Result, error)
		DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		GetByID(ctx context.Context, id primitive.ObjectID) (*model.AuditLog, error)
		List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error)
		Stats(ctx context.Context, filter model.AuditFilter) (*model.AuditStats, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}
)

// AsAppError maps repository sentinels onto API errors for resource.
func AsAppError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound(resource, err)
	case errors.Is(err, ErrDuplicate):
		return apperrors.BadRequest(resource+" already exists", err)
	default:
		return apperrors.Internal(err)
	}
}

// Set bundles one implementation of every repository.
type Set struct {
	Users        UserRepository
	Doctors      DoctorRepository
	Departments  DepartmentRepository
	Videos       VideoRepository
	Testimonials TestimonialRepository
	Subscribers  SubscriberRepository
	Appointments AppointmentRepository
	Results      ResultRepository
	Audit        AuditRepository
}
