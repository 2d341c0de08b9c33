package appointment

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
)

type Service struct {
	repo     repository.AppointmentRepository
	doctors  repository.DoctorRepository
	notifier notification.Service
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, doctors repository.DoctorRepository, notifier notification.Service) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		notifier: notifier,
		now:      time.Now,
	}
}

// Book stores a pending appointment, then alerts staff and acknowledges the
// patient. Neither side effect can fail the booking.
func (s *Service) Book(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	a := &model.Appointment{
		PatientName: strings.TrimSpace(req.PatientName),
		ParentName:  strings.TrimSpace(req.ParentName),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Department:  strings.TrimSpace(req.Department),
		Date:        req.Date,
		Time:        req.Time,
		Message:     strings.TrimSpace(req.Message),
		Status:      model.AppointmentStatusPending,
	}

	if req.DoctorID != "" {
		id, err := primitive.ObjectIDFromHex(req.DoctorID)
		if err != nil {
			return nil, apperrors.BadRequest("Invalid doctor id", err)
		}
		doctor, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.BadRequest("Selected doctor does not exist", err)
			}
			return nil, apperrors.Internal(err)
		}
		a.DoctorID = &doctor.ID
		a.DoctorName = doctor.Name.En
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperrors.Internal(err)
	}

	booked := *a
	s.notifier.Go(notification.KindAppointmentAlert, func(ctx context.Context) {
		_ = s.notifier.Alert(ctx, notification.KindAppointmentAlert, alertText(&booked))
		if booked.Email != "" {
			_ = s.notifier.Email(ctx, notification.KindAppointmentReceived,
				email.AppointmentReceived(booked.Email, details(&booked)))
		}
	})

	return a, nil
}

func (s *Service) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, int64, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, id primitive.ObjectID) (*model.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}

	now := s.now()
	a.Status = model.AppointmentStatusConfirmed
	a.ConfirmedAt = &now
	a.CancelReason = ""
	a.CancelledAt = nil
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}

	s.notifyPatient(a, notification.KindAppointmentConfirmed, email.AppointmentConfirmed)
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*model.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}

	now := s.now()
	a.Status = model.AppointmentStatusCancelled
	a.CancelReason = strings.TrimSpace(reason)
	a.CancelledAt = &now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}

	s.notifyPatient(a, notification.KindAppointmentCancelled, email.AppointmentCancelled)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError("Appointment", err)
	}
	return a, nil
}

func (s *Service) notifyPatient(a *model.Appointment, kind string, build func(string, email.AppointmentDetails) email.Message) {
	if a.Email == "" {
		return
	}
	to, d := a.Email, details(a)
	s.notifier.Go(kind, func(ctx context.Context) {
		_ = s.notifier.Email(ctx, kind, build(to, d))
	})
}

func details(a *model.Appointment) email.AppointmentDetails {
	return email.AppointmentDetails{
		PatientName: a.PatientName,
		DoctorName:  a.DoctorName,
		Department:  a.Department,
		Date:        a.Date,
		Time:        a.Time,
		Phone:       a.Phone,
		Email:       a.Email,
		Message:     a.Message,
		Reason:      a.CancelReason,
	}
}

func alertText(a *model.Appointment) string {
	var b strings.Builder
	b.WriteString("<b>New appointment request</b>\n")
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, html.EscapeString(value))
		}
	}
	line("Patient", a.PatientName)
	line("Parent", a.ParentName)
	line("Phone", a.Phone)
	line("Email", a.Email)
	line("Doctor", a.DoctorName)
	line("Department", a.Department)
	line("Date", a.Date+" "+a.Time)
	line("Message", a.Message)
	return b.String()
}
