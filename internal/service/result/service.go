package result

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	apperrors "github.com/jwalitptl/pediatric-clinic-api/pkg/errors"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

const (
	MaxFiles       = 5
	MaxFileSize    = 10 << 20
	fileFolder     = "results"
	resultResource = "Result"
)

// Download is an open result file ready to stream.
type Download struct {
	File   *model.ResultFile
	Object *storage.Object
}

type Service struct {
	results   repository.ResultRepository
	users     repository.UserRepository
	assets    storage.Store
	notifier  notification.Service
	portalURL string
	now       func() time.Time
}

func NewService(results repository.ResultRepository, users repository.UserRepository,
	assets storage.Store, notifier notification.Service, frontendURL string) *Service {
	return &Service{
		results:   results,
		users:     users,
		assets:    assets,
		notifier:  notifier,
		portalURL: strings.TrimRight(frontendURL, "/") + "/my-results",
		now:       time.Now,
	}
}

// Create uploads the files and stores a result for an existing patient
// account. Files already uploaded are removed if a later step fails.
func (s *Service) Create(ctx context.Context, uploader primitive.ObjectID, req *model.CreateResultRequest, files []storage.Upload) (*model.Result, error) {
	if len(files) == 0 {
		return nil, apperrors.BadRequest("At least one file is required", nil)
	}
	if len(files) > MaxFiles {
		return nil, apperrors.BadRequest(fmt.Sprintf("At most %d files are allowed", MaxFiles), nil)
	}
	for _, f := range files {
		if f.Size > MaxFileSize {
			return nil, apperrors.BadRequest(fmt.Sprintf("%s exceeds the 10MB limit", f.FileName), nil)
		}
	}

	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid patient id", err)
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest("Patient not found", err)
		}
		return nil, apperrors.Internal(err)
	}
	if patient.Role != model.RoleUser {
		return nil, apperrors.BadRequest("Results can only be attached to patient accounts", nil)
	}

	r := &model.Result{
		PatientID:   patient.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		UploadedBy:  uploader,
	}
	for _, f := range files {
		asset, err := storage.Put(ctx, s.assets, fileFolder, f)
		if err != nil {
			s.dropFiles(ctx, r.Files)
			return nil, apperrors.Internal(fmt.Errorf("upload result file: %w", err))
		}
		r.Files = append(r.Files, model.ResultFile{
			URL:      asset.URL,
			PublicID: asset.Key,
			FileName: f.FileName,
			MimeType: asset.ContentType,
			Size:     asset.Size,
		})
	}

	if err := s.results.Create(ctx, r); err != nil {
		s.dropFiles(ctx, r.Files)
		return nil, apperrors.Internal(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, filter model.ResultFilter) ([]*model.Result, int64, error) {
	items, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*model.Result, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	return r, nil
}

// ForPatient lists only the caller's own results.
func (s *Service) ForPatient(ctx context.Context, patientID primitive.ObjectID) ([]*model.Result, error) {
	items, err := s.results.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

// MarkRead flags a result as read. Results of other patients look missing.
func (s *Service) MarkRead(ctx context.Context, patientID, id primitive.ObjectID) (*model.Result, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	if r.PatientID != patientID {
		return nil, apperrors.NotFound(resultResource, nil)
	}
	if r.IsRead {
		return r, nil
	}

	now := s.now()
	r.IsRead = true
	r.ReadAt = &now
	if err := s.results.Update(ctx, r); err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	return r, nil
}

// OpenFile resolves a file by public id and checks the caller may read it:
// staff with result access may read any file, patients only their own.
func (s *Service) OpenFile(ctx context.Context, caller *model.User, publicID string) (*Download, error) {
	key, err := storage.CleanKey(publicID)
	if err != nil {
		return nil, apperrors.NotFound("File", err)
	}

	r, err := s.results.GetByFilePublicID(ctx, key)
	if err != nil {
		return nil, repository.AsAppError("File", err)
	}
	if !caller.Can(model.PermResultManagement) && r.PatientID != caller.ID {
		return nil, apperrors.Forbidden("You do not have access to this file")
	}

	file, ok := r.File(key)
	if !ok {
		return nil, apperrors.NotFound("File", nil)
	}

	obj, err := s.assets.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NotFound("File", err)
		}
		return nil, apperrors.Internal(err)
	}
	if file.MimeType != "" {
		obj.ContentType = file.MimeType
	}
	return &Download{File: file, Object: obj}, nil
}

// SendEmail tells the patient the result is available. Unlike other
// notifications the caller asked for this one, so failure is reported.
func (s *Service) SendEmail(ctx context.Context, id primitive.ObjectID) (*model.Result, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	patient, err := s.users.GetByID(ctx, r.PatientID)
	if err != nil {
		return nil, repository.AsAppError("Patient", err)
	}

	msg := email.ResultReady(patient.Email, patient.Name, r.Title, s.portalURL)
	if err := s.notifier.Email(ctx, notification.KindResultReady, msg); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("send result email: %w", err))
	}

	now := s.now()
	r.EmailSent = true
	r.EmailSentAt = &now
	if err := s.results.Update(ctx, r); err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*model.Result, error) {
	r, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	if err := s.results.Delete(ctx, id); err != nil {
		return nil, repository.AsAppError(resultResource, err)
	}
	s.dropFiles(ctx, r.Files)
	return r, nil
}

func (s *Service) dropFiles(ctx context.Context, files []model.ResultFile) {
	for _, f := range files {
		if err := s.assets.Delete(ctx, f.PublicID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("public_id", f.PublicID).Msg("failed to delete result file")
		}
	}
}
