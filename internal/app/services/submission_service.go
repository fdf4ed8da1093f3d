package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/events"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// Upload is a file handed in for an assignment.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// StudentID names the submitting student; zero means the caller. Any
	// other student is forbidden.
	StudentID int64
}

// SubmissionCreatedEvent is the payload of events.SubmissionCreated.
type SubmissionCreatedEvent struct {
	SubmissionID int64     `json:"submissionId"`
	AssignmentID int64     `json:"assignmentId"`
	StudentID    int64     `json:"studentId"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubmissionGradedEvent is the payload of events.SubmissionGraded.
type SubmissionGradedEvent struct {
	SubmissionID int64   `json:"submissionId"`
	AssignmentID int64   `json:"assignmentId"`
	StudentID    int64   `json:"studentId"`
	Grade        float64 `json:"grade"`
}

// SubmissionService defines the interface for submission operations
type SubmissionService interface {
	ListSubmissions(ctx context.Context, caller auth.Identity, assignmentID int64, page int, studentID *int64) (*dto.SubmissionListResponse, error)
	CreateSubmission(ctx context.Context, caller auth.Identity, assignmentID int64, upload Upload) (*models.Submission, error)
	UpdateGrade(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateGradeRequest) (*models.Submission, error)
	OpenSubmissionFile(ctx context.Context, caller auth.Identity, id int64) (*models.Submission, io.ReadCloser, error)
}

// submissionServiceImpl implements SubmissionService
type submissionServiceImpl struct {
	submissionRepo repositories.ISubmissionRepository
	authzService   *auth.AuthorizationService
	blobs          filestorage.BlobStore
	publisher      events.Publisher
	limits         Limits
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	submissionRepo repositories.ISubmissionRepository,
	authzService *auth.AuthorizationService,
	blobs filestorage.BlobStore,
	publisher events.Publisher,
	limits Limits,
) SubmissionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &submissionServiceImpl{
		submissionRepo: submissionRepo,
		authzService:   authzService,
		blobs:          blobs,
		publisher:      publisher,
		limits:         limits,
	}
}

// ListSubmissions returns one fixed-size page of an assignment's submissions
func (s *submissionServiceImpl) ListSubmissions(ctx context.Context, caller auth.Identity, assignmentID int64, page int, studentID *int64) (*dto.SubmissionListResponse, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionListSubmissions, auth.AssignmentTarget(assignmentID)); err != nil {
		return nil, err
	}

	req := helpers.FixedPageRequest(page, s.limits.SubmissionPageSize)
	filter := models.SubmissionFilter{AssignmentID: assignmentID, StudentID: studentID}
	submissions, total, err := s.submissionRepo.List(ctx, filter, req)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}

	return &dto.SubmissionListResponse{
		Submissions: submissions,
		Pagination:  helpers.NewPaginationInfo(total, req),
	}, nil
}

func (s *submissionServiceImpl) checkUpload(u Upload) error {
	if u.Body == nil {
		return apperrors.NewValidationError("file", "file is required")
	}
	if !filestorage.IsAllowedContentType(u.ContentType) {
		return apperrors.NewCustomError(apperrors.ErrValidationFailed, "unsupported content type: "+u.ContentType).
			WithField("file").
			WithDetails(map[string]interface{}{"allowedContentTypes": filestorage.AllowedContentTypes()})
	}
	if u.Size > s.limits.MaxUploadBytes {
		return s.tooLarge()
	}
	if u.StudentID < 0 {
		return apperrors.NewValidationError("studentId", "studentId must be positive")
	}
	return nil
}

func (s *submissionServiceImpl) tooLarge() error {
	return apperrors.NewCustomError(apperrors.ErrValidationFailed, fmt.Sprintf("file exceeds %d bytes", s.limits.MaxUploadBytes)).
		WithField("file").
		WithDetails(map[string]interface{}{"maxBytes": s.limits.MaxUploadBytes})
}

// maxFilenameChars matches the VARCHAR(255) filename column.
const maxFilenameChars = 255

// cleanFilename keeps only the base name the client sent, as valid UTF-8 of
// at most maxFilenameChars characters. Long names keep their extension.
func cleanFilename(name string) string {
	name = strings.ToValidUTF8(strings.ReplaceAll(name, "\x00", ""), "")
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if utf8.RuneCountInString(name) <= maxFilenameChars {
		return name
	}

	ext := filepath.Ext(name)
	extLen := utf8.RuneCountInString(ext)
	if extLen >= maxFilenameChars {
		ext, extLen = "", 0
	}
	base := []rune(strings.TrimSuffix(name, ext))
	return string(base[:maxFilenameChars-extLen]) + ext
}

// CreateSubmission stores the uploaded file and records the submission. The
// file is written first; if the row cannot be created the file is removed.
func (s *submissionServiceImpl) CreateSubmission(ctx context.Context, caller auth.Identity, assignmentID int64, upload Upload) (*models.Submission, error) {
	if err := s.checkUpload(upload); err != nil {
		return nil, err
	}

	target := auth.AssignmentTarget(assignmentID)
	target.StudentID = upload.StudentID
	if err := s.authzService.Authorize(ctx, caller, auth.ActionCreateSubmission, target); err != nil {
		return nil, err
	}

	studentID := upload.StudentID
	if studentID == 0 {
		studentID = caller.UserID
	}

	contentType := filestorage.NormalizeContentType(upload.ContentType)
	name, err := filestorage.GenerateName(contentType)
	if err != nil {
		return nil, err
	}

	// one byte over the limit is enough to reject a lying Content-Length
	body := io.LimitReader(upload.Body, s.limits.MaxUploadBytes+1)
	size, err := s.blobs.Save(ctx, name, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("error storing submission file: %w", err)
	}
	if size > s.limits.MaxUploadBytes {
		removeBlobs(ctx, s.blobs, []string{name})
		return nil, s.tooLarge()
	}

	submission := &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Filename:     cleanFilename(upload.Filename),
		StoragePath:  name,
		ContentType:  contentType,
		FileSize:     size,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		removeBlobs(ctx, s.blobs, []string{name})
		return nil, err
	}

	events.Notify(ctx, s.publisher, events.SubmissionCreated, SubmissionCreatedEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Timestamp:    submission.Timestamp,
	})
	return submission, nil
}

// UpdateGrade sets the grade of a submission
func (s *submissionServiceImpl) UpdateGrade(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateGradeRequest) (*models.Submission, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionUpdateSubmissionGrade, auth.SubmissionTarget(id)); err != nil {
		return nil, err
	}

	submission, err := s.submissionRepo.UpdateGrade(ctx, id, *req.Grade)
	if err != nil {
		return nil, err
	}

	events.Notify(ctx, s.publisher, events.SubmissionGraded, SubmissionGradedEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Grade:        *req.Grade,
	})
	return submission, nil
}

// OpenSubmissionFile returns the submission and a reader for its file. The
// caller must close the reader.
func (s *submissionServiceImpl) OpenSubmissionFile(ctx context.Context, caller auth.Identity, id int64) (*models.Submission, io.ReadCloser, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionDownloadSubmissionFile, auth.SubmissionTarget(id)); err != nil {
		return nil, nil, err
	}

	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.blobs.Open(ctx, submission.StoragePath)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("submissionID", id).Msg("Submission file unavailable")
		return nil, nil, err
	}
	return submission, file, nil
}
