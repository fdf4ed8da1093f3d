package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/export"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// CourseService defines the interface for course operations
type CourseService interface {
	CreateCourse(ctx context.Context, caller auth.Identity, req *dto.CreateCourseRequest) (*models.Course, error)
	GetCourse(ctx context.Context, caller auth.Identity, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, caller auth.Identity, filter models.CourseFilter, page, pageSize int) (*dto.CourseListResponse, error)
	UpdateCourse(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateCourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, caller auth.Identity, id int64) error
	GetRoster(ctx context.Context, caller auth.Identity, id int64) (*dto.RosterResponse, error)
	UpdateEnrollment(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateEnrollmentRequest) (models.EnrollmentDelta, error)
	ExportRoster(ctx context.Context, caller auth.Identity, id int64, format export.Format, w io.Writer) error
	ListCourseAssignments(ctx context.Context, caller auth.Identity, id int64) ([]models.Assignment, error)
}

// courseServiceImpl implements CourseService
type courseServiceImpl struct {
	courseRepo     repositories.ICourseRepository
	userRepo       repositories.IUserRepository
	enrollmentRepo repositories.IEnrollmentRepository
	assignmentRepo repositories.IAssignmentRepository
	reconciler     *EnrollmentReconciler
	authzService   *auth.AuthorizationService
	blobs          filestorage.BlobStore
	limits         Limits
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courseRepo repositories.ICourseRepository,
	userRepo repositories.IUserRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	assignmentRepo repositories.IAssignmentRepository,
	reconciler *EnrollmentReconciler,
	authzService *auth.AuthorizationService,
	blobs filestorage.BlobStore,
	limits Limits,
) CourseService {
	return &courseServiceImpl{
		courseRepo:     courseRepo,
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
		assignmentRepo: assignmentRepo,
		reconciler:     reconciler,
		authzService:   authzService,
		blobs:          blobs,
		limits:         limits,
	}
}

// checkInstructor verifies that id references a user who may teach.
func (s *courseServiceImpl) checkInstructor(ctx context.Context, id int64) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.NewValidationError("instructorId", "instructor does not exist")
		}
		return fmt.Errorf("error finding instructor: %w", err)
	}
	if !user.RoleType.CanTeach() {
		return apperrors.NewValidationError("instructorId", "user cannot teach a course")
	}
	return nil
}

// CreateCourse creates a new course. Admin only.
func (s *courseServiceImpl) CreateCourse(ctx context.Context, caller auth.Identity, req *dto.CreateCourseRequest) (*models.Course, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionCreateCourse, auth.Target{}); err != nil {
		return nil, err
	}
	if err := s.checkInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}

	course := &models.Course{
		Subject:      req.Subject,
		Number:       req.Number,
		Title:        req.Title,
		Term:         req.Term,
		InstructorID: req.InstructorID,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse retrieves a course by ID
func (s *courseServiceImpl) GetCourse(ctx context.Context, caller auth.Identity, id int64) (*models.Course, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionReadCourse, auth.CourseTarget(id)); err != nil {
		return nil, err
	}
	return s.courseRepo.GetByID(ctx, id)
}

// ListCourses returns one page of courses matching filter
func (s *courseServiceImpl) ListCourses(ctx context.Context, caller auth.Identity, filter models.CourseFilter, page, pageSize int) (*dto.CourseListResponse, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionListCourses, auth.Target{}); err != nil {
		return nil, err
	}

	req := helpers.NewPageRequest(page, pageSize, s.limits.DefaultPageSize, s.limits.MaxPageSize)
	courses, total, err := s.courseRepo.List(ctx, filter, req)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}

	return &dto.CourseListResponse{
		Courses:    courses,
		Pagination: helpers.NewPaginationInfo(total, req),
	}, nil
}

// UpdateCourse applies a partial update. Only admins may move a course to
// another instructor.
func (s *courseServiceImpl) UpdateCourse(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateCourseRequest) (*models.Course, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionUpdateCourse, auth.CourseTarget(id)); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return course, nil
	}

	if req.InstructorID != nil && *req.InstructorID != course.InstructorID {
		if !caller.IsAdmin() {
			return nil, apperrors.NewForbiddenError("only an admin may reassign a course")
		}
		if err := s.checkInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
		course.InstructorID = *req.InstructorID
	}
	if req.Subject != nil {
		course.Subject = *req.Subject
	}
	if req.Number != nil {
		course.Number = *req.Number
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Term != nil {
		course.Term = *req.Term
	}

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse deletes a course with everything below it, then removes the
// files of its submissions.
func (s *courseServiceImpl) DeleteCourse(ctx context.Context, caller auth.Identity, id int64) error {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionDeleteCourse, auth.CourseTarget(id)); err != nil {
		return err
	}

	paths, err := s.courseRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	removeBlobs(ctx, s.blobs, paths)
	return nil
}

// GetRoster lists the students enrolled in a course
func (s *courseServiceImpl) GetRoster(ctx context.Context, caller auth.Identity, id int64) (*dto.RosterResponse, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionViewRoster, auth.CourseTarget(id)); err != nil {
		return nil, err
	}

	students, err := s.enrollmentRepo.ListRoster(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error listing roster: %w", err)
	}
	return &dto.RosterResponse{CourseID: id, Students: students}, nil
}

// UpdateEnrollment reconciles the roster with the requested additions and removals.
func (s *courseServiceImpl) UpdateEnrollment(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateEnrollmentRequest) (models.EnrollmentDelta, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return models.EnrollmentDelta{}, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionManageEnrollment, auth.CourseTarget(id)); err != nil {
		return models.EnrollmentDelta{}, err
	}
	return s.reconciler.Reconcile(ctx, id, req.Add, req.Remove)
}

// ExportRoster writes the roster to w in the given format
func (s *courseServiceImpl) ExportRoster(ctx context.Context, caller auth.Identity, id int64, format export.Format, w io.Writer) error {
	roster, err := s.GetRoster(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := export.WriteRoster(w, format, roster.Students); err != nil {
		return fmt.Errorf("error exporting roster: %w", err)
	}
	return nil
}

// ListCourseAssignments lists the assignments of a course. Like the course
// itself, the list is public.
func (s *courseServiceImpl) ListCourseAssignments(ctx context.Context, caller auth.Identity, id int64) ([]models.Assignment, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionReadCourse, auth.CourseTarget(id)); err != nil {
		return nil, err
	}
	return s.assignmentRepo.ListByCourse(ctx, id)
}
