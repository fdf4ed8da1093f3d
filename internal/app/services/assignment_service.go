package services

import (
	"context"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// AssignmentService defines the interface for assignment operations
type AssignmentService interface {
	CreateAssignment(ctx context.Context, caller auth.Identity, req *dto.CreateAssignmentRequest) (*models.Assignment, error)
	GetAssignment(ctx context.Context, caller auth.Identity, id int64) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, caller auth.Identity, id int64) error
}

// assignmentServiceImpl implements AssignmentService
type assignmentServiceImpl struct {
	assignmentRepo repositories.IAssignmentRepository
	authzService   *auth.AuthorizationService
	blobs          filestorage.BlobStore
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(assignmentRepo repositories.IAssignmentRepository, authzService *auth.AuthorizationService, blobs filestorage.BlobStore) AssignmentService {
	return &assignmentServiceImpl{
		assignmentRepo: assignmentRepo,
		authzService:   authzService,
		blobs:          blobs,
	}
}

// CreateAssignment creates an assignment in a course the caller owns
func (s *assignmentServiceImpl) CreateAssignment(ctx context.Context, caller auth.Identity, req *dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionCreateAssignment, auth.CourseTarget(req.CourseID)); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		Due:         req.Due.UTC(),
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// GetAssignment retrieves an assignment by ID
func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, caller auth.Identity, id int64) (*models.Assignment, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionReadAssignment, auth.AssignmentTarget(id)); err != nil {
		return nil, err
	}
	return s.assignmentRepo.GetByID(ctx, id)
}

// UpdateAssignment applies a partial update. Moving the assignment to another
// course needs the same permission on the destination course.
func (s *assignmentServiceImpl) UpdateAssignment(ctx context.Context, caller auth.Identity, id int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authzService.Authorize(ctx, caller, auth.ActionUpdateAssignment, auth.AssignmentTarget(id)); err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return assignment, nil
	}

	if req.CourseID != nil && *req.CourseID != assignment.CourseID {
		if err := s.authzService.Authorize(ctx, caller, auth.ActionUpdateAssignment, auth.CourseTarget(*req.CourseID)); err != nil {
			return nil, err
		}
		assignment.CourseID = *req.CourseID
	}
	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Description != nil {
		assignment.Description = *req.Description
	}
	if req.Points != nil {
		assignment.Points = *req.Points
	}
	if req.Due != nil {
		assignment.Due = req.Due.UTC()
	}

	if err := s.assignmentRepo.Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// DeleteAssignment deletes an assignment and its submissions, then removes
// the submission files.
func (s *assignmentServiceImpl) DeleteAssignment(ctx context.Context, caller auth.Identity, id int64) error {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionDeleteAssignment, auth.AssignmentTarget(id)); err != nil {
		return err
	}

	paths, err := s.assignmentRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	removeBlobs(ctx, s.blobs, paths)
	return nil
}
