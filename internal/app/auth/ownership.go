package auth

import (
	"context"
	"errors"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// ResourceKind identifies the entity type an authorization target refers to.
type ResourceKind string

const (
	KindNone       ResourceKind = ""
	KindCourse     ResourceKind = "course"
	KindAssignment ResourceKind = "assignment"
	KindSubmission ResourceKind = "submission"
	KindUser       ResourceKind = "user"
)

// CourseReader reads courses by id.
type CourseReader interface {
	GetByID(ctx context.Context, id int64) (*models.Course, error)
}

// AssignmentReader reads assignments by id.
type AssignmentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
}

// SubmissionReader reads submissions by id.
type SubmissionReader interface {
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
}

// Chain is the resolved ownership path of a resource. Fields below the
// resolved kind are zero.
type Chain struct {
	CourseID     int64
	InstructorID int64
	AssignmentID int64
	SubmissionID int64
	StudentID    int64
}

// OwnershipResolver walks Submission -> Assignment -> Course -> instructorId.
// Every call reads the store; nothing is cached.
type OwnershipResolver struct {
	courses     CourseReader
	assignments AssignmentReader
	submissions SubmissionReader
}

// NewOwnershipResolver creates a new OwnershipResolver
func NewOwnershipResolver(courses CourseReader, assignments AssignmentReader, submissions SubmissionReader) *OwnershipResolver {
	return &OwnershipResolver{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
	}
}

// OwnerOf returns the instructorId controlling the resource.
func (r *OwnershipResolver) OwnerOf(ctx context.Context, kind ResourceKind, id int64) (int64, error) {
	chain, err := r.Resolve(ctx, kind, id)
	if err != nil {
		return 0, err
	}
	return chain.InstructorID, nil
}

// Resolve returns the full ownership chain of the resource. A missing hop
// anywhere on the path is reported as the not-found error of the requested kind.
func (r *OwnershipResolver) Resolve(ctx context.Context, kind ResourceKind, id int64) (*Chain, error) {
	switch kind {
	case KindCourse:
		return r.courseChain(ctx, id, apperrors.ErrCourseNotFound)
	case KindAssignment:
		return r.assignmentChain(ctx, id, apperrors.ErrAssignmentNotFound)
	case KindSubmission:
		sub, err := r.submissions.GetByID(ctx, id)
		if err != nil {
			return nil, notFoundAs(err, apperrors.ErrSubmissionNotFound)
		}
		chain, err := r.assignmentChain(ctx, sub.AssignmentID, apperrors.ErrSubmissionNotFound)
		if err != nil {
			return nil, err
		}
		chain.SubmissionID = sub.ID
		chain.StudentID = sub.StudentID
		return chain, nil
	default:
		return nil, apperrors.NewBadRequestError("resource kind has no owner: " + string(kind))
	}
}

func (r *OwnershipResolver) assignmentChain(ctx context.Context, id int64, notFound error) (*Chain, error) {
	a, err := r.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, notFound)
	}
	chain, err := r.courseChain(ctx, a.CourseID, notFound)
	if err != nil {
		return nil, err
	}
	chain.AssignmentID = a.ID
	return chain, nil
}

func (r *OwnershipResolver) courseChain(ctx context.Context, id int64, notFound error) (*Chain, error) {
	c, err := r.courses.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, notFound)
	}
	return &Chain{CourseID: c.ID, InstructorID: c.InstructorID}, nil
}

// notFoundAs replaces any not-found error with target and passes other errors through.
func notFoundAs(err, target error) error {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return target
	}
	return err
}
