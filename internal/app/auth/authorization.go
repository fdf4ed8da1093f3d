package auth

import (
	"context"
	"errors"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// UserReader reads users by id.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// EnrollmentChecker answers whether a user is enrolled in a course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
}

// DecisionRecorder observes every authorization decision.
type DecisionRecorder interface {
	RecordDecision(action string, allowed bool, reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordDecision(string, bool, string) {}

// Target names what an action is applied to.
type Target struct {
	Kind ResourceKind
	ID   int64
	// Role is the requested role for ActionCreateUser.
	Role models.RoleType
	// StudentID is the author of a submission being created; the caller when zero.
	StudentID int64
}

func CourseTarget(id int64) Target     { return Target{Kind: KindCourse, ID: id} }
func AssignmentTarget(id int64) Target { return Target{Kind: KindAssignment, ID: id} }
func SubmissionTarget(id int64) Target { return Target{Kind: KindSubmission, ID: id} }
func UserTarget(id int64) Target       { return Target{Kind: KindUser, ID: id} }
func NewUserTarget(role models.RoleType) Target {
	return Target{Kind: KindNone, Role: role}
}

// AuthorizationService resolves the facts an action needs, asks Decide and
// turns a deny into an error. No store mutation happens here.
type AuthorizationService struct {
	users       UserReader
	enrollments EnrollmentChecker
	ownership   *OwnershipResolver
	recorder    DecisionRecorder
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(users UserReader, enrollments EnrollmentChecker, ownership *OwnershipResolver, recorder DecisionRecorder) *AuthorizationService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AuthorizationService{
		users:       users,
		enrollments: enrollments,
		ownership:   ownership,
		recorder:    recorder,
	}
}

// ResolveIdentity loads the caller's stored role. A user that no longer
// exists is unauthenticated regardless of what its token claims.
func (s *AuthorizationService) ResolveIdentity(ctx context.Context, userID int64) (Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return Anonymous, apperrors.NewUnauthenticatedError("user no longer exists")
		}
		return Anonymous, err
	}
	return Identity{UserID: user.ID, Role: user.RoleType}, nil
}

// Authorize returns nil when caller may perform action on target.
func (s *AuthorizationService) Authorize(ctx context.Context, caller Identity, action Action, target Target) error {
	_, err := s.AuthorizeChain(ctx, caller, action, target)
	return err
}

// AuthorizeChain is Authorize that also returns the resolved ownership chain,
// which is nil for targets without one.
func (s *AuthorizationService) AuthorizeChain(ctx context.Context, caller Identity, action Action, target Target) (*Chain, error) {
	if RequiresIdentity(action, target.Role) && !caller.IsAuthenticated() {
		return nil, s.finish(ctx, caller, action, deny(ReasonUnauthenticated), nil)
	}

	res, chain, lookupErr := s.resolve(ctx, caller, action, target)
	if lookupErr != nil && !errors.Is(lookupErr, apperrors.ErrResourceNotFound) {
		return nil, lookupErr
	}

	decision := Decide(caller, action, res)
	return chain, s.finish(ctx, caller, action, decision, lookupErr)
}

func (s *AuthorizationService) finish(ctx context.Context, caller Identity, action Action, d Decision, lookupErr error) error {
	s.recorder.RecordDecision(action.String(), d.Allowed, string(d.Reason))
	if d.Allowed {
		return nil
	}

	logger.FromContext(ctx).Debug().
		Str("action", action.String()).
		Int64("userID", caller.UserID).
		Str("role", string(caller.Role)).
		Str("reason", string(d.Reason)).
		Msg("Authorization denied")

	if d.Reason == ReasonNotFound && lookupErr != nil {
		return lookupErr
	}
	return d.Err(action)
}

func (s *AuthorizationService) resolve(ctx context.Context, caller Identity, action Action, target Target) (Resource, *Chain, error) {
	res := Resource{RequestedRole: target.Role}

	switch target.Kind {
	case KindNone:
		res.Found = true
		return res, nil, nil

	case KindUser:
		user, err := s.users.GetByID(ctx, target.ID)
		if err != nil {
			return res, nil, notFoundAs(err, apperrors.ErrUserNotFound)
		}
		res.Found = true
		res.UserID = user.ID
		return res, nil, nil
	}

	chain, err := s.ownership.Resolve(ctx, target.Kind, target.ID)
	if err != nil {
		return res, nil, err
	}
	res.Found = true
	res.OwnerID = chain.InstructorID
	res.StudentID = chain.StudentID

	if action == ActionCreateSubmission {
		res.StudentID = target.StudentID
		if res.StudentID == 0 {
			res.StudentID = caller.UserID
		}
		// enrollment only matters for a student submitting as themself
		if caller.IsStudent() && res.StudentID == caller.UserID {
			enrolled, err := s.enrollments.IsEnrolled(ctx, chain.CourseID, res.StudentID)
			if err != nil {
				return res, chain, err
			}
			res.Enrolled = enrolled
		}
	}

	return res, chain, nil
}
