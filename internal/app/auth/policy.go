package auth

import (
	"fmt"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// Action names an operation subject to authorization.
type Action int

const (
	ActionCreateCourse Action = iota + 1
	ActionReadCourse
	ActionListCourses
	ActionUpdateCourse
	ActionDeleteCourse
	ActionManageEnrollment
	ActionViewRoster
	ActionCreateAssignment
	ActionReadAssignment
	ActionUpdateAssignment
	ActionDeleteAssignment
	ActionListSubmissions
	ActionCreateSubmission
	ActionUpdateSubmissionGrade
	ActionDownloadSubmissionFile
	ActionCreateUser
	ActionReadUserProfile
)

var actionNames = map[Action]string{
	ActionCreateCourse:           "create_course",
	ActionReadCourse:             "read_course",
	ActionListCourses:            "list_courses",
	ActionUpdateCourse:           "update_course",
	ActionDeleteCourse:           "delete_course",
	ActionManageEnrollment:       "manage_enrollment",
	ActionViewRoster:             "view_roster",
	ActionCreateAssignment:       "create_assignment",
	ActionReadAssignment:         "read_assignment",
	ActionUpdateAssignment:       "update_assignment",
	ActionDeleteAssignment:       "delete_assignment",
	ActionListSubmissions:        "list_submissions",
	ActionCreateSubmission:       "create_submission",
	ActionUpdateSubmissionGrade:  "update_submission_grade",
	ActionDownloadSubmissionFile: "download_submission_file",
	ActionCreateUser:             "create_user",
	ActionReadUserProfile:        "read_user_profile",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Actions lists every known action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionNames))
	for a := ActionCreateCourse; a <= ActionReadUserProfile; a++ {
		out = append(out, a)
	}
	return out
}

// DenyReason explains a Deny decision.
type DenyReason string

const (
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonForbidden       DenyReason = "forbidden"
	ReasonNotFound        DenyReason = "not_found"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision                 { return Decision{Allowed: true} }
func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Err converts a deny into the matching application error; nil when allowed.
func (d Decision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return apperrors.NewUnauthenticatedError("authentication required")
	case ReasonNotFound:
		return apperrors.NewResourceNotFoundError("resource not found")
	default:
		return apperrors.NewForbiddenError(fmt.Sprintf("not permitted to %s", action))
	}
}

// Resource carries the facts about the target that Decide needs. The
// ownership resolver fills it in; Decide itself never touches the store.
type Resource struct {
	// Found is false when the target (or any hop of its ownership chain) is missing.
	Found bool
	// OwnerID is the instructorId of the course the target belongs to.
	OwnerID int64
	// StudentID is the submission's author, or the student a submission is being created for.
	StudentID int64
	// UserID is the profile being read.
	UserID int64
	// Enrolled is whether StudentID is enrolled in the target's course.
	Enrolled bool
	// RequestedRole is the role of the account being created.
	RequestedRole models.RoleType
}

// IsPublic reports actions open to every caller, including anonymous ones.
func IsPublic(action Action) bool {
	switch action {
	case ActionReadCourse, ActionListCourses, ActionReadAssignment:
		return true
	}
	return false
}

// RequiresIdentity reports whether action needs an authenticated caller.
// Student self-registration is the only anonymous write.
func RequiresIdentity(action Action, requestedRole models.RoleType) bool {
	if IsPublic(action) {
		return false
	}
	if action == ActionCreateUser && requestedRole == models.RoleStudent {
		return false
	}
	return true
}

// TargetsExisting reports actions whose resource must exist for the decision.
func TargetsExisting(action Action) bool {
	switch action {
	case ActionCreateCourse, ActionListCourses, ActionCreateUser:
		return false
	}
	return true
}

// Decide is the pure authorization decision. Admin is decided before any
// ownership fact is consulted; ownership only matters for instructors and
// identity equality only for students.
func Decide(id Identity, action Action, res Resource) Decision {
	if RequiresIdentity(action, res.RequestedRole) && !id.IsAuthenticated() {
		return deny(ReasonUnauthenticated)
	}
	if TargetsExisting(action) && !res.Found {
		return deny(ReasonNotFound)
	}
	if IsPublic(action) {
		return allow()
	}

	if id.IsAdmin() {
		// submissions belong to enrolled students only
		if action == ActionCreateSubmission {
			return deny(ReasonForbidden)
		}
		return allow()
	}

	switch action {
	case ActionCreateUser:
		if res.RequestedRole == models.RoleStudent {
			return allow()
		}
		return deny(ReasonForbidden)

	case ActionReadUserProfile:
		if id.IsAuthenticated() && res.UserID == id.UserID {
			return allow()
		}
		return deny(ReasonForbidden)

	case ActionCreateCourse, ActionDeleteCourse:
		return deny(ReasonForbidden)

	case ActionUpdateCourse, ActionManageEnrollment, ActionViewRoster,
		ActionCreateAssignment, ActionUpdateAssignment, ActionDeleteAssignment,
		ActionListSubmissions, ActionUpdateSubmissionGrade:
		if id.IsInstructor() && res.OwnerID == id.UserID {
			return allow()
		}
		return deny(ReasonForbidden)

	case ActionCreateSubmission:
		if id.IsStudent() && res.StudentID == id.UserID && res.Enrolled {
			return allow()
		}
		return deny(ReasonForbidden)

	case ActionDownloadSubmissionFile:
		if id.IsInstructor() && res.OwnerID == id.UserID {
			return allow()
		}
		if id.IsStudent() && res.StudentID == id.UserID {
			return allow()
		}
		return deny(ReasonForbidden)
	}

	return deny(ReasonForbidden)
}
