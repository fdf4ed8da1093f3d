package services

import (
	"context"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/config"
	pkgauth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/events"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// Limits carries the paging and upload bounds taken from configuration.
type Limits struct {
	DefaultPageSize    int
	MaxPageSize        int
	SubmissionPageSize int
	MaxUploadBytes     int64
}

// DefaultLimits is used when configuration leaves a bound unset.
var DefaultLimits = Limits{
	DefaultPageSize:    helpers.DefaultPageSize,
	MaxPageSize:        helpers.MaxPageSize,
	SubmissionPageSize: helpers.DefaultPageSize,
	MaxUploadBytes:     10 << 20,
}

// LimitsFromConfig reads Limits from cfg, falling back to DefaultLimits.
func LimitsFromConfig(cfg *config.Config) Limits {
	l := DefaultLimits
	if cfg.Pagination.DefaultPageSize > 0 {
		l.DefaultPageSize = cfg.Pagination.DefaultPageSize
	}
	if cfg.Pagination.MaxPageSize > 0 {
		l.MaxPageSize = cfg.Pagination.MaxPageSize
	}
	if cfg.Pagination.SubmissionPageSize > 0 {
		l.SubmissionPageSize = cfg.Pagination.SubmissionPageSize
	}
	if cfg.Storage.MaxUploadBytes > 0 {
		l.MaxUploadBytes = cfg.Storage.MaxUploadBytes
	}
	return l
}

// Services groups every service the HTTP layer depends on.
type Services struct {
	Authz      *auth.AuthorizationService
	Auth       AuthService
	User       UserService
	Course     CourseService
	Assignment AssignmentService
	Submission SubmissionService
}

// Deps are the collaborators shared by the services.
type Deps struct {
	Repos     *repositories.Repositories
	JWT       *pkgauth.JWTService
	Blobs     filestorage.BlobStore
	Publisher events.Publisher
	Decisions auth.DecisionRecorder
	Delta     EnrollmentRecorder
	Limits    Limits
}

// NewServices wires the authorization engine and every service on top of repos.
func NewServices(d Deps) *Services {
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}

	r := d.Repos
	ownership := auth.NewOwnershipResolver(r.CourseRepository, r.AssignmentRepository, r.SubmissionRepository)
	authz := auth.NewAuthorizationService(r.UserRepository, r.EnrollmentRepository, ownership, d.Decisions)
	reconciler := NewEnrollmentReconciler(r.EnrollmentRepository, d.Delta, d.Publisher)

	return &Services{
		Authz:      authz,
		Auth:       NewAuthService(r.UserRepository, d.JWT),
		User:       NewUserService(r.UserRepository, authz),
		Course:     NewCourseService(r.CourseRepository, r.UserRepository, r.EnrollmentRepository, r.AssignmentRepository, reconciler, authz, d.Blobs, d.Limits),
		Assignment: NewAssignmentService(r.AssignmentRepository, authz, d.Blobs),
		Submission: NewSubmissionService(r.SubmissionRepository, authz, d.Blobs, d.Publisher, d.Limits),
	}
}

// removeBlobs deletes blobs whose rows are already gone. Failures are logged
// and otherwise ignored.
func removeBlobs(ctx context.Context, blobs filestorage.BlobStore, paths []string) {
	if blobs == nil || len(paths) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		if err := blobs.Delete(ctx, p); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("path", p).Msg("Failed to remove orphaned blob")
		}
	}
}
