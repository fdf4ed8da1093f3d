package services

import (
	"context"
	"sort"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/events"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// EnrollmentRecorder observes applied enrollment deltas.
type EnrollmentRecorder interface {
	RecordEnrollmentDelta(added, removed, skipped int)
}

type noopEnrollmentRecorder struct{}

func (noopEnrollmentRecorder) RecordEnrollmentDelta(int, int, int) {}

// EnrollmentUpdatedEvent is the payload of events.EnrollmentUpdated.
type EnrollmentUpdatedEvent struct {
	CourseID int64 `json:"courseId"`
	Added    int   `json:"added"`
	Removed  int   `json:"removed"`
	Skipped  int   `json:"skipped"`
}

// EnrollmentReconciler applies add/remove sets to a course roster. Callers
// must already hold ActionManageEnrollment on the course.
type EnrollmentReconciler struct {
	enrollments repositories.IEnrollmentRepository
	recorder    EnrollmentRecorder
	publisher   events.Publisher
}

// NewEnrollmentReconciler creates a new EnrollmentReconciler
func NewEnrollmentReconciler(enrollments repositories.IEnrollmentRepository, recorder EnrollmentRecorder, publisher events.Publisher) *EnrollmentReconciler {
	if recorder == nil {
		recorder = noopEnrollmentRecorder{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &EnrollmentReconciler{
		enrollments: enrollments,
		recorder:    recorder,
		publisher:   publisher,
	}
}

// NormalizeDelta deduplicates both sets and drops from add every id that is
// also in remove. Results are sorted ascending.
func NormalizeDelta(add, remove []int64) (adds, removes []int64) {
	removes = uniqueSorted(remove)
	removed := make(map[int64]struct{}, len(removes))
	for _, id := range removes {
		removed[id] = struct{}{}
	}

	adds = make([]int64, 0, len(add))
	for _, id := range uniqueSorted(add) {
		if _, ok := removed[id]; !ok {
			adds = append(adds, id)
		}
	}
	return adds, removes
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reconcile enrolls add and unenrolls remove in one transaction. An id in
// both sets ends unenrolled. Ids in add that are not students are counted
// as skipped. The store's serialization conflicts surface as
// apperrors.ErrConcurrentModification and are not retried here.
func (r *EnrollmentReconciler) Reconcile(ctx context.Context, courseID int64, add, remove []int64) (models.EnrollmentDelta, error) {
	adds, removes := NormalizeDelta(add, remove)

	delta, err := r.enrollments.ApplyDelta(ctx, courseID, adds, removes)
	if err != nil {
		return models.EnrollmentDelta{}, err
	}

	r.recorder.RecordEnrollmentDelta(delta.Added, delta.Removed, delta.Skipped)
	logger.FromContext(ctx).Info().
		Int64("courseID", courseID).
		Int("added", delta.Added).
		Int("removed", delta.Removed).
		Int("skipped", delta.Skipped).
		Msg("Enrollment reconciled")

	if delta.Added > 0 || delta.Removed > 0 {
		events.Notify(ctx, r.publisher, events.EnrollmentUpdated, EnrollmentUpdatedEvent{
			CourseID: courseID,
			Added:    delta.Added,
			Removed:  delta.Removed,
			Skipped:  delta.Skipped,
		})
	}
	return delta, nil
}
