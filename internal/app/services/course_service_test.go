package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/events"
	"github.com/yigit/coursehub/internal/pkg/export"
)

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64 { return &i }

func TestListCourses_Pagination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	delete(h.db.courses, courseID)
	delete(h.db.courses, otherCourse)
	for i := int64(1); i <= 25; i++ {
		h.db.courses[100+i] = &models.Course{ID: 100 + i, Subject: "CS", Number: fmt.Sprint(i), Title: "T", Term: "fall-2026", InstructorID: ownerID}
	}

	cases := []struct {
		page      int
		wantItems int
		firstID   int64
	}{
		{page: 1, wantItems: 10, firstID: 101},
		{page: 3, wantItems: 5, firstID: 121},
		{page: 4, wantItems: 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page %d", tc.page), func(t *testing.T) {
			resp, err := h.courses.ListCourses(ctx, auth.Anonymous, models.CourseFilter{}, tc.page, 10)
			require.NoError(t, err)
			assert.Len(t, resp.Courses, tc.wantItems)
			assert.Equal(t, dto.PaginationInfo{CurrentPage: tc.page, TotalPages: 3, PageSize: 10, TotalItems: 25}, resp.Pagination)
			if tc.wantItems > 0 {
				assert.Equal(t, tc.firstID, resp.Courses[0].ID)
			}
		})
	}
}

func TestListCourses_FilterAndClamp(t *testing.T) {
	h := newHarness(t)

	resp, err := h.courses.ListCourses(context.Background(), auth.Anonymous, models.CourseFilter{Subject: "MA"}, 0, 1000)
	require.NoError(t, err)
	require.Len(t, resp.Courses, 1)
	assert.Equal(t, otherCourse, resp.Courses[0].ID)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
	assert.Equal(t, 100, resp.Pagination.PageSize)
}

func TestCreateCourse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := func(instructor int64) *dto.CreateCourseRequest {
		return &dto.CreateCourseRequest{Subject: "PH", Number: "110", Title: "Physics", Term: "spring-2027", InstructorID: instructor}
	}

	_, err := h.courses.CreateCourse(ctx, owner, req(ownerID))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = h.courses.CreateCourse(ctx, admin, req(studentID))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, "instructorId", apperrors.FieldOf(err))

	_, err = h.courses.CreateCourse(ctx, admin, req(999))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	course, err := h.courses.CreateCourse(ctx, admin, req(otherInstrID))
	require.NoError(t, err)
	assert.Equal(t, otherInstrID, course.InstructorID)
	assert.Contains(t, h.db.courses, course.ID)
}

func TestGetCourse(t *testing.T) {
	h := newHarness(t)

	course, err := h.courses.GetCourse(context.Background(), auth.Anonymous, courseID)
	require.NoError(t, err)
	assert.Equal(t, "Intro", course.Title)

	_, err = h.courses.GetCourse(context.Background(), auth.Anonymous, 404)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestUpdateCourse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	course, err := h.courses.UpdateCourse(ctx, owner, courseID, &dto.UpdateCourseRequest{Title: strPtr("Intro to CS")})
	require.NoError(t, err)
	assert.Equal(t, "Intro to CS", course.Title)
	assert.Equal(t, "CS", course.Subject)

	_, err = h.courses.UpdateCourse(ctx, otherInstr, courseID, &dto.UpdateCourseRequest{Title: strPtr("Mine now")})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = h.courses.UpdateCourse(ctx, owner, 404, &dto.UpdateCourseRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	_, err = h.courses.UpdateCourse(ctx, owner, courseID, &dto.UpdateCourseRequest{Title: strPtr("")})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	course, err = h.courses.UpdateCourse(ctx, owner, courseID, &dto.UpdateCourseRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Intro to CS", course.Title)
}

func TestUpdateCourse_Reassignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.courses.UpdateCourse(ctx, owner, courseID, &dto.UpdateCourseRequest{InstructorID: int64Ptr(otherInstrID)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = h.courses.UpdateCourse(ctx, admin, courseID, &dto.UpdateCourseRequest{InstructorID: int64Ptr(studentID)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, "instructorId", apperrors.FieldOf(err))

	course, err := h.courses.UpdateCourse(ctx, admin, courseID, &dto.UpdateCourseRequest{InstructorID: int64Ptr(otherInstrID)})
	require.NoError(t, err)
	assert.Equal(t, otherInstrID, course.InstructorID)

	// the former owner loses control immediately
	_, err = h.courses.UpdateCourse(ctx, owner, courseID, &dto.UpdateCourseRequest{Title: strPtr("back")})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	_, err = h.courses.UpdateCourse(ctx, otherInstr, courseID, &dto.UpdateCourseRequest{Title: strPtr("ok")})
	assert.NoError(t, err)
}

func TestDeleteCourse_RemovesBlobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.courses.DeleteCourse(ctx, owner, courseID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.Equal(t, 1, h.blobs.count())

	require.NoError(t, h.courses.DeleteCourse(ctx, admin, courseID))
	assert.NotContains(t, h.db.courses, courseID)
	assert.NotContains(t, h.db.assignments, assignmentID)
	assert.NotContains(t, h.db.submissions, submissionID)
	assert.Zero(t, h.blobs.count())

	err = h.courses.DeleteCourse(ctx, admin, courseID)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestUpdateEnrollment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	delta, err := h.courses.UpdateEnrollment(ctx, owner, courseID, &dto.UpdateEnrollmentRequest{
		Add:    []int64{outsiderID, outsiderID, otherInstrID, 999},
		Remove: []int64{studentID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentDelta{Added: 1, Removed: 1, Skipped: 2}, delta)
	assert.Equal(t, &deltaRecorder{added: 1, removed: 1, skipped: 2}, h.delta)
	assert.Equal(t, []string{events.EnrollmentUpdated}, h.publisher.types())

	roster, err := h.courses.GetRoster(ctx, owner, courseID)
	require.NoError(t, err)
	require.Len(t, roster.Students, 1)
	assert.Equal(t, outsiderID, roster.Students[0].ID)
}

func TestUpdateEnrollment_RemoveWins(t *testing.T) {
	h := newHarness(t)

	delta, err := h.courses.UpdateEnrollment(context.Background(), owner, courseID, &dto.UpdateEnrollmentRequest{
		Add:    []int64{outsiderID, studentID},
		Remove: []int64{outsiderID, studentID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentDelta{Added: 0, Removed: 1, Skipped: 0}, delta)
	assert.False(t, h.db.enrolled[[2]int64{courseID, outsiderID}])
	assert.False(t, h.db.enrolled[[2]int64{courseID, studentID}])
}

func TestUpdateEnrollment_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := &dto.UpdateEnrollmentRequest{Add: []int64{outsiderID}}

	first, err := h.courses.UpdateEnrollment(ctx, owner, courseID, req)
	require.NoError(t, err)
	second, err := h.courses.UpdateEnrollment(ctx, owner, courseID, req)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Added)
	assert.Equal(t, models.EnrollmentDelta{}, second)
	assert.Len(t, h.publisher.types(), 1)
}

func TestUpdateEnrollment_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.courses.UpdateEnrollment(ctx, otherInstr, courseID, &dto.UpdateEnrollmentRequest{Add: []int64{outsiderID}})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.False(t, h.db.enrolled[[2]int64{courseID, outsiderID}])

	_, err = h.courses.UpdateEnrollment(ctx, student, courseID, &dto.UpdateEnrollmentRequest{Remove: []int64{studentID}})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = h.courses.UpdateEnrollment(ctx, admin, 404, &dto.UpdateEnrollmentRequest{Add: []int64{outsiderID}})
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	_, err = h.courses.UpdateEnrollment(ctx, admin, courseID, &dto.UpdateEnrollmentRequest{Add: []int64{-1}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	h.db.applyErr = apperrors.ErrConcurrentModification
	_, err = h.courses.UpdateEnrollment(ctx, admin, courseID, &dto.UpdateEnrollmentRequest{Add: []int64{outsiderID}})
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)
	assert.Empty(t, h.publisher.types())
}

func TestNormalizeDelta(t *testing.T) {
	adds, removes := NormalizeDelta([]int64{5, 3, 5, 7, 9}, []int64{9, 1, 1})
	assert.Equal(t, []int64{3, 5, 7}, adds)
	assert.Equal(t, []int64{1, 9}, removes)

	adds, removes = NormalizeDelta(nil, nil)
	assert.Empty(t, adds)
	assert.Empty(t, removes)
}

func TestGetRoster_Permissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.courses.GetRoster(ctx, student, courseID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = h.courses.GetRoster(ctx, auth.Anonymous, courseID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	roster, err := h.courses.GetRoster(ctx, admin, courseID)
	require.NoError(t, err)
	assert.Equal(t, []models.RosterEntry{{ID: studentID, Name: "Stu", Email: "stu@example.com"}}, roster.Students)
}

func TestExportRoster_CSV(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	require.NoError(t, h.courses.ExportRoster(context.Background(), owner, courseID, export.FormatCSV, &buf))
	assert.Equal(t, "id,name,email\n4,Stu,stu@example.com\n", buf.String())

	buf.Reset()
	err := h.courses.ExportRoster(context.Background(), otherInstr, courseID, export.FormatCSV, &buf)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.Zero(t, buf.Len())
}

func TestListCourseAssignments(t *testing.T) {
	h := newHarness(t)

	list, err := h.courses.ListCourseAssignments(context.Background(), auth.Anonymous, courseID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, assignmentID, list[0].ID)

	list, err = h.courses.ListCourseAssignments(context.Background(), auth.Anonymous, otherCourse)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.courses.ListCourseAssignments(context.Background(), auth.Anonymous, 404)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}
