package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/export"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var instructor = auth.Identity{UserID: 2, Role: models.RoleInstructor}

// asCaller stands in for the auth middleware.
func asCaller(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetIdentity(c, id)
		c.Next()
	}
}

func serve(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.APIResponse {
	t.Helper()
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type stubUsers struct {
	gotCaller auth.Identity
	gotReq    *dto.CreateUserRequest
}

func (s *stubUsers) CreateUser(_ context.Context, caller auth.Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	s.gotCaller, s.gotReq = caller, req
	if req.Email == "taken@example.com" {
		return nil, apperrors.ErrEmailAlreadyExists
	}
	return &dto.UserResponse{ID: 9, Name: req.Name, Email: req.Email, Role: string(req.Role)}, nil
}

func (s *stubUsers) GetUser(_ context.Context, _ auth.Identity, id int64) (*dto.UserProfileResponse, error) {
	if id != 9 {
		return nil, apperrors.ErrUserNotFound
	}
	return &dto.UserProfileResponse{UserResponse: dto.UserResponse{ID: 9}, CourseIDs: []int64{10}}, nil
}

func TestUserController(t *testing.T) {
	svc := &stubUsers{}
	ctrl := NewUserController(svc)
	r := gin.New()
	r.POST("/users", asCaller(auth.Anonymous), ctrl.CreateUser)
	r.GET("/users/:id", asCaller(instructor), ctrl.GetUser)

	w := serve(r, http.MethodPost, "/users", strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"longenough","role":"student"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, auth.Anonymous, svc.gotCaller)
	assert.Equal(t, models.RoleStudent, svc.gotReq.Role)

	w = serve(r, http.MethodPost, "/users", strings.NewReader(`{"name":"Ada","email":"taken@example.com","password":"longenough","role":"student"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email", decode(t, w).Error.Field)

	w = serve(r, http.MethodPost, "/users", strings.NewReader(`{"name":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeBadRequest, decode(t, w).Error.Code)

	w = serve(r, http.MethodGet, "/users/9", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"courseIds":[10]`)

	w = serve(r, http.MethodGet, "/users/8", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, bad := range []string{"abc", "0", "-3"} {
		w = serve(r, http.MethodGet, "/users/"+bad, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, "id", decode(t, w).Error.Field)
	}
}

type stubCourses struct {
	services.CourseService
	gotFilter   models.CourseFilter
	gotPage     int
	gotPageSize int
	deleted     int64
}

func (s *stubCourses) ListCourses(_ context.Context, _ auth.Identity, filter models.CourseFilter, page, pageSize int) (*dto.CourseListResponse, error) {
	s.gotFilter, s.gotPage, s.gotPageSize = filter, page, pageSize
	return &dto.CourseListResponse{Courses: []models.Course{}, Pagination: dto.PaginationInfo{CurrentPage: 1, PageSize: 10}}, nil
}

func (s *stubCourses) DeleteCourse(_ context.Context, caller auth.Identity, id int64) error {
	if caller.UserID != instructor.UserID {
		return apperrors.NewForbiddenError("not the course instructor")
	}
	s.deleted = id
	return nil
}

func (s *stubCourses) UpdateEnrollment(_ context.Context, _ auth.Identity, _ int64, req *dto.UpdateEnrollmentRequest) (models.EnrollmentDelta, error) {
	return models.EnrollmentDelta{Added: len(req.Add), Removed: len(req.Remove)}, nil
}

func (s *stubCourses) ExportRoster(_ context.Context, _ auth.Identity, id int64, format export.Format, w io.Writer) error {
	if id == 99 {
		return apperrors.ErrCourseNotFound
	}
	return export.WriteRoster(w, format, []models.RosterEntry{{ID: 4, Name: "Stu Dent", Email: "stu@example.com"}})
}

func TestCourseController_ListPassesFilters(t *testing.T) {
	svc := &stubCourses{}
	r := gin.New()
	r.GET("/courses", asCaller(auth.Anonymous), NewCourseController(svc).ListCourses)

	w := serve(r, http.MethodGet, "/courses?subject=CS&term=fa26&page=3&pageSize=50&instructorId=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CourseFilter{Subject: "CS", Term: "fa26"}, svc.gotFilter)
	assert.Equal(t, 3, svc.gotPage)
	assert.Equal(t, 50, svc.gotPageSize)

	serve(r, http.MethodGet, "/courses?page=x", nil, "")
	assert.Zero(t, svc.gotPage)
}

func TestCourseController_DeleteAndEnroll(t *testing.T) {
	svc := &stubCourses{}
	ctrl := NewCourseController(svc)

	r := gin.New()
	r.DELETE("/courses/:id", asCaller(instructor), ctrl.DeleteCourse)
	r.POST("/courses/:id/students", asCaller(instructor), ctrl.UpdateEnrollment)

	w := serve(r, http.MethodDelete, "/courses/10", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(10), svc.deleted)

	w = serve(r, http.MethodPost, "/courses/10/students", strings.NewReader(`{"add":[4,5],"remove":[6]}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"added":2`)
	assert.Contains(t, w.Body.String(), `"removed":1`)

	other := gin.New()
	other.DELETE("/courses/:id", asCaller(auth.Identity{UserID: 3, Role: models.RoleInstructor}), ctrl.DeleteCourse)
	w = serve(other, http.MethodDelete, "/courses/10", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCourseController_ExportRoster(t *testing.T) {
	r := gin.New()
	r.GET("/courses/:id/roster", asCaller(instructor), NewCourseController(&stubCourses{}).ExportRoster)

	w := serve(r, http.MethodGet, "/courses/10/roster", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=course-10-roster.csv`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,name,email\n4,Stu Dent,stu@example.com\n", w.Body.String())

	w = serve(r, http.MethodGet, "/courses/10/roster?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = serve(r, http.MethodGet, "/courses/10/roster?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "format", decode(t, w).Error.Field)

	w = serve(r, http.MethodGet, "/courses/99/roster", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

type stubSubmissions struct {
	services.SubmissionService
	gotUpload  services.Upload
	gotContent string
	gotStudent *int64
	gotPage    int
}

func (s *stubSubmissions) ListSubmissions(_ context.Context, _ auth.Identity, _ int64, page int, studentID *int64) (*dto.SubmissionListResponse, error) {
	s.gotPage, s.gotStudent = page, studentID
	return &dto.SubmissionListResponse{Submissions: []models.Submission{}}, nil
}

func (s *stubSubmissions) CreateSubmission(_ context.Context, _ auth.Identity, assignmentID int64, upload services.Upload) (*models.Submission, error) {
	content, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, err
	}
	s.gotUpload, s.gotContent = upload, string(content)
	return &models.Submission{ID: 31, AssignmentID: assignmentID, Filename: upload.Filename, FileSize: int64(len(content))}, nil
}

func (s *stubSubmissions) OpenSubmissionFile(_ context.Context, _ auth.Identity, id int64) (*models.Submission, io.ReadCloser, error) {
	if id != 30 {
		return nil, nil, apperrors.ErrSubmissionNotFound
	}
	sub := &models.Submission{ID: 30, Filename: "essay final.pdf", ContentType: "application/pdf", FileSize: 4}
	return sub, io.NopCloser(strings.NewReader("%PDF")), nil
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSubmissionController_Upload(t *testing.T) {
	svc := &stubSubmissions{}
	r := gin.New()
	r.POST("/assignments/:id/submissions", asCaller(instructor), NewSubmissionController(svc, 1024).CreateSubmission)

	body, ct := multipartBody(t, map[string]string{"studentId": "4"}, "essay.pdf", "application/pdf", "%PDF-1.7")
	w := serve(r, http.MethodPost, "/assignments/20/submissions", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "essay.pdf", svc.gotUpload.Filename)
	assert.Equal(t, "application/pdf", svc.gotUpload.ContentType)
	assert.Equal(t, int64(4), svc.gotUpload.StudentID)
	assert.Equal(t, "%PDF-1.7", svc.gotContent)

	body, ct = multipartBody(t, nil, "", "", "")
	w = serve(r, http.MethodPost, "/assignments/20/submissions", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file", decode(t, w).Error.Field)

	body, ct = multipartBody(t, map[string]string{"studentId": "four"}, "essay.pdf", "application/pdf", "%PDF")
	w = serve(r, http.MethodPost, "/assignments/20/submissions", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "studentId", decode(t, w).Error.Field)
}

func TestSubmissionController_UploadTooLarge(t *testing.T) {
	r := gin.New()
	r.POST("/assignments/:id/submissions", asCaller(instructor), NewSubmissionController(&stubSubmissions{}, 16).CreateSubmission)

	body, ct := multipartBody(t, nil, "big.txt", "text/plain", strings.Repeat("x", multipartOverhead+64))
	w := serve(r, http.MethodPost, "/assignments/20/submissions", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "file", resp.Error.Field)
	assert.Equal(t, map[string]interface{}{"maxBytes": float64(16)}, resp.Error.Details)
}

func TestSubmissionController_ListAndDownload(t *testing.T) {
	svc := &stubSubmissions{}
	ctrl := NewSubmissionController(svc, 1024)
	r := gin.New()
	r.GET("/assignments/:id/submissions", asCaller(instructor), ctrl.ListSubmissions)
	r.GET("/submissions/:id/file", asCaller(instructor), ctrl.DownloadFile)

	w := serve(r, http.MethodGet, "/assignments/20/submissions?page=2&studentId=4&pageSize=500", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.gotPage)
	require.NotNil(t, svc.gotStudent)
	assert.Equal(t, int64(4), *svc.gotStudent)

	w = serve(r, http.MethodGet, "/assignments/20/submissions?studentId=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/submissions/30/file", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="essay final.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())

	w = serve(r, http.MethodGet, "/submissions/31/file", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthController(t *testing.T) {
	r := gin.New()
	r.GET("/up", NewHealthController(pinger{}).Health)
	r.GET("/down", NewHealthController(pinger{err: errors.New("connection refused")}).Health)

	w := serve(r, http.MethodGet, "/up", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)

	w = serve(r, http.MethodGet, "/down", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"down"`)
}
