package controllers

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/export"
	"github.com/yigit/coursehub/internal/pkg/helpers"
)

// CourseController handles course and enrollment endpoints
type CourseController struct {
	courseService services.CourseService
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

// ListCourses returns one page of courses. Only subject, number and term
// filter; other query parameters are ignored.
// GET /courses
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, pageSize := helpers.ParsePaginationParams(ctx)
	filter := models.CourseFilter{
		Subject: ctx.Query("subject"),
		Number:  ctx.Query("number"),
		Term:    ctx.Query("term"),
	}

	resp, err := c.courseService.ListCourses(ctx.Request.Context(), middleware.IdentityFrom(ctx), filter, page, pageSize)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// CreateCourse POST /courses
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.CreateCourse(ctx.Request.Context(), middleware.IdentityFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, course, "Course created successfully")
}

// GetCourse GET /courses/:id
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.courseService.GetCourse(ctx.Request.Context(), middleware.IdentityFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course, "")
}

// UpdateCourse applies a partial update.
// PATCH /courses/:id
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.UpdateCourse(ctx.Request.Context(), middleware.IdentityFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course, "Course updated successfully")
}

// DeleteCourse DELETE /courses/:id
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.courseService.DeleteCourse(ctx.Request.Context(), middleware.IdentityFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetRoster GET /courses/:id/students
func (c *CourseController) GetRoster(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	roster, err := c.courseService.GetRoster(ctx.Request.Context(), middleware.IdentityFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, roster, "")
}

// UpdateEnrollment adds and removes students in one step and reports the
// rows that actually changed.
// POST /courses/:id/students
func (c *CourseController) UpdateEnrollment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateEnrollmentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	delta, err := c.courseService.UpdateEnrollment(ctx.Request.Context(), middleware.IdentityFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, delta, "Enrollment updated successfully")
}

// ExportRoster downloads the roster as csv (default) or xlsx.
// GET /courses/:id/roster?format=
func (c *CourseController) ExportRoster(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	format, err := export.ParseFormat(ctx.Query("format"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	// buffered so a failure still produces an error envelope
	var buf bytes.Buffer
	if err := c.courseService.ExportRoster(ctx.Request.Context(), middleware.IdentityFrom(ctx), id, format, &buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": format.Filename(id)}))
	ctx.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// ListCourseAssignments GET /courses/:id/assignments
func (c *CourseController) ListCourseAssignments(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	assignments, err := c.courseService.ListCourseAssignments(ctx.Request.Context(), middleware.IdentityFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, assignments, "")
}
