package controllers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// multipartOverhead is the slack allowed on top of the file for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

// SubmissionController handles submission upload, listing, grading and download
type SubmissionController struct {
	submissionService services.SubmissionService
	maxUploadBytes    int64
}

// NewSubmissionController creates a new SubmissionController
func NewSubmissionController(submissionService services.SubmissionService, maxUploadBytes int64) *SubmissionController {
	return &SubmissionController{
		submissionService: submissionService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// ListSubmissions GET /assignments/:id/submissions?page=&studentId=
func (c *SubmissionController) ListSubmissions(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(ctx.Query("page"))
	studentID, err := parseOptionalID(ctx.Query("studentId"), "studentId")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp, err := c.submissionService.ListSubmissions(ctx.Request.Context(), middleware.IdentityFrom(ctx), assignmentID, page, studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// CreateSubmission accepts a multipart upload in the "file" field. An
// optional "studentId" must be the caller's own id.
// POST /assignments/:id/submissions
func (c *SubmissionController) CreateSubmission(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes+multipartOverhead)
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.HandleAPIError(ctx, apperrors.NewCustomError(apperrors.ErrValidationFailed, fmt.Sprintf("file exceeds %d bytes", c.maxUploadBytes)).
				WithField("file").
				WithDetails(map[string]interface{}{"maxBytes": c.maxUploadBytes}))
			return
		}
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("file", "file is required"))
		return
	}

	studentID, err := parseOptionalID(ctx.PostForm("studentId"), "studentId")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("error opening uploaded file: %w", err))
		return
	}
	defer file.Close()

	upload := services.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}
	if studentID != nil {
		upload.StudentID = *studentID
	}

	submission, err := c.submissionService.CreateSubmission(ctx.Request.Context(), middleware.IdentityFrom(ctx), assignmentID, upload)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	logger.FromContext(ctx.Request.Context()).Info().
		Int64("submissionID", submission.ID).
		Int64("assignmentID", assignmentID).
		Int64("fileSize", submission.FileSize).
		Msg("Submission uploaded")
	respondCreated(ctx, submission, "Submission created successfully")
}

// UpdateGrade PATCH /submissions/:id
func (c *SubmissionController) UpdateGrade(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateGradeRequest
	if !bindJSON(ctx, &req) {
		return
	}

	submission, err := c.submissionService.UpdateGrade(ctx.Request.Context(), middleware.IdentityFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, submission, "Grade updated successfully")
}

// DownloadFile streams the stored file of a submission.
// GET /submissions/:id/file
func (c *SubmissionController) DownloadFile(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	submission, body, err := c.submissionService.OpenSubmissionFile(ctx.Request.Context(), middleware.IdentityFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer body.Close()

	filename := submission.Filename
	if filename == "" {
		filename = fmt.Sprintf("submission-%d", submission.ID)
	}
	extra := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": filename}),
	}
	ctx.DataFromReader(http.StatusOK, submission.FileSize, submission.ContentType, body, extra)
}
