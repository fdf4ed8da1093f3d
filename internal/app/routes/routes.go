package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/controllers"
	"github.com/yigit/coursehub/internal/middleware"
)

// Controllers groups every HTTP handler the router mounts.
type Controllers struct {
	Auth       *controllers.AuthController
	User       *controllers.UserController
	Course     *controllers.CourseController
	Assignment *controllers.AssignmentController
	Submission *controllers.SubmissionController
	Health     *controllers.HealthController
}

// SetupRouter configures all application routes. authLimiter guards the
// credential endpoints and may be nil.
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	authLimiter middleware.Limiter,
) {
	// API version group
	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)

	required := authMiddleware.JWTAuth()
	optional := authMiddleware.OptionalAuth()
	limited := middleware.RateLimit(authLimiter)

	users := v1.Group("/users")
	{
		users.POST("", limited, optional, c.User.CreateUser)
		users.POST("/login", limited, c.Auth.Login)
		users.POST("/initial", limited, c.Auth.CreateInitialAdmin)
		users.GET("/:id", required, c.User.GetUser)
	}

	courses := v1.Group("/courses")
	{
		courses.GET("", optional, c.Course.ListCourses)
		courses.POST("", required, c.Course.CreateCourse)
		courses.GET("/:id", optional, c.Course.GetCourse)
		courses.PATCH("/:id", required, c.Course.UpdateCourse)
		courses.DELETE("/:id", required, c.Course.DeleteCourse)

		// enrollment
		courses.GET("/:id/students", required, c.Course.GetRoster)
		courses.POST("/:id/students", required, c.Course.UpdateEnrollment)
		courses.GET("/:id/roster", required, c.Course.ExportRoster)

		courses.GET("/:id/assignments", optional, c.Course.ListCourseAssignments)
	}

	assignments := v1.Group("/assignments")
	{
		assignments.POST("", required, c.Assignment.CreateAssignment)
		assignments.GET("/:id", optional, c.Assignment.GetAssignment)
		assignments.PATCH("/:id", required, c.Assignment.UpdateAssignment)
		assignments.DELETE("/:id", required, c.Assignment.DeleteAssignment)

		assignments.GET("/:id/submissions", required, c.Submission.ListSubmissions)
		assignments.POST("/:id/submissions", required, c.Submission.CreateSubmission)
	}

	submissions := v1.Group("/submissions")
	{
		submissions.PATCH("/:id", required, c.Submission.UpdateGrade)
		submissions.GET("/:id/file", required, c.Submission.DownloadFile)
	}
}
