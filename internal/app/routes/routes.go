package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/controllers"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/middleware"
)

// Controllers groups every controller the router needs
type Controllers struct {
	Auth       *controllers.AuthController
	User       *controllers.UserController
	Address    *controllers.AddressController
	Student    *controllers.StudentController
	Catalog    *controllers.CatalogController
	Enrollment *controllers.EnrollmentController
	Grade      *controllers.GradeController
	Document   *controllers.DocumentController
	Admin      *controllers.AdminController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	// API version group
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.CSRFProtection())

	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.GET("/check-email", c.Auth.CheckEmail)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
		auth.GET("/csrf-token", authMiddleware.OptionalAuth(), c.Auth.CSRFToken)
		auth.POST("/verify-email", c.Auth.VerifyEmail)
		auth.POST("/resend-verification", c.Auth.ResendVerification)
		auth.POST("/forgot-password", c.Auth.ForgotPassword)
		auth.POST("/reset-password", c.Auth.ResetPassword)
	}

	// Address dropdowns are public so the sign-up form can use them
	addresses := v1.Group("/addresses")
	{
		addresses.GET("/regions", c.Address.Regions)
		addresses.GET("/regions/:code/provinces", c.Address.Provinces)
		addresses.GET("/provinces/:code/cities", c.Address.Cities)
		addresses.GET("/cities/:code/barangays", c.Address.Barangays)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/auth/me", c.Auth.Me)
		authenticated.POST("/auth/change-password", c.Auth.ChangePassword)

		authenticated.GET("/courses", c.Catalog.ListCourses)
		authenticated.GET("/courses/:id", c.Catalog.GetCourse)
		authenticated.GET("/sections", c.Catalog.ListSections)
		authenticated.GET("/sections/:id", c.Catalog.GetSection)
		authenticated.GET("/documents/:id/download", authMiddleware.RoleRequired(models.RoleAdmin, models.RoleStudent), c.Document.Download)
	}

	// Student portal: verified students only
	student := authenticated.Group("/student")
	student.Use(authMiddleware.RoleRequired(models.RoleStudent), authMiddleware.EmailVerificationRequired())
	{
		student.GET("/profile", c.Student.GetProfile)
		student.PUT("/profile", c.Student.UpdateProfile)

		student.GET("/applications", c.Student.MyApplications)
		student.POST("/applications", c.Student.SubmitApplication)

		student.GET("/enrollments", c.Enrollment.MyEnrollments)
		student.POST("/enrollments", c.Enrollment.RequestEnrollment)
		student.GET("/schedule", c.Enrollment.MySchedule)

		student.GET("/grades", c.Grade.MyGrades)

		student.GET("/documents", c.Document.MyDocuments)
		student.POST("/documents", c.Document.Upload)
		student.DELETE("/documents/:id", c.Document.DeleteOwn)
	}

	// Teacher portal
	teacher := authenticated.Group("/teacher")
	teacher.Use(authMiddleware.RoleRequired(models.RoleTeacher))
	{
		teacher.GET("/schedules", c.Enrollment.TeacherSchedules)
		teacher.GET("/schedules/:id/roster", c.Enrollment.Roster)
		teacher.POST("/schedules/:id/grades/submit", c.Grade.BulkSubmit)

		teacher.GET("/grades", c.Grade.ListGrades)
		teacher.GET("/grades/:id", c.Grade.GetGrade)
		teacher.PUT("/grades/:id", c.Grade.UpdateScores)
		teacher.POST("/grades/:id/submit", c.Grade.Submit)
	}

	// Admin area
	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/dashboard", c.Admin.Dashboard)
		admin.GET("/logs", c.Admin.Logs)

		users := admin.Group("/users")
		{
			users.GET("", c.User.ListUsers)
			users.POST("", c.User.CreateUser)
			users.GET("/:id", c.User.GetUser)
			users.PUT("/:id", c.User.UpdateUser)
			users.PATCH("/:id/active", c.User.SetActive)
			users.POST("/:id/reset-password", c.User.ResetPassword)
		}

		admin.GET("/students", c.Student.ListStudents)
		admin.GET("/students/:id", c.Student.GetStudent)
		admin.GET("/applications", c.Student.ListApplications)
		admin.POST("/applications/:id/review", c.Student.ReviewApplication)

		admin.POST("/courses", c.Catalog.CreateCourse)
		admin.PUT("/courses/:id", c.Catalog.UpdateCourse)
		admin.DELETE("/courses/:id", c.Catalog.DeleteCourse)

		admin.GET("/subjects", c.Catalog.ListSubjects)
		admin.GET("/subjects/:id", c.Catalog.GetSubject)
		admin.POST("/subjects", c.Catalog.CreateSubject)
		admin.PUT("/subjects/:id", c.Catalog.UpdateSubject)
		admin.DELETE("/subjects/:id", c.Catalog.DeleteSubject)

		admin.POST("/sections", c.Catalog.CreateSection)
		admin.PUT("/sections/:id", c.Catalog.UpdateSection)
		admin.DELETE("/sections/:id", c.Catalog.DeleteSection)

		admin.GET("/schedules", c.Catalog.ListSchedules)
		admin.GET("/schedules/:id", c.Catalog.GetSchedule)
		admin.POST("/schedules", c.Catalog.CreateSchedule)
		admin.PUT("/schedules/:id", c.Catalog.UpdateSchedule)
		admin.DELETE("/schedules/:id", c.Catalog.DeleteSchedule)
		admin.PUT("/schedules/:id/teacher", c.Catalog.AssignTeacher)
		admin.GET("/schedules/:id/roster", c.Enrollment.Roster)
		admin.POST("/schedules/:id/grades/lock", c.Grade.BulkLock)

		admin.GET("/enrollments", c.Enrollment.ListEnrollments)
		admin.GET("/enrollments/:id", c.Enrollment.GetEnrollment)
		admin.POST("/enrollments/:id/review", c.Enrollment.ReviewEnrollment)

		admin.GET("/grades", c.Grade.ListGrades)
		admin.GET("/grades/:id", c.Grade.GetGrade)
		admin.POST("/grades/:id/approve", c.Grade.Approve)
		admin.POST("/grades/:id/reject", c.Grade.Reject)
		admin.POST("/grades/:id/lock", c.Grade.Lock)
		admin.POST("/grades/:id/unlock", c.Grade.Unlock)

		admin.GET("/documents", c.Document.ListDocuments)
		admin.POST("/documents/:id/review", c.Document.Review)

		exports := admin.Group("/exports")
		{
			exports.GET("/students", c.Admin.ExportStudents)
			exports.GET("/enrollments", c.Admin.ExportEnrollments)
			exports.GET("/schedules/:id/grades", c.Admin.ExportGradeSheet)
		}

		backups := admin.Group("/backups")
		{
			backups.GET("", c.Admin.ListBackups)
			backups.POST("", c.Admin.CreateBackup)
			backups.GET("/:name", c.Admin.DownloadBackup)
			backups.POST("/:name/restore", c.Admin.RestoreBackup)
			backups.DELETE("/:name", c.Admin.DeleteBackup)
		}
	}
}
