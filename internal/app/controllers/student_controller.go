package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

// StudentController handles student profiles and admission applications
type StudentController struct {
	students *services.StudentService
}

// NewStudentController creates a new StudentController
func NewStudentController(students *services.StudentService) *StudentController {
	return &StudentController{students: students}
}

// GetProfile returns the caller's student profile
// @Summary My student profile
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Student}
// @Router /student/profile [get]
func (c *StudentController) GetProfile(ctx *gin.Context) {
	student, err := c.students.GetProfile(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, student, "")
}

// UpdateProfile edits personal data and the address
// @Summary Update my student profile
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateStudentProfileRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Student}
// @Failure 400 {object} dto.ErrorResponse "Validation failed or address codes do not match"
// @Router /student/profile [put]
func (c *StudentController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateStudentProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	student, err := c.students.UpdateProfile(ctx.Request.Context(), middleware.CurrentUserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, student, "Profile updated")
}

// SubmitApplication files an admission application
// @Summary Apply for admission
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateApplicationRequest true "Application"
// @Success 201 {object} dto.APIResponse{data=models.Application}
// @Failure 409 {object} dto.ErrorResponse "Pending or approved application exists"
// @Router /student/applications [post]
func (c *StudentController) SubmitApplication(ctx *gin.Context) {
	var req dto.CreateApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	app, err := c.students.SubmitApplication(ctx.Request.Context(), middleware.CurrentUserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, app, "Application submitted")
}

// MyApplications lists the caller's applications
func (c *StudentController) MyApplications(ctx *gin.Context) {
	apps, err := c.students.MyApplications(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, apps, "")
}

// ListStudents is the admin student list
func (c *StudentController) ListStudents(ctx *gin.Context) {
	filter := models.StudentFilter{
		Search:       strings.TrimSpace(ctx.Query("search")),
		HasNumber:    queryBool(ctx, "hasNumber"),
		SchoolYear:   ctx.Query("schoolYear"),
		CourseID:     helpers.ParseOptionalInt64Query(ctx, "courseId"),
		EnrolledOnly: ctx.Query("enrolled") == "true",
	}
	students, err := c.students.ListStudents(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, students, "")
}

// GetStudent returns one student
func (c *StudentController) GetStudent(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	student, err := c.students.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, student, "")
}

// ListApplications is the admin application queue
func (c *StudentController) ListApplications(ctx *gin.Context) {
	filter := models.ApplicationFilter{
		SchoolYear: ctx.Query("schoolYear"),
		StudentID:  helpers.ParseOptionalInt64Query(ctx, "studentId"),
	}
	if status := strings.ToUpper(ctx.Query("status")); status != "" {
		s := models.ApplicationStatus(status)
		filter.Status = &s
	}
	apps, err := c.students.ListApplications(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, apps, "")
}

// ReviewApplication approves or rejects an application
// @Summary Review an application
// @Description Approval assigns the student number when the student has none
// @Tags admin-students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.ReviewRequest true "APPROVED or REJECTED with remarks"
// @Success 200 {object} dto.APIResponse{data=models.Application}
// @Failure 409 {object} dto.ErrorResponse "Application is not pending"
// @Router /admin/applications/{id}/review [post]
func (c *StudentController) ReviewApplication(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	app, err := c.students.ReviewApplication(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, app, "Application "+strings.ToLower(string(app.Status)))
}
