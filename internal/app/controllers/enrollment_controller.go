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

// EnrollmentController handles enrollment requests, reviews, schedules and rosters
type EnrollmentController struct {
	enrollments *services.EnrollmentService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollments *services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{enrollments: enrollments}
}

func semesterQuery(ctx *gin.Context) *models.Semester {
	v := queryInt(ctx, "semester")
	if v == nil {
		return nil
	}
	s := models.Semester(*v)
	return &s
}

// RequestEnrollment asks to enroll the caller into a section
// @Summary Request enrollment
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateEnrollmentRequest true "Section"
// @Success 201 {object} dto.APIResponse{data=models.Enrollment}
// @Failure 409 {object} dto.ErrorResponse "Not admitted or already enrolled for the term"
// @Router /student/enrollments [post]
func (c *EnrollmentController) RequestEnrollment(ctx *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	enrollment, err := c.enrollments.Request(ctx.Request.Context(), middleware.CurrentUserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, enrollment, "Enrollment requested")
}

// MyEnrollments lists the caller's enrollments
func (c *EnrollmentController) MyEnrollments(ctx *gin.Context) {
	enrollments, err := c.enrollments.MyEnrollments(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, enrollments, "")
}

// MySchedule returns the caller's weekly class schedule
func (c *EnrollmentController) MySchedule(ctx *gin.Context) {
	schedules, err := c.enrollments.MySchedule(ctx.Request.Context(), middleware.CurrentUserID(ctx), ctx.Query("schoolYear"), semesterQuery(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, schedules, "")
}

// ListEnrollments is the admin enrollment list
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:  helpers.ParseOptionalInt64Query(ctx, "studentId"),
		SectionID:  helpers.ParseOptionalInt64Query(ctx, "sectionId"),
		SchoolYear: ctx.Query("schoolYear"),
		Semester:   semesterQuery(ctx),
	}
	if status := strings.ToUpper(ctx.Query("status")); status != "" {
		s := models.EnrollmentStatus(status)
		filter.Status = &s
	}
	enrollments, err := c.enrollments.ListEnrollments(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, enrollments, "")
}

func (c *EnrollmentController) GetEnrollment(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	enrollment, err := c.enrollments.GetEnrollment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, enrollment, "")
}

// ReviewEnrollment approves, rejects or drops an enrollment
// @Summary Review an enrollment
// @Description Approval checks capacity and creates subject rows and draft grades
// @Tags admin-enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param request body dto.ReviewRequest true "APPROVED, REJECTED or DROPPED"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentCascadeResponse}
// @Failure 409 {object} dto.ErrorResponse "Section full or wrong status"
// @Router /admin/enrollments/{id}/review [post]
func (c *EnrollmentController) ReviewEnrollment(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.enrollments.Review(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp, "Enrollment "+strings.ToLower(resp.Status))
}

// TeacherSchedules lists the classes of the calling teacher
func (c *EnrollmentController) TeacherSchedules(ctx *gin.Context) {
	schedules, err := c.enrollments.TeacherSchedules(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, schedules, "")
}

// Roster lists the students of a schedule; teachers only see their own classes
func (c *EnrollmentController) Roster(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	roster, err := c.enrollments.Roster(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, roster, "")
}
