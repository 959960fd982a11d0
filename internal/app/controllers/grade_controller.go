package controllers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

// GradeController handles grade entry, approval and locking
type GradeController struct {
	grades *services.GradeService
}

// NewGradeController creates a new GradeController
func NewGradeController(grades *services.GradeService) *GradeController {
	return &GradeController{grades: grades}
}

// ListGrades lists grades; teachers are limited to their own
// @Summary List grades
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param scheduleId query int false "Schedule"
// @Param status query string false "DRAFT, SUBMITTED, APPROVED, REJECTED or LOCKED"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /grades [get]
func (c *GradeController) ListGrades(ctx *gin.Context) {
	filter := models.GradeFilter{
		ScheduleID: helpers.ParseOptionalInt64Query(ctx, "scheduleId"),
		TeacherID:  helpers.ParseOptionalInt64Query(ctx, "teacherId"),
		StudentID:  helpers.ParseOptionalInt64Query(ctx, "studentId"),
		SchoolYear: ctx.Query("schoolYear"),
	}
	if status := strings.ToUpper(ctx.Query("status")); status != "" {
		s := models.GradeStatus(status)
		filter.Status = &s
	}
	grades, err := c.grades.ListGrades(ctx.Request.Context(), actorFrom(ctx), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grades, "")
}

func (c *GradeController) GetGrade(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	grade, err := c.grades.GetGrade(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grade, "")
}

// UpdateScores sets quarter scores on a draft or rejected grade
// @Summary Enter quarter scores
// @Tags grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grade ID"
// @Param request body dto.UpdateGradeRequest true "Scores 0-100"
// @Success 200 {object} dto.APIResponse{data=models.Grade}
// @Failure 409 {object} dto.ErrorResponse "Grade can no longer be edited"
// @Router /teacher/grades/{id} [put]
func (c *GradeController) UpdateScores(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateGradeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	grade, err := c.grades.UpdateScores(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grade, "Grade saved")
}

// Submit sends a grade for approval
func (c *GradeController) Submit(ctx *gin.Context) {
	c.transition(ctx, c.grades.Submit, "Grade submitted")
}

// Approve godoc
// @Summary Approve a submitted grade
// @Tags admin-grades
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grade ID"
// @Success 200 {object} dto.APIResponse{data=models.Grade}
// @Failure 409 {object} dto.ErrorResponse "Grade status does not allow this action"
// @Router /admin/grades/{id}/approve [post]
func (c *GradeController) Approve(ctx *gin.Context) {
	c.transition(ctx, c.grades.Approve, "Grade approved")
}

func (c *GradeController) Lock(ctx *gin.Context) {
	c.transition(ctx, c.grades.Lock, "Grade locked")
}

func (c *GradeController) Unlock(ctx *gin.Context) {
	c.transition(ctx, c.grades.Unlock, "Grade unlocked")
}

func (c *GradeController) transition(ctx *gin.Context, fn func(context.Context, services.Actor, int64) (*models.Grade, error), message string) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	grade, err := fn(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grade, message)
}

// Reject sends a submitted grade back to the teacher with a reason
func (c *GradeController) Reject(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.RejectGradeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	grade, err := c.grades.Reject(ctx.Request.Context(), actorFrom(ctx), id, req.Reason)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grade, "Grade rejected")
}

// BulkSubmit submits every complete editable grade of a schedule
func (c *GradeController) BulkSubmit(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	result, err := c.grades.BulkSubmit(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, result, "")
}

// BulkLock locks every approved grade of a schedule
func (c *GradeController) BulkLock(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	result, err := c.grades.BulkLock(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, result, "")
}

// MyGrades lists the caller's approved and locked grades
func (c *GradeController) MyGrades(ctx *gin.Context) {
	grades, err := c.grades.StudentGrades(ctx.Request.Context(), middleware.CurrentUserID(ctx), ctx.Query("schoolYear"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, grades, "")
}
