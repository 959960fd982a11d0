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

// CatalogController handles courses, subjects, sections and schedules
type CatalogController struct {
	catalog *services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ListCourses lists courses. Non-admins only see active ones.
// @Summary List courses
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param search query string false "Code or name"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /courses [get]
func (c *CatalogController) ListCourses(ctx *gin.Context) {
	activeOnly := middleware.CurrentRole(ctx) != models.RoleAdmin || ctx.Query("active") == "true"
	courses, err := c.catalog.ListCourses(ctx.Request.Context(), strings.TrimSpace(ctx.Query("search")), activeOnly, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, courses, "")
}

func (c *CatalogController) GetCourse(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	course, err := c.catalog.GetCourse(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, course, "")
}

// CreateCourse godoc
// @Summary Create course
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=models.Course}
// @Failure 409 {object} dto.ErrorResponse "Code already exists"
// @Router /admin/courses [post]
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	course, err := c.catalog.CreateCourse(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, course, "Course created")
}

func (c *CatalogController) UpdateCourse(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	course, err := c.catalog.UpdateCourse(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, course, "Course updated")
}

// DeleteCourse fails with 409 while sections or applications reference the course
func (c *CatalogController) DeleteCourse(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteCourse(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Course deleted")
}

func (c *CatalogController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.catalog.ListSubjects(ctx.Request.Context(), strings.TrimSpace(ctx.Query("search")), pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, subjects, "")
}

func (c *CatalogController) GetSubject(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	subject, err := c.catalog.GetSubject(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, subject, "")
}

func (c *CatalogController) CreateSubject(ctx *gin.Context) {
	var req dto.SubjectRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	subject, err := c.catalog.CreateSubject(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, subject, "Subject created")
}

func (c *CatalogController) UpdateSubject(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.SubjectRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	subject, err := c.catalog.UpdateSubject(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, subject, "Subject updated")
}

func (c *CatalogController) DeleteSubject(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteSubject(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Subject deleted")
}

// ListSections filters by course, school year, semester and year level
func (c *CatalogController) ListSections(ctx *gin.Context) {
	filter := models.SectionFilter{
		CourseID:   helpers.ParseOptionalInt64Query(ctx, "courseId"),
		SchoolYear: ctx.Query("schoolYear"),
		YearLevel:  queryInt(ctx, "yearLevel"),
	}
	if sem := queryInt(ctx, "semester"); sem != nil {
		s := models.Semester(*sem)
		filter.Semester = &s
	}
	sections, err := c.catalog.ListSections(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, sections, "")
}

func (c *CatalogController) GetSection(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	section, err := c.catalog.GetSection(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, section, "")
}

func (c *CatalogController) CreateSection(ctx *gin.Context) {
	var req dto.SectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	section, err := c.catalog.CreateSection(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, section, "Section created")
}

func (c *CatalogController) UpdateSection(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.SectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	section, err := c.catalog.UpdateSection(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, section, "Section updated")
}

func (c *CatalogController) DeleteSection(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteSection(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Section deleted")
}

func (c *CatalogController) ListSchedules(ctx *gin.Context) {
	filter := models.ScheduleFilter{
		SectionID: helpers.ParseOptionalInt64Query(ctx, "sectionId"),
		TeacherID: helpers.ParseOptionalInt64Query(ctx, "teacherId"),
		SubjectID: helpers.ParseOptionalInt64Query(ctx, "subjectId"),
	}
	schedules, err := c.catalog.ListSchedules(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, schedules, "")
}

func (c *CatalogController) GetSchedule(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	schedule, err := c.catalog.GetSchedule(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, schedule, "")
}

// CreateSchedule creates a schedule; a teacher in the request runs the enrollment cascade
func (c *CatalogController) CreateSchedule(ctx *gin.Context) {
	var req dto.ScheduleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	schedule, err := c.catalog.CreateSchedule(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, schedule, "Schedule created")
}

func (c *CatalogController) UpdateSchedule(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ScheduleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	schedule, err := c.catalog.UpdateSchedule(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, schedule, "Schedule updated")
}

func (c *CatalogController) DeleteSchedule(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteSchedule(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Schedule deleted")
}

// AssignTeacher sets or clears the teacher of a schedule
// @Summary Assign a teacher
// @Description Enrolls every approved student of the section into the schedule and hands their unfinished grades to the teacher
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Param request body dto.AssignTeacherRequest true "Teacher, or null to unassign"
// @Success 200 {object} dto.APIResponse{data=dto.AssignTeacherResponse}
// @Failure 400 {object} dto.ErrorResponse "User is not an active teacher"
// @Router /admin/schedules/{id}/teacher [put]
func (c *CatalogController) AssignTeacher(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.AssignTeacherRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.catalog.AssignTeacher(ctx.Request.Context(), actorFrom(ctx), id, req.TeacherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp, "Teacher assignment saved")
}
