package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/export"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

const dateLayout = "2006-01-02"

// AdminController serves the dashboard, audit logs, exports and backups
type AdminController struct {
	dashboard *services.DashboardService
	audit     *services.AuditService
	exports   *services.ExportService
	backups   *services.BackupService
	logger    zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(
	dashboard *services.DashboardService,
	audit *services.AuditService,
	exports *services.ExportService,
	backups *services.BackupService,
	logger zerolog.Logger,
) *AdminController {
	return &AdminController{
		dashboard: dashboard,
		audit:     audit,
		exports:   exports,
		backups:   backups,
		logger:    logger,
	}
}

// Dashboard returns the admin counters
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.DashboardStats}
// @Router /admin/dashboard [get]
func (c *AdminController) Dashboard(ctx *gin.Context) {
	stats, err := c.dashboard.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, stats, "")
}

// Logs lists audit entries
// @Summary Admin logs
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param action query string false "Action, e.g. GRADE_APPROVE"
// @Param actorId query int false "Acting user"
// @Param entityType query string false "Entity type, e.g. grade"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD), inclusive"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admin/logs [get]
func (c *AdminController) Logs(ctx *gin.Context) {
	filter := models.AdminLogFilter{
		Action:     strings.ToUpper(ctx.Query("action")),
		ActorID:    helpers.ParseOptionalInt64Query(ctx, "actorId"),
		EntityType: strings.ToLower(ctx.Query("entityType")),
	}
	if from, err := time.Parse(dateLayout, ctx.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(dateLayout, ctx.Query("to")); err == nil {
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	logs, err := c.audit.List(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, logs, "")
}

// ExportStudents downloads the student masterlist
// @Summary Export students
// @Tags admin-exports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv or xlsx" default(csv)
// @Router /admin/exports/students [get]
func (c *AdminController) ExportStudents(ctx *gin.Context) {
	filter := models.StudentFilter{
		Search:       strings.TrimSpace(ctx.Query("search")),
		SchoolYear:   ctx.Query("schoolYear"),
		CourseID:     helpers.ParseOptionalInt64Query(ctx, "courseId"),
		EnrolledOnly: ctx.Query("enrolled") == "true",
	}
	c.writeExport(ctx, "students", func() (export.Table, error) {
		return c.exports.Students(ctx.Request.Context(), actorFrom(ctx), filter)
	})
}

// ExportEnrollments downloads the enrollment report
func (c *AdminController) ExportEnrollments(ctx *gin.Context) {
	filter := models.EnrollmentFilter{
		SectionID:  helpers.ParseOptionalInt64Query(ctx, "sectionId"),
		SchoolYear: ctx.Query("schoolYear"),
		Semester:   semesterQuery(ctx),
	}
	if status := strings.ToUpper(ctx.Query("status")); status != "" {
		s := models.EnrollmentStatus(status)
		filter.Status = &s
	}
	c.writeExport(ctx, "enrollments", func() (export.Table, error) {
		return c.exports.Enrollments(ctx.Request.Context(), actorFrom(ctx), filter)
	})
}

// ExportGradeSheet downloads the grade sheet of one schedule
func (c *AdminController) ExportGradeSheet(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	c.writeExport(ctx, fmt.Sprintf("grades-schedule-%d", id), func() (export.Table, error) {
		return c.exports.GradeSheet(ctx.Request.Context(), actorFrom(ctx), id)
	})
}

// writeExport renders the table fully before any header is written
func (c *AdminController) writeExport(ctx *gin.Context, base string, build func() (export.Table, error)) {
	format, err := export.ParseFormat(ctx.Query("format"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Unsupported export format").
			WithField("format").
			WithDetails("format must be csv or xlsx")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	table, err := build()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		c.logger.Error().Err(err).Str("export", base).Msg("Failed to render export")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", attachment(format.FileName(base, time.Now())))
	ctx.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// CreateBackup runs pg_dump
// @Summary Create a database backup
// @Tags admin-backups
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.APIResponse{data=dto.BackupResponse}
// @Failure 500 {object} dto.ErrorResponse "Backup command failed"
// @Router /admin/backups [post]
func (c *AdminController) CreateBackup(ctx *gin.Context) {
	backup, err := c.backups.Create(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, backup, "Backup created")
}

func (c *AdminController) ListBackups(ctx *gin.Context) {
	backups, err := c.backups.List()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, backups, "")
}

// DownloadBackup streams a dump file
func (c *AdminController) DownloadBackup(ctx *gin.Context) {
	name := ctx.Param("name")
	path, err := c.backups.Path(name)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.FileAttachment(path, name)
}

// RestoreBackup replays a dump over the live database
// @Summary Restore a database backup
// @Tags admin-backups
// @Produce json
// @Security BearerAuth
// @Param name path string true "Backup file name"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Backup not found"
// @Router /admin/backups/{name}/restore [post]
func (c *AdminController) RestoreBackup(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.backups.Restore(ctx.Request.Context(), actorFrom(ctx), name); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Backup restored")
}

func (c *AdminController) DeleteBackup(ctx *gin.Context) {
	if err := c.backups.Delete(ctx.Request.Context(), actorFrom(ctx), ctx.Param("name")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Backup deleted")
}
