package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// DefaultPassingGrade applies when no grading.passing_grade is configured
const DefaultPassingGrade = 75.0

var gradeActionLog = map[models.GradeAction]string{
	models.GradeActionApprove: models.ActionGradeApprove,
	models.GradeActionReject:  models.ActionGradeReject,
	models.GradeActionLock:    models.ActionGradeLock,
	models.GradeActionUnlock:  models.ActionGradeUnlock,
}

// GradeService handles grade entry and the approval workflow
type GradeService struct {
	gradeRepo    repositories.IGradeRepository
	scheduleRepo repositories.IScheduleRepository
	studentRepo  repositories.IStudentRepository
	audit        *AuditService
	tx           db.TxManager
	passingGrade float64
	logger       zerolog.Logger
	now          func() time.Time
}

// NewGradeService creates a new GradeService
func NewGradeService(
	gradeRepo repositories.IGradeRepository,
	scheduleRepo repositories.IScheduleRepository,
	studentRepo repositories.IStudentRepository,
	audit *AuditService,
	tx db.TxManager,
	passingGrade float64,
	logger zerolog.Logger,
) *GradeService {
	if passingGrade <= 0 {
		passingGrade = DefaultPassingGrade
	}
	return &GradeService{
		gradeRepo:    gradeRepo,
		scheduleRepo: scheduleRepo,
		studentRepo:  studentRepo,
		audit:        audit,
		tx:           tx,
		passingGrade: passingGrade,
		logger:       logger,
		now:          time.Now,
	}
}

func ownsGrade(actor Actor, g *models.Grade) bool {
	return g.TeacherID != nil && *g.TeacherID == actor.UserID
}

// ListGrades returns a page of grades. Teachers are limited to their own.
func (s *GradeService) ListGrades(ctx context.Context, actor Actor, filter models.GradeFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = &actor.UserID
	}
	offset, limit := p.bounds()
	items, total, err := s.gradeRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing grades: %w", err)
	}
	if items == nil {
		items = []*models.Grade{}
	}
	return paginated(items, total, p), nil
}

// GetGrade returns a grade visible to the caller
func (s *GradeService) GetGrade(ctx context.Context, actor Actor, id int64) (*models.Grade, error) {
	g, err := s.gradeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && !ownsGrade(actor, g) {
		return nil, apperrors.NewForbiddenError("grade belongs to another teacher")
	}
	return g, nil
}

// UpdateScores sets the quarters present in req and recomputes the final grade
func (s *GradeService) UpdateScores(ctx context.Context, actor Actor, id int64, req *dto.UpdateGradeRequest) (*models.Grade, error) {
	for _, q := range []*float64{req.Q1, req.Q2, req.Q3, req.Q4} {
		if q != nil && (*q < 0 || *q > 100) {
			return nil, apperrors.NewValidationError("quarter grades must be between 0 and 100")
		}
	}

	var grade *models.Grade
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		g, err := s.gradeRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !ownsGrade(actor, g) {
			return apperrors.NewForbiddenError("grade belongs to another teacher")
		}
		if !g.Status.IsEditable() {
			return apperrors.ErrGradeNotEditable
		}
		if req.Q1 != nil {
			g.Q1 = req.Q1
		}
		if req.Q2 != nil {
			g.Q2 = req.Q2
		}
		if req.Q3 != nil {
			g.Q3 = req.Q3
		}
		if req.Q4 != nil {
			g.Q4 = req.Q4
		}
		g.Recompute(s.passingGrade)
		if err := s.gradeRepo.Save(ctx, g); err != nil {
			return err
		}
		grade = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grade, nil
}

// Submit sends a complete grade for approval
func (s *GradeService) Submit(ctx context.Context, actor Actor, id int64) (*models.Grade, error) {
	var grade *models.Grade
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		g, err := s.gradeRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !ownsGrade(actor, g) {
			return apperrors.NewForbiddenError("grade belongs to another teacher")
		}
		if err := s.submit(ctx, g); err != nil {
			return err
		}
		grade = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grade, nil
}

func (s *GradeService) submit(ctx context.Context, g *models.Grade) error {
	next, ok := g.Status.Next(models.GradeActionSubmit)
	if !ok {
		return apperrors.ErrInvalidGradeTransition
	}
	if !g.IsComplete() {
		return apperrors.ErrGradeIncomplete
	}
	now := s.now()
	g.Recompute(s.passingGrade)
	g.Status = next
	g.SubmittedAt = &now
	g.RejectionReason = nil
	return s.gradeRepo.Save(ctx, g)
}

// Approve accepts a submitted grade
func (s *GradeService) Approve(ctx context.Context, actor Actor, id int64) (*models.Grade, error) {
	return s.adminTransition(ctx, actor, id, models.GradeActionApprove, "")
}

// Reject returns a submitted grade to its teacher with a reason
func (s *GradeService) Reject(ctx context.Context, actor Actor, id int64, reason string) (*models.Grade, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("a rejection reason is required")
	}
	return s.adminTransition(ctx, actor, id, models.GradeActionReject, reason)
}

// Lock freezes an approved grade
func (s *GradeService) Lock(ctx context.Context, actor Actor, id int64) (*models.Grade, error) {
	return s.adminTransition(ctx, actor, id, models.GradeActionLock, "")
}

// Unlock returns a locked grade to APPROVED
func (s *GradeService) Unlock(ctx context.Context, actor Actor, id int64) (*models.Grade, error) {
	return s.adminTransition(ctx, actor, id, models.GradeActionUnlock, "")
}

func (s *GradeService) adminTransition(ctx context.Context, actor Actor, id int64, action models.GradeAction, reason string) (*models.Grade, error) {
	var grade *models.Grade
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		g, err := s.gradeRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, actor, g, action, reason); err != nil {
			return err
		}
		grade = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grade, nil
}

// apply moves g through an admin action, saves it and records the change
func (s *GradeService) apply(ctx context.Context, actor Actor, g *models.Grade, action models.GradeAction, reason string) error {
	from := g.Status
	next, ok := from.Next(action)
	if !ok {
		return apperrors.ErrInvalidGradeTransition
	}

	now := s.now()
	switch action {
	case models.GradeActionApprove:
		g.ApprovedBy, g.ApprovedAt = int64Ptr(actor.UserID), &now
	case models.GradeActionReject:
		g.RejectionReason = &reason
	case models.GradeActionLock:
		g.LockedBy, g.LockedAt = int64Ptr(actor.UserID), &now
	case models.GradeActionUnlock:
		g.LockedBy, g.LockedAt = nil, nil
	}
	g.Status = next
	if err := s.gradeRepo.Save(ctx, g); err != nil {
		return err
	}

	details := map[string]interface{}{
		"from":      from,
		"to":        next,
		"studentId": g.StudentID,
		"subject":   g.SubjectCode,
	}
	if reason != "" {
		details["reason"] = reason
	}
	return s.audit.Record(ctx, actor, gradeActionLog[action], models.EntityGrade, int64Ptr(g.ID), details)
}

// BulkSubmit submits every complete, editable grade the teacher owns in a schedule
func (s *GradeService) BulkSubmit(ctx context.Context, actor Actor, scheduleID int64) (*dto.BulkGradeResult, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && (schedule.TeacherID == nil || *schedule.TeacherID != actor.UserID) {
		return nil, apperrors.NewForbiddenError("you are not assigned to this schedule")
	}

	result := &dto.BulkGradeResult{Processed: []int64{}, Skipped: []dto.BulkSkip{}}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		grades, _, err := s.gradeRepo.List(ctx, models.GradeFilter{ScheduleID: &scheduleID}, 0, 0)
		if err != nil {
			return err
		}
		for _, g := range grades {
			switch {
			case !ownsGrade(actor, g):
				result.Skipped = append(result.Skipped, dto.BulkSkip{GradeID: g.ID, Reason: "assigned to another teacher"})
			case !g.Status.IsEditable():
				result.Skipped = append(result.Skipped, dto.BulkSkip{GradeID: g.ID, Reason: "status is " + string(g.Status)})
			case !g.IsComplete():
				result.Skipped = append(result.Skipped, dto.BulkSkip{GradeID: g.ID, Reason: "incomplete quarters"})
			default:
				if err := s.submit(ctx, g); err != nil {
					return err
				}
				result.Processed = append(result.Processed, g.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("scheduleID", scheduleID).Int("submitted", len(result.Processed)).Msg("Bulk grade submission")
	return result, nil
}

// BulkLock locks every approved grade of a schedule
func (s *GradeService) BulkLock(ctx context.Context, actor Actor, scheduleID int64) (*dto.BulkGradeResult, error) {
	if _, err := s.scheduleRepo.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}

	result := &dto.BulkGradeResult{Processed: []int64{}, Skipped: []dto.BulkSkip{}}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		grades, _, err := s.gradeRepo.List(ctx, models.GradeFilter{ScheduleID: &scheduleID}, 0, 0)
		if err != nil {
			return err
		}
		for _, g := range grades {
			if g.Status != models.GradeApproved {
				result.Skipped = append(result.Skipped, dto.BulkSkip{GradeID: g.ID, Reason: "status is " + string(g.Status)})
				continue
			}
			if err := s.apply(ctx, actor, g, models.GradeActionLock, ""); err != nil {
				return err
			}
			result.Processed = append(result.Processed, g.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StudentGrades lists the caller's approved and locked grades
func (s *GradeService) StudentGrades(ctx context.Context, userID int64, schoolYear string) ([]*models.Grade, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, _, err := s.gradeRepo.List(ctx, models.GradeFilter{
		StudentID:  &student.ID,
		SchoolYear: schoolYear,
		FinalOnly:  true,
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Grade{}
	}
	return items, nil
}

// ScheduleGrades returns every grade of a schedule for the grade sheet
func (s *GradeService) ScheduleGrades(ctx context.Context, scheduleID int64) (*models.Schedule, []*models.Grade, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, err
	}
	grades, _, err := s.gradeRepo.List(ctx, models.GradeFilter{ScheduleID: &scheduleID}, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return schedule, grades, nil
}
