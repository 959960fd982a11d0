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

// EnrollmentService handles enrollment requests and their review
type EnrollmentService struct {
	enrollmentRepo repositories.IEnrollmentRepository
	studentRepo    repositories.IStudentRepository
	appRepo        repositories.IApplicationRepository
	sectionRepo    repositories.ISectionRepository
	scheduleRepo   repositories.IScheduleRepository
	gradeRepo      repositories.IGradeRepository
	audit          *AuditService
	tx             db.TxManager
	logger         zerolog.Logger
	now            func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	enrollmentRepo repositories.IEnrollmentRepository,
	studentRepo repositories.IStudentRepository,
	appRepo repositories.IApplicationRepository,
	sectionRepo repositories.ISectionRepository,
	scheduleRepo repositories.IScheduleRepository,
	gradeRepo repositories.IGradeRepository,
	audit *AuditService,
	tx db.TxManager,
	logger zerolog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		studentRepo:    studentRepo,
		appRepo:        appRepo,
		sectionRepo:    sectionRepo,
		scheduleRepo:   scheduleRepo,
		gradeRepo:      gradeRepo,
		audit:          audit,
		tx:             tx,
		logger:         logger,
		now:            time.Now,
	}
}

// Request files a PENDING enrollment of the caller into a section
func (s *EnrollmentService) Request(ctx context.Context, userID int64, req *dto.CreateEnrollmentRequest) (*models.Enrollment, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps, err := s.appRepo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	var admission *models.Application
	for _, a := range apps {
		if a.Status == models.ApplicationApproved {
			admission = a
			break
		}
	}
	if admission == nil || student.StudentNumber == nil {
		return nil, apperrors.ErrNotAdmitted
	}

	var enrollment *models.Enrollment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		section, err := s.sectionRepo.GetByID(ctx, req.SectionID)
		if err != nil {
			return err
		}
		if section.CourseID != admission.CourseID {
			return apperrors.NewBadRequestError("section belongs to a different course than your admission")
		}

		active, err := s.enrollmentRepo.HasActiveForTerm(ctx, student.ID, section.SchoolYear, section.Semester)
		if err != nil {
			return err
		}
		if active {
			return apperrors.ErrEnrollmentExists
		}

		id, err := s.enrollmentRepo.Create(ctx, &models.Enrollment{
			StudentID:  student.ID,
			SectionID:  section.ID,
			SchoolYear: section.SchoolYear,
			Semester:   section.Semester,
			Status:     models.EnrollmentPending,
		})
		if err != nil {
			return err
		}
		enrollment, err = s.enrollmentRepo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("studentID", student.ID).Int64("enrollmentID", enrollment.ID).Msg("Enrollment requested")
	return enrollment, nil
}

// Review applies an admin decision: APPROVED, REJECTED or DROPPED
func (s *EnrollmentService) Review(ctx context.Context, actor Actor, id int64, req *dto.ReviewRequest) (*dto.EnrollmentCascadeResponse, error) {
	remarks := optionalString(req.Remarks)
	switch models.EnrollmentStatus(strings.ToUpper(req.Status)) {
	case models.EnrollmentApproved:
		return s.Approve(ctx, actor, id, remarks)
	case models.EnrollmentRejected:
		return s.Reject(ctx, actor, id, remarks)
	case models.EnrollmentDropped:
		return s.Drop(ctx, actor, id, remarks)
	default:
		return nil, apperrors.NewValidationError("status must be APPROVED, REJECTED or DROPPED")
	}
}

// Approve accepts a pending enrollment when the section has room, then
// creates its enrollment subjects and draft grades
func (s *EnrollmentService) Approve(ctx context.Context, actor Actor, id int64, remarks *string) (*dto.EnrollmentCascadeResponse, error) {
	resp := &dto.EnrollmentCascadeResponse{EnrollmentID: id, Status: string(models.EnrollmentApproved)}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollmentRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if enrollment.Status != models.EnrollmentPending {
			return apperrors.ErrEnrollmentNotPending
		}

		// Enrollment row first, then section: concurrent reviews of one
		// enrollment and approvals into one section both serialise
		section, err := s.sectionRepo.GetByIDForUpdate(ctx, enrollment.SectionID)
		if err != nil {
			return err
		}
		approved, err := s.enrollmentRepo.CountApprovedBySection(ctx, section.ID)
		if err != nil {
			return err
		}
		if approved >= section.Capacity {
			return apperrors.ErrSectionFull
		}

		if err := s.enrollmentRepo.UpdateStatus(ctx, id, models.EnrollmentApproved, remarks, actor.UserID, s.now()); err != nil {
			return err
		}

		schedules, err := s.scheduleRepo.ListBySection(ctx, section.ID)
		if err != nil {
			return err
		}
		for _, sc := range schedules {
			esID, created, err := s.enrollmentRepo.EnsureSubject(ctx, id, sc.ID)
			if err != nil {
				return err
			}
			if created {
				resp.EnrollmentSubjectsCreated++
			}
			if sc.TeacherID == nil {
				continue
			}
			gradeCreated, err := s.gradeRepo.EnsureDraft(ctx, esID, sc.TeacherID)
			if err != nil {
				return err
			}
			if gradeCreated {
				resp.GradesCreated++
			}
		}

		return s.audit.Record(ctx, actor, models.ActionEnrollmentApprove, models.EntityEnrollment, int64Ptr(id), map[string]interface{}{
			"studentId":                 enrollment.StudentID,
			"sectionId":                 section.ID,
			"enrollmentSubjectsCreated": resp.EnrollmentSubjectsCreated,
			"gradesCreated":             resp.GradesCreated,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("enrollmentID", id).Int("subjects", resp.EnrollmentSubjectsCreated).Msg("Enrollment approved")
	return resp, nil
}

// Reject declines a pending enrollment
func (s *EnrollmentService) Reject(ctx context.Context, actor Actor, id int64, remarks *string) (*dto.EnrollmentCascadeResponse, error) {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollmentRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if enrollment.Status != models.EnrollmentPending {
			return apperrors.ErrEnrollmentNotPending
		}
		if err := s.enrollmentRepo.UpdateStatus(ctx, id, models.EnrollmentRejected, remarks, actor.UserID, s.now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionEnrollmentReject, models.EntityEnrollment, int64Ptr(id), map[string]interface{}{
			"studentId": enrollment.StudentID,
			"remarks":   remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	return &dto.EnrollmentCascadeResponse{EnrollmentID: id, Status: string(models.EnrollmentRejected)}, nil
}

// Drop withdraws an approved enrollment. Draft grades with no scores are removed;
// anything a teacher has already entered is kept.
func (s *EnrollmentService) Drop(ctx context.Context, actor Actor, id int64, remarks *string) (*dto.EnrollmentCascadeResponse, error) {
	resp := &dto.EnrollmentCascadeResponse{EnrollmentID: id, Status: string(models.EnrollmentDropped)}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollmentRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if enrollment.Status != models.EnrollmentApproved {
			return apperrors.ErrEnrollmentNotApproved
		}
		if err := s.enrollmentRepo.UpdateStatus(ctx, id, models.EnrollmentDropped, remarks, actor.UserID, s.now()); err != nil {
			return err
		}
		removed, err := s.gradeRepo.DeleteEmptyDrafts(ctx, id)
		if err != nil {
			return err
		}
		resp.GradesRemoved = int(removed)
		return s.audit.Record(ctx, actor, models.ActionEnrollmentDrop, models.EntityEnrollment, int64Ptr(id), map[string]interface{}{
			"studentId":     enrollment.StudentID,
			"gradesRemoved": removed,
			"remarks":       remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetEnrollment returns one enrollment
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	return s.enrollmentRepo.GetByID(ctx, id)
}

// ListEnrollments returns a page of enrollments for admins
func (s *EnrollmentService) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.enrollmentRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	if items == nil {
		items = []*models.Enrollment{}
	}
	return paginated(items, total, p), nil
}

// MyEnrollments lists the caller's enrollments, newest first
func (s *EnrollmentService) MyEnrollments(ctx context.Context, userID int64) ([]*models.Enrollment, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, _, err := s.enrollmentRepo.List(ctx, models.EnrollmentFilter{StudentID: &student.ID}, 0, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Enrollment{}
	}
	return items, nil
}

// MySchedule returns the weekly timetable of the caller's approved enrollments.
// An empty school year covers every year.
func (s *EnrollmentService) MySchedule(ctx context.Context, userID int64, schoolYear string, semester *models.Semester) ([]*models.Schedule, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.scheduleRepo.ListForStudent(ctx, student.ID, schoolYear, semester)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Schedule{}
	}
	return items, nil
}

// Roster lists the students of a schedule. Teachers only see their own classes.
func (s *EnrollmentService) Roster(ctx context.Context, actor Actor, scheduleID int64) ([]models.RosterEntry, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && (schedule.TeacherID == nil || *schedule.TeacherID != actor.UserID) {
		return nil, apperrors.NewForbiddenError("you are not assigned to this schedule")
	}
	roster, err := s.enrollmentRepo.ListRoster(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}

// TeacherSchedules lists the schedules assigned to a teacher
func (s *EnrollmentService) TeacherSchedules(ctx context.Context, teacherID int64) ([]*models.Schedule, error) {
	items, _, err := s.scheduleRepo.List(ctx, models.ScheduleFilter{TeacherID: &teacherID}, 0, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Schedule{}
	}
	return items, nil
}
