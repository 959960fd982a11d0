package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// CatalogService manages courses, subjects, sections and schedules
type CatalogService struct {
	courseRepo     repositories.ICourseRepository
	subjectRepo    repositories.ISubjectRepository
	sectionRepo    repositories.ISectionRepository
	scheduleRepo   repositories.IScheduleRepository
	enrollmentRepo repositories.IEnrollmentRepository
	gradeRepo      repositories.IGradeRepository
	userRepo       repositories.IUserRepository
	audit          *AuditService
	tx             db.TxManager
	logger         zerolog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	courseRepo repositories.ICourseRepository,
	subjectRepo repositories.ISubjectRepository,
	sectionRepo repositories.ISectionRepository,
	scheduleRepo repositories.IScheduleRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	gradeRepo repositories.IGradeRepository,
	userRepo repositories.IUserRepository,
	audit *AuditService,
	tx db.TxManager,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		courseRepo:     courseRepo,
		subjectRepo:    subjectRepo,
		sectionRepo:    sectionRepo,
		scheduleRepo:   scheduleRepo,
		enrollmentRepo: enrollmentRepo,
		gradeRepo:      gradeRepo,
		userRepo:       userRepo,
		audit:          audit,
		tx:             tx,
		logger:         logger,
	}
}

// --- Courses ---

func (s *CatalogService) ListCourses(ctx context.Context, search string, activeOnly bool, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.courseRepo.List(ctx, search, activeOnly, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	if items == nil {
		items = []*models.Course{}
	}
	return paginated(items, total, p), nil
}

func (s *CatalogService) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

func (s *CatalogService) CreateCourse(ctx context.Context, actor Actor, req *dto.CourseRequest) (*models.Course, error) {
	course := &models.Course{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		Description: trimmedPtr(req.Description),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.courseRepo.Create(ctx, course); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionCourseCreate, models.EntityCourse, int64Ptr(course.ID), map[string]string{"code": course.Code})
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, actor Actor, id int64, req *dto.CourseRequest) (*models.Course, error) {
	var course *models.Course
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		course, err = s.courseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		course.Code = strings.ToUpper(strings.TrimSpace(req.Code))
		course.Name = strings.TrimSpace(req.Name)
		course.Description = trimmedPtr(req.Description)
		if req.IsActive != nil {
			course.IsActive = *req.IsActive
		}
		if err := s.courseRepo.Update(ctx, course); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionCourseUpdate, models.EntityCourse, int64Ptr(id), map[string]interface{}{"code": course.Code, "isActive": course.IsActive})
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) DeleteCourse(ctx context.Context, actor Actor, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		course, err := s.courseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.courseRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionCourseDelete, models.EntityCourse, int64Ptr(id), map[string]string{"code": course.Code})
	})
}

// --- Subjects ---

func (s *CatalogService) ListSubjects(ctx context.Context, search string, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.subjectRepo.List(ctx, search, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing subjects: %w", err)
	}
	if items == nil {
		items = []*models.Subject{}
	}
	return paginated(items, total, p), nil
}

func (s *CatalogService) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	return s.subjectRepo.GetByID(ctx, id)
}

func (s *CatalogService) CreateSubject(ctx context.Context, actor Actor, req *dto.SubjectRequest) (*models.Subject, error) {
	subject := &models.Subject{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		Units:       req.Units,
		Description: trimmedPtr(req.Description),
	}
	if subject.Units <= 0 {
		return nil, apperrors.NewValidationError("units must be greater than zero")
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.subjectRepo.Create(ctx, subject); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSubjectCreate, models.EntitySubject, int64Ptr(subject.ID), map[string]string{"code": subject.Code})
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) UpdateSubject(ctx context.Context, actor Actor, id int64, req *dto.SubjectRequest) (*models.Subject, error) {
	if req.Units <= 0 {
		return nil, apperrors.NewValidationError("units must be greater than zero")
	}
	var subject *models.Subject
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		subject, err = s.subjectRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
		subject.Name = strings.TrimSpace(req.Name)
		subject.Units = req.Units
		subject.Description = trimmedPtr(req.Description)
		if err := s.subjectRepo.Update(ctx, subject); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSubjectUpdate, models.EntitySubject, int64Ptr(id), map[string]string{"code": subject.Code})
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) DeleteSubject(ctx context.Context, actor Actor, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		subject, err := s.subjectRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.subjectRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSubjectDelete, models.EntitySubject, int64Ptr(id), map[string]string{"code": subject.Code})
	})
}

// --- Sections ---

func (s *CatalogService) ListSections(ctx context.Context, filter models.SectionFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.sectionRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing sections: %w", err)
	}
	if items == nil {
		items = []*models.Section{}
	}
	return paginated(items, total, p), nil
}

func (s *CatalogService) GetSection(ctx context.Context, id int64) (*models.Section, error) {
	return s.sectionRepo.GetByID(ctx, id)
}

func sectionFromRequest(section *models.Section, req *dto.SectionRequest) error {
	if req.Semester != int(models.SemesterFirst) && req.Semester != int(models.SemesterSecond) {
		return apperrors.NewValidationError("semester must be 1 or 2")
	}
	if req.Capacity <= 0 {
		return apperrors.NewValidationError("capacity must be greater than zero")
	}
	section.CourseID = req.CourseID
	section.Name = strings.TrimSpace(req.Name)
	section.YearLevel = req.YearLevel
	section.SchoolYear = req.SchoolYear
	section.Semester = models.Semester(req.Semester)
	section.Capacity = req.Capacity
	return nil
}

func (s *CatalogService) CreateSection(ctx context.Context, actor Actor, req *dto.SectionRequest) (*models.Section, error) {
	section := &models.Section{}
	if err := sectionFromRequest(section, req); err != nil {
		return nil, err
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.courseRepo.GetByID(ctx, section.CourseID); err != nil {
			return err
		}
		if _, err := s.sectionRepo.Create(ctx, section); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSectionCreate, models.EntitySection, int64Ptr(section.ID), map[string]interface{}{
			"name": section.Name, "schoolYear": section.SchoolYear, "semester": section.Semester,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.sectionRepo.GetByID(ctx, section.ID)
}

// UpdateSection edits a section. Capacity cannot drop below the approved enrollments.
func (s *CatalogService) UpdateSection(ctx context.Context, actor Actor, id int64, req *dto.SectionRequest) (*models.Section, error) {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		section, err := s.sectionRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := sectionFromRequest(section, req); err != nil {
			return err
		}
		if section.Capacity < section.ApprovedCount {
			return apperrors.NewBadRequestError(fmt.Sprintf("capacity cannot be lower than the %d approved enrollments", section.ApprovedCount))
		}
		if _, err := s.courseRepo.GetByID(ctx, section.CourseID); err != nil {
			return err
		}
		if err := s.sectionRepo.Update(ctx, section); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSectionUpdate, models.EntitySection, int64Ptr(id), map[string]interface{}{
			"name": section.Name, "capacity": section.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.sectionRepo.GetByID(ctx, id)
}

func (s *CatalogService) DeleteSection(ctx context.Context, actor Actor, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		section, err := s.sectionRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.sectionRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionSectionDelete, models.EntitySection, int64Ptr(id), map[string]string{"name": section.Name})
	})
}

// --- Schedules ---

func (s *CatalogService) ListSchedules(ctx context.Context, filter models.ScheduleFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.scheduleRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	if items == nil {
		items = []*models.Schedule{}
	}
	return paginated(items, total, p), nil
}

func (s *CatalogService) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	return s.scheduleRepo.GetByID(ctx, id)
}

func scheduleFromRequest(schedule *models.Schedule, req *dto.ScheduleRequest) error {
	if req.DayOfWeek < 1 || req.DayOfWeek > 7 {
		return apperrors.NewValidationError("dayOfWeek must be between 1 and 7")
	}
	// HH:MM strings order the same way as the times they denote
	if req.StartTime >= req.EndTime {
		return apperrors.NewValidationError("startTime must be before endTime")
	}
	schedule.SectionID = req.SectionID
	schedule.SubjectID = req.SubjectID
	schedule.DayOfWeek = req.DayOfWeek
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	schedule.Room = trimmedPtr(req.Room)
	return nil
}

// CreateSchedule adds a subject slot to a section. A teacher given here goes
// through the same cascade as AssignTeacher.
func (s *CatalogService) CreateSchedule(ctx context.Context, actor Actor, req *dto.ScheduleRequest) (*models.Schedule, error) {
	schedule := &models.Schedule{}
	if err := scheduleFromRequest(schedule, req); err != nil {
		return nil, err
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.sectionRepo.GetByID(ctx, schedule.SectionID); err != nil {
			return err
		}
		if _, err := s.subjectRepo.GetByID(ctx, schedule.SubjectID); err != nil {
			return err
		}
		if _, err := s.scheduleRepo.Create(ctx, schedule); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, actor, models.ActionScheduleCreate, models.EntitySchedule, int64Ptr(schedule.ID), map[string]interface{}{
			"sectionId": schedule.SectionID, "subjectId": schedule.SubjectID,
		}); err != nil {
			return err
		}
		if req.TeacherID != nil {
			_, err := s.AssignTeacher(ctx, actor, schedule.ID, req.TeacherID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetByID(ctx, schedule.ID)
}

// UpdateSchedule edits the slot; the teacher is changed through AssignTeacher only
func (s *CatalogService) UpdateSchedule(ctx context.Context, actor Actor, id int64, req *dto.ScheduleRequest) (*models.Schedule, error) {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		schedule, err := s.scheduleRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if schedule.SectionID != req.SectionID {
			return apperrors.NewBadRequestError("a schedule cannot be moved to another section")
		}
		if err := scheduleFromRequest(schedule, req); err != nil {
			return err
		}
		if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionScheduleUpdate, models.EntitySchedule, int64Ptr(id), map[string]interface{}{
			"dayOfWeek": schedule.DayOfWeek, "startTime": schedule.StartTime, "endTime": schedule.EndTime,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetByID(ctx, id)
}

func (s *CatalogService) DeleteSchedule(ctx context.Context, actor Actor, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		schedule, err := s.scheduleRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.scheduleRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionScheduleDelete, models.EntitySchedule, int64Ptr(id), map[string]interface{}{
			"sectionId": schedule.SectionID, "subjectId": schedule.SubjectID,
		})
	})
}

// AssignTeacher sets the teacher of a schedule and brings every approved
// enrollment of its section up to date: missing enrollment subjects and draft
// grades are created, and unfinalised grades move to the new teacher.
// A nil teacher only clears the schedule.
func (s *CatalogService) AssignTeacher(ctx context.Context, actor Actor, scheduleID int64, teacherID *int64) (*dto.AssignTeacherResponse, error) {
	resp := &dto.AssignTeacherResponse{ScheduleID: scheduleID, TeacherID: teacherID}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
		if err != nil {
			return err
		}

		if teacherID != nil {
			teacher, err := s.userRepo.GetByID(ctx, *teacherID)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrUserNotFound) {
					return apperrors.ErrNotATeacher
				}
				return err
			}
			if teacher.RoleType != models.RoleTeacher || !teacher.IsActive {
				return apperrors.ErrNotATeacher
			}
		}

		if err := s.scheduleRepo.SetTeacher(ctx, scheduleID, teacherID); err != nil {
			return err
		}

		if teacherID != nil {
			enrollments, err := s.enrollmentRepo.ListApprovedBySection(ctx, schedule.SectionID)
			if err != nil {
				return err
			}
			for _, e := range enrollments {
				esID, created, err := s.enrollmentRepo.EnsureSubject(ctx, e.ID, scheduleID)
				if err != nil {
					return err
				}
				if created {
					resp.EnrollmentSubjectsCreated++
				}
				gradeCreated, err := s.gradeRepo.EnsureDraft(ctx, esID, teacherID)
				if err != nil {
					return err
				}
				if gradeCreated {
					resp.GradesCreated++
				}
			}
			resp.EnrollmentsProcessed = len(enrollments)

			reassigned, err := s.gradeRepo.ReassignUnfinalized(ctx, scheduleID, teacherID)
			if err != nil {
				return err
			}
			resp.GradesReassigned = int(reassigned)
		}

		return s.audit.Record(ctx, actor, models.ActionScheduleAssign, models.EntitySchedule, int64Ptr(scheduleID), map[string]interface{}{
			"previousTeacherId":         schedule.TeacherID,
			"teacherId":                 teacherID,
			"enrollmentsProcessed":      resp.EnrollmentsProcessed,
			"enrollmentSubjectsCreated": resp.EnrollmentSubjectsCreated,
			"gradesCreated":             resp.GradesCreated,
			"gradesReassigned":          resp.GradesReassigned,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("scheduleID", scheduleID).
		Int("enrollments", resp.EnrollmentsProcessed).
		Int("gradesCreated", resp.GradesCreated).
		Int("gradesReassigned", resp.GradesReassigned).
		Msg("Teacher assigned to schedule")
	return resp, nil
}

// trimmedPtr trims *s and returns nil for empty values
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optionalString(*s)
}
