package services

import (
	"context"
	"errors"
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

// StudentService manages student profiles and admission applications
type StudentService struct {
	studentRepo repositories.IStudentRepository
	appRepo     repositories.IApplicationRepository
	courseRepo  repositories.ICourseRepository
	addresses   *AddressService
	audit       *AuditService
	tx          db.TxManager
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentService creates a new StudentService
func NewStudentService(
	studentRepo repositories.IStudentRepository,
	appRepo repositories.IApplicationRepository,
	courseRepo repositories.ICourseRepository,
	addresses *AddressService,
	audit *AuditService,
	tx db.TxManager,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		appRepo:     appRepo,
		courseRepo:  courseRepo,
		addresses:   addresses,
		audit:       audit,
		tx:          tx,
		logger:      logger,
		now:         time.Now,
	}
}

// GetProfile returns the student profile of a user
func (s *StudentService) GetProfile(ctx context.Context, userID int64) (*models.Student, error) {
	return s.studentRepo.GetByUserID(ctx, userID)
}

// GetStudent returns a student by profile ID
func (s *StudentService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// ListStudents returns a page of student profiles
func (s *StudentService) ListStudents(ctx context.Context, filter models.StudentFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.studentRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	if items == nil {
		items = []*models.Student{}
	}
	return paginated(items, total, p), nil
}

// UpdateProfile applies the fields present in req to the caller's profile
func (s *StudentService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateStudentProfileRequest) (*models.Student, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.BirthDate != nil {
		if strings.TrimSpace(*req.BirthDate) == "" {
			student.BirthDate = nil
		} else {
			bd, err := time.Parse("2006-01-02", *req.BirthDate)
			if err != nil {
				return nil, apperrors.NewValidationError("birthDate must be YYYY-MM-DD")
			}
			if bd.After(s.now()) {
				return nil, apperrors.NewValidationError("birthDate cannot be in the future")
			}
			student.BirthDate = &bd
		}
	}
	assign := func(dst **string, src *string) {
		if src != nil {
			*dst = optionalString(*src)
		}
	}
	assign(&student.Gender, req.Gender)
	assign(&student.Phone, req.Phone)
	assign(&student.GuardianName, req.GuardianName)
	assign(&student.GuardianPhone, req.GuardianPhone)
	assign(&student.Street, req.Street)
	assign(&student.RegionCode, req.RegionCode)
	assign(&student.ProvinceCode, req.ProvinceCode)
	assign(&student.CityCode, req.CityCode)
	assign(&student.BarangayCode, req.BarangayCode)

	if err := s.addresses.Validate(ctx, student.Address); err != nil {
		return nil, err
	}
	if err := s.studentRepo.UpdateProfile(ctx, student); err != nil {
		return nil, err
	}
	return s.studentRepo.GetByID(ctx, student.ID)
}

// SubmitApplication files an admission application for the caller
func (s *StudentService) SubmitApplication(ctx context.Context, userID int64, req *dto.CreateApplicationRequest) (*models.Application, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, apperrors.NewBadRequestError("course is not accepting applications")
	}

	var app *models.Application
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		approved, err := s.appRepo.HasStatus(ctx, student.ID, models.ApplicationApproved)
		if err != nil {
			return err
		}
		if approved {
			return apperrors.ErrApplicationAlreadyApproved
		}
		pending, err := s.appRepo.HasStatus(ctx, student.ID, models.ApplicationPending)
		if err != nil {
			return err
		}
		if pending {
			return apperrors.ErrApplicationPending
		}

		id, err := s.appRepo.Create(ctx, &models.Application{
			StudentID:  student.ID,
			CourseID:   course.ID,
			SchoolYear: req.SchoolYear,
			YearLevel:  req.YearLevel,
			Status:     models.ApplicationPending,
		})
		if err != nil {
			return err
		}
		app, err = s.appRepo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("studentID", student.ID).Int64("applicationID", app.ID).Msg("Application submitted")
	return app, nil
}

// MyApplications lists the caller's applications
func (s *StudentService) MyApplications(ctx context.Context, userID int64) ([]*models.Application, error) {
	student, err := s.studentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	apps, err := s.appRepo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	return apps, nil
}

// ListApplications returns a page of applications for review
func (s *StudentService) ListApplications(ctx context.Context, filter models.ApplicationFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	items, total, err := s.appRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	if items == nil {
		items = []*models.Application{}
	}
	return paginated(items, total, p), nil
}

// ReviewApplication approves or rejects a pending application. Approval
// assigns a student number when the student has none.
func (s *StudentService) ReviewApplication(ctx context.Context, actor Actor, id int64, req *dto.ReviewRequest) (*models.Application, error) {
	status := models.ApplicationStatus(strings.ToUpper(req.Status))
	if status != models.ApplicationApproved && status != models.ApplicationRejected {
		return nil, apperrors.NewValidationError("status must be APPROVED or REJECTED")
	}
	remarks := optionalString(req.Remarks)

	var app *models.Application
	var assigned string
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.appRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if app.Status != models.ApplicationPending {
			return apperrors.ErrApplicationNotPending
		}

		now := s.now()
		if err := s.appRepo.UpdateStatus(ctx, id, status, remarks, actor.UserID, now); err != nil {
			return err
		}

		action := models.ActionApplicationReject
		details := map[string]interface{}{"studentId": app.StudentID, "remarks": remarks}
		if status == models.ApplicationApproved {
			action = models.ActionApplicationApprove
			assigned, err = s.ensureStudentNumber(ctx, app.StudentID, now)
			if err != nil {
				return err
			}
			if assigned != "" {
				details["studentNumber"] = assigned
			}
		}
		if err := s.audit.Record(ctx, actor, action, models.EntityApplication, int64Ptr(id), details); err != nil {
			return err
		}
		app, err = s.appRepo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if assigned != "" {
		s.logger.Info().Int64("studentID", app.StudentID).Str("studentNumber", assigned).Msg("Student number assigned")
	}
	return app, nil
}

// ensureStudentNumber returns the newly assigned number, or "" when the student already had one
func (s *StudentService) ensureStudentNumber(ctx context.Context, studentID int64, now time.Time) (string, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return "", err
	}
	if student.StudentNumber != nil && *student.StudentNumber != "" {
		return "", nil
	}

	year := now.Year()
	seq, err := s.studentRepo.NextStudentSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate student number: %w", err)
	}
	number := FormatStudentNumber(year, seq)
	if err := s.studentRepo.SetStudentNumber(ctx, studentID, number); err != nil {
		if errors.Is(err, apperrors.ErrStudentNumberExists) {
			return "", fmt.Errorf("student number %s collided: %w", number, err)
		}
		return "", err
	}
	return number, nil
}

// FormatStudentNumber renders the YYYY-NNNNN student number
func FormatStudentNumber(year, seq int) string {
	return fmt.Sprintf("%d-%05d", year, seq)
}
