package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// AddressRepository is the in-memory IAddressRepository
type AddressRepository struct{ s *Store }

var _ repositories.IAddressRepository = (*AddressRepository)(nil)

// Addresses returns the store's address repository
func (s *Store) Addresses() *AddressRepository { return &AddressRepository{s: s} }

// SeedAddresses loads one branch of reference data
func (s *Store) SeedAddresses(region models.Region, province models.Province, city models.City, barangays ...models.Barangay) {
	st := s.lock()
	defer s.unlock()
	st.regions = append(st.regions, region)
	st.provinces = append(st.provinces, province)
	st.cities = append(st.cities, city)
	st.barangays = append(st.barangays, barangays...)
}

func (r *AddressRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := append([]models.Region{}, st.regions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *AddressRepository) ListProvinces(ctx context.Context, regionCode string) ([]models.Province, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := []models.Province{}
	for _, p := range st.provinces {
		if p.RegionCode == regionCode {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *AddressRepository) ListCities(ctx context.Context, provinceCode string) ([]models.City, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := []models.City{}
	for _, c := range st.cities {
		if c.ProvinceCode == provinceCode {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *AddressRepository) ListBarangays(ctx context.Context, cityCode string) ([]models.Barangay, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := []models.Barangay{}
	for _, b := range st.barangays {
		if b.CityCode == cityCode {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *AddressRepository) RegionExists(ctx context.Context, code string) (bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, rg := range st.regions {
		if rg.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *AddressRepository) GetProvince(ctx context.Context, code string) (*models.Province, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, p := range st.provinces {
		if p.Code == code {
			c := p
			return &c, nil
		}
	}
	return nil, apperrors.ErrInvalidAddress
}

func (r *AddressRepository) GetCity(ctx context.Context, code string) (*models.City, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, ct := range st.cities {
		if ct.Code == code {
			c := ct
			return &c, nil
		}
	}
	return nil, apperrors.ErrInvalidAddress
}

func (r *AddressRepository) GetBarangay(ctx context.Context, code string) (*models.Barangay, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, b := range st.barangays {
		if b.Code == code {
			c := b
			return &c, nil
		}
	}
	return nil, apperrors.ErrInvalidAddress
}

// StudentRepository is the in-memory IStudentRepository
type StudentRepository struct{ s *Store }

var _ repositories.IStudentRepository = (*StudentRepository)(nil)

// Students returns the store's student repository
func (s *Store) Students() *StudentRepository { return &StudentRepository{s: s} }

func (st *state) studentView(s *models.Student) *models.Student {
	c := *s
	if u, ok := st.users[s.UserID]; ok {
		uc := *u
		c.User = &uc
	}
	return &c
}

func (st *state) studentName(studentID int64) string {
	if s, ok := st.students[studentID]; ok {
		if u, ok := st.users[s.UserID]; ok {
			return u.FullName()
		}
	}
	return ""
}

func (st *state) studentNumber(studentID int64) string {
	if s, ok := st.students[studentID]; ok && s.StudentNumber != nil {
		return *s.StudentNumber
	}
	return ""
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, s := range st.students {
		if s.UserID == student.UserID {
			return 0, apperrors.NewConflictError("student profile already exists for this user")
		}
	}
	now := time.Now()
	student.ID = st.next("students")
	student.CreatedAt, student.UpdatedAt = now, now
	c := *student
	c.User = nil
	st.students[student.ID] = &c
	return student.ID, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	st := r.s.lock()
	defer r.s.unlock()
	s, ok := st.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return st.studentView(s), nil
}

func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, s := range st.students {
		if s.UserID == userID {
			return st.studentView(s), nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (r *StudentRepository) UpdateProfile(ctx context.Context, student *models.Student) error {
	st := r.s.lock()
	defer r.s.unlock()
	s, ok := st.students[student.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	c := *s
	c.BirthDate = student.BirthDate
	c.Gender = student.Gender
	c.Phone = student.Phone
	c.GuardianName = student.GuardianName
	c.GuardianPhone = student.GuardianPhone
	c.Address = student.Address
	c.UpdatedAt = time.Now()
	st.students[c.ID] = &c
	return nil
}

func (r *StudentRepository) SetStudentNumber(ctx context.Context, id int64, number string) error {
	st := r.s.lock()
	defer r.s.unlock()
	s, ok := st.students[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	for _, other := range st.students {
		if other.ID != id && other.StudentNumber != nil && *other.StudentNumber == number {
			return apperrors.ErrStudentNumberExists
		}
	}
	c := *s
	c.StudentNumber = &number
	c.UpdatedAt = time.Now()
	st.students[id] = &c
	return nil
}

func (r *StudentRepository) NextStudentSequence(ctx context.Context, year int) (int, error) {
	st := r.s.lock()
	defer r.s.unlock()
	st.counters[year]++
	return st.counters[year], nil
}

func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, offset, limit uint64) ([]*models.Student, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*models.Student
	for _, s := range st.students {
		v := st.studentView(s)
		if search != "" {
			num := ""
			if s.StudentNumber != nil {
				num = *s.StudentNumber
			}
			if v.User == nil || !containsAny(search, v.User.Email, v.User.FirstName, v.User.LastName, num) {
				continue
			}
		}
		if filter.HasNumber != nil && (s.StudentNumber != nil) != *filter.HasNumber {
			continue
		}
		if (filter.CourseID != nil || (filter.SchoolYear != "" && !filter.EnrolledOnly)) && !st.hasApprovedApplication(s.ID, filter) {
			continue
		}
		if filter.EnrolledOnly && !st.hasApprovedEnrollment(s.ID, filter.SchoolYear) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.User != nil && b.User != nil && a.User.LastName != b.User.LastName {
			return a.User.LastName < b.User.LastName
		}
		if a.User != nil && b.User != nil && a.User.FirstName != b.User.FirstName {
			return a.User.FirstName < b.User.FirstName
		}
		return a.ID < b.ID
	})
	return page(out, offset, limit), int64(len(out)), nil
}

func (st *state) hasApprovedApplication(studentID int64, filter models.StudentFilter) bool {
	for _, a := range st.applications {
		if a.StudentID != studentID || a.Status != models.ApplicationApproved {
			continue
		}
		if filter.CourseID != nil && a.CourseID != *filter.CourseID {
			continue
		}
		if filter.SchoolYear != "" && !filter.EnrolledOnly && a.SchoolYear != filter.SchoolYear {
			continue
		}
		return true
	}
	return false
}

func (st *state) hasApprovedEnrollment(studentID int64, schoolYear string) bool {
	for _, e := range st.enrollments {
		if e.StudentID == studentID && e.Status == models.EnrollmentApproved && (schoolYear == "" || e.SchoolYear == schoolYear) {
			return true
		}
	}
	return false
}

// ApplicationRepository is the in-memory IApplicationRepository
type ApplicationRepository struct{ s *Store }

var _ repositories.IApplicationRepository = (*ApplicationRepository)(nil)

// Applications returns the store's application repository
func (s *Store) Applications() *ApplicationRepository { return &ApplicationRepository{s: s} }

func (st *state) applicationView(a *models.Application) *models.Application {
	c := *a
	c.StudentName = st.studentName(a.StudentID)
	if course, ok := st.courses[a.CourseID]; ok {
		c.CourseCode = course.Code
	}
	return &c
}

func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.courses[app.CourseID]; !ok {
		return 0, apperrors.ErrCourseNotFound
	}
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	for _, a := range st.applications {
		if a.StudentID != app.StudentID || a.Status != app.Status {
			continue
		}
		switch a.Status {
		case models.ApplicationPending:
			return 0, apperrors.ErrApplicationPending
		case models.ApplicationApproved:
			return 0, apperrors.ErrApplicationAlreadyApproved
		}
	}
	now := time.Now()
	app.ID = st.next("applications")
	app.CreatedAt, app.UpdatedAt = now, now
	c := *app
	st.applications[app.ID] = &c
	return app.ID, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	st := r.s.lock()
	defer r.s.unlock()
	a, ok := st.applications[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	return st.applicationView(a), nil
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Application, error) {
	items, _, err := r.List(ctx, models.ApplicationFilter{StudentID: &studentID}, 0, 0)
	return items, err
}

func (r *ApplicationRepository) HasStatus(ctx context.Context, studentID int64, status models.ApplicationStatus) (bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, a := range st.applications {
		if a.StudentID == studentID && a.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, remarks *string, reviewerID int64, at time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	a, ok := st.applications[id]
	if !ok {
		return apperrors.ErrApplicationNotFound
	}
	if status == models.ApplicationApproved {
		for _, other := range st.applications {
			if other.ID != id && other.StudentID == a.StudentID && other.Status == models.ApplicationApproved {
				return apperrors.ErrApplicationAlreadyApproved
			}
		}
	}
	c := *a
	c.Status = status
	c.Remarks = remarks
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &at
	c.UpdatedAt = at
	st.applications[id] = &c
	return nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter, offset, limit uint64) ([]*models.Application, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Application
	for _, a := range st.applications {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.SchoolYear != "" && a.SchoolYear != filter.SchoolYear {
			continue
		}
		if filter.StudentID != nil && a.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, st.applicationView(a))
	}
	sortByID(out, func(a *models.Application) int64 { return a.ID }, true)
	return page(out, offset, limit), int64(len(out)), nil
}
