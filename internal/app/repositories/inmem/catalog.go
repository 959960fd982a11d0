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

// CourseRepository is the in-memory ICourseRepository
type CourseRepository struct{ s *Store }

var _ repositories.ICourseRepository = (*CourseRepository)(nil)

// Courses returns the store's course repository
func (s *Store) Courses() *CourseRepository { return &CourseRepository{s: s} }

func (st *state) courseCodeTaken(code string, except int64) bool {
	for _, c := range st.courses {
		if c.ID != except && c.Code == code {
			return true
		}
	}
	return false
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if st.courseCodeTaken(course.Code, 0) {
		return 0, apperrors.NewConflictError("course code already exists")
	}
	now := time.Now()
	course.ID = st.next("courses")
	course.CreatedAt, course.UpdatedAt = now, now
	c := *course
	st.courses[course.ID] = &c
	return course.ID, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	st := r.s.lock()
	defer r.s.unlock()
	c, ok := st.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	st := r.s.lock()
	defer r.s.unlock()
	old, ok := st.courses[course.ID]
	if !ok {
		return apperrors.ErrCourseNotFound
	}
	if st.courseCodeTaken(course.Code, course.ID) {
		return apperrors.NewConflictError("course code already exists")
	}
	c := *course
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = time.Now()
	st.courses[c.ID] = &c
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.courses[id]; !ok {
		return apperrors.ErrCourseNotFound
	}
	for _, s := range st.sections {
		if s.CourseID == id {
			return apperrors.ErrResourceInUse
		}
	}
	for _, a := range st.applications {
		if a.CourseID == id {
			return apperrors.ErrResourceInUse
		}
	}
	delete(st.courses, id)
	return nil
}

func (r *CourseRepository) List(ctx context.Context, search string, activeOnly bool, offset, limit uint64) ([]*models.Course, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	var out []*models.Course
	for _, c := range st.courses {
		if activeOnly && !c.IsActive {
			continue
		}
		if search != "" && !containsAny(search, c.Code, c.Name) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, offset, limit), int64(len(out)), nil
}

// SubjectRepository is the in-memory ISubjectRepository
type SubjectRepository struct{ s *Store }

var _ repositories.ISubjectRepository = (*SubjectRepository)(nil)

// Subjects returns the store's subject repository
func (s *Store) Subjects() *SubjectRepository { return &SubjectRepository{s: s} }

func (st *state) subjectCodeTaken(code string, except int64) bool {
	for _, s := range st.subjects {
		if s.ID != except && s.Code == code {
			return true
		}
	}
	return false
}

func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if st.subjectCodeTaken(subject.Code, 0) {
		return 0, apperrors.NewConflictError("subject code already exists")
	}
	now := time.Now()
	subject.ID = st.next("subjects")
	subject.CreatedAt, subject.UpdatedAt = now, now
	c := *subject
	st.subjects[subject.ID] = &c
	return subject.ID, nil
}

func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	st := r.s.lock()
	defer r.s.unlock()
	s, ok := st.subjects[id]
	if !ok {
		return nil, apperrors.ErrSubjectNotFound
	}
	c := *s
	return &c, nil
}

func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	st := r.s.lock()
	defer r.s.unlock()
	old, ok := st.subjects[subject.ID]
	if !ok {
		return apperrors.ErrSubjectNotFound
	}
	if st.subjectCodeTaken(subject.Code, subject.ID) {
		return apperrors.NewConflictError("subject code already exists")
	}
	c := *subject
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = time.Now()
	st.subjects[c.ID] = &c
	return nil
}

func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.subjects[id]; !ok {
		return apperrors.ErrSubjectNotFound
	}
	for _, sc := range st.schedules {
		if sc.SubjectID == id {
			return apperrors.ErrResourceInUse
		}
	}
	delete(st.subjects, id)
	return nil
}

func (r *SubjectRepository) List(ctx context.Context, search string, offset, limit uint64) ([]*models.Subject, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	var out []*models.Subject
	for _, s := range st.subjects {
		if search != "" && !containsAny(search, s.Code, s.Name) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, offset, limit), int64(len(out)), nil
}

// SectionRepository is the in-memory ISectionRepository
type SectionRepository struct{ s *Store }

var _ repositories.ISectionRepository = (*SectionRepository)(nil)

// Sections returns the store's section repository
func (s *Store) Sections() *SectionRepository { return &SectionRepository{s: s} }

func (st *state) sectionView(s *models.Section) *models.Section {
	c := *s
	if course, ok := st.courses[s.CourseID]; ok {
		c.CourseCode = course.Code
	}
	c.ApprovedCount = st.approvedCount(s.ID)
	return &c
}

func (st *state) approvedCount(sectionID int64) int {
	n := 0
	for _, e := range st.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentApproved {
			n++
		}
	}
	return n
}

func (st *state) checkSection(section *models.Section) error {
	if _, ok := st.courses[section.CourseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	for _, s := range st.sections {
		if s.ID != section.ID && s.Name == section.Name && s.SchoolYear == section.SchoolYear && s.Semester == section.Semester {
			return apperrors.NewConflictError("section name already exists for this term")
		}
	}
	return nil
}

func (r *SectionRepository) Create(ctx context.Context, section *models.Section) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	section.ID = 0
	if err := st.checkSection(section); err != nil {
		return 0, err
	}
	now := time.Now()
	section.ID = st.next("sections")
	section.CreatedAt, section.UpdatedAt = now, now
	c := *section
	st.sections[section.ID] = &c
	return section.ID, nil
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	st := r.s.lock()
	defer r.s.unlock()
	s, ok := st.sections[id]
	if !ok {
		return nil, apperrors.ErrSectionNotFound
	}
	return st.sectionView(s), nil
}

// GetByIDForUpdate relies on TxManager serialising transactions
func (r *SectionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Section, error) {
	return r.GetByID(ctx, id)
}

func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	st := r.s.lock()
	defer r.s.unlock()
	old, ok := st.sections[section.ID]
	if !ok {
		return apperrors.ErrSectionNotFound
	}
	if err := st.checkSection(section); err != nil {
		return err
	}
	c := *section
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = time.Now()
	st.sections[c.ID] = &c
	return nil
}

func (r *SectionRepository) Delete(ctx context.Context, id int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.sections[id]; !ok {
		return apperrors.ErrSectionNotFound
	}
	for _, sc := range st.schedules {
		if sc.SectionID == id {
			return apperrors.ErrResourceInUse
		}
	}
	for _, e := range st.enrollments {
		if e.SectionID == id {
			return apperrors.ErrResourceInUse
		}
	}
	delete(st.sections, id)
	return nil
}

func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter, offset, limit uint64) ([]*models.Section, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Section
	for _, s := range st.sections {
		if filter.CourseID != nil && s.CourseID != *filter.CourseID {
			continue
		}
		if filter.SchoolYear != "" && s.SchoolYear != filter.SchoolYear {
			continue
		}
		if filter.Semester != nil && s.Semester != *filter.Semester {
			continue
		}
		if filter.YearLevel != nil && s.YearLevel != *filter.YearLevel {
			continue
		}
		out = append(out, st.sectionView(s))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SchoolYear != b.SchoolYear {
			return a.SchoolYear > b.SchoolYear
		}
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		return a.Name < b.Name
	})
	return page(out, offset, limit), int64(len(out)), nil
}

// ScheduleRepository is the in-memory IScheduleRepository
type ScheduleRepository struct{ s *Store }

var _ repositories.IScheduleRepository = (*ScheduleRepository)(nil)

// Schedules returns the store's schedule repository
func (s *Store) Schedules() *ScheduleRepository { return &ScheduleRepository{s: s} }

func (st *state) scheduleView(sc *models.Schedule) *models.Schedule {
	c := *sc
	if se, ok := st.sections[sc.SectionID]; ok {
		c.SectionName = se.Name
	}
	if su, ok := st.subjects[sc.SubjectID]; ok {
		c.SubjectCode = su.Code
		c.SubjectName = su.Name
	}
	c.TeacherName = ""
	if sc.TeacherID != nil {
		if t, ok := st.users[*sc.TeacherID]; ok {
			c.TeacherName = t.FullName()
		}
	}
	return &c
}

func (st *state) checkSchedule(schedule *models.Schedule) error {
	if _, ok := st.sections[schedule.SectionID]; !ok {
		return apperrors.NewBadRequestError("section, subject or teacher does not exist")
	}
	if _, ok := st.subjects[schedule.SubjectID]; !ok {
		return apperrors.NewBadRequestError("section, subject or teacher does not exist")
	}
	if schedule.TeacherID != nil {
		if _, ok := st.users[*schedule.TeacherID]; !ok {
			return apperrors.NewBadRequestError("section, subject or teacher does not exist")
		}
	}
	for _, sc := range st.schedules {
		if sc.ID != schedule.ID && sc.SectionID == schedule.SectionID && sc.SubjectID == schedule.SubjectID {
			return apperrors.NewConflictError("subject is already scheduled for this section")
		}
	}
	return nil
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	schedule.ID = 0
	if err := st.checkSchedule(schedule); err != nil {
		return 0, err
	}
	now := time.Now()
	schedule.ID = st.next("schedules")
	schedule.CreatedAt, schedule.UpdatedAt = now, now
	c := *schedule
	st.schedules[schedule.ID] = &c
	return schedule.ID, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	st := r.s.lock()
	defer r.s.unlock()
	sc, ok := st.schedules[id]
	if !ok {
		return nil, apperrors.ErrScheduleNotFound
	}
	return st.scheduleView(sc), nil
}

func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	st := r.s.lock()
	defer r.s.unlock()
	old, ok := st.schedules[schedule.ID]
	if !ok {
		return apperrors.ErrScheduleNotFound
	}
	check := *schedule
	check.TeacherID = old.TeacherID
	if err := st.checkSchedule(&check); err != nil {
		return err
	}
	check.CreatedAt = old.CreatedAt
	check.UpdatedAt = time.Now()
	st.schedules[check.ID] = &check
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.schedules[id]; !ok {
		return apperrors.ErrScheduleNotFound
	}
	for _, es := range st.enrollmentSubjects {
		if es.ScheduleID == id {
			return apperrors.ErrResourceInUse
		}
	}
	delete(st.schedules, id)
	return nil
}

func (r *ScheduleRepository) SetTeacher(ctx context.Context, id int64, teacherID *int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	sc, ok := st.schedules[id]
	if !ok {
		return apperrors.ErrScheduleNotFound
	}
	if teacherID != nil {
		if _, ok := st.users[*teacherID]; !ok {
			return apperrors.ErrUserNotFound
		}
	}
	c := *sc
	c.TeacherID = teacherID
	c.UpdatedAt = time.Now()
	st.schedules[id] = &c
	return nil
}

func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter, offset, limit uint64) ([]*models.Schedule, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := st.filterSchedules(func(sc *models.Schedule) bool {
		if filter.SectionID != nil && sc.SectionID != *filter.SectionID {
			return false
		}
		if filter.TeacherID != nil && (sc.TeacherID == nil || *sc.TeacherID != *filter.TeacherID) {
			return false
		}
		if filter.SubjectID != nil && sc.SubjectID != *filter.SubjectID {
			return false
		}
		return true
	})
	return page(out, offset, limit), int64(len(out)), nil
}

func (r *ScheduleRepository) ListBySection(ctx context.Context, sectionID int64) ([]*models.Schedule, error) {
	st := r.s.lock()
	defer r.s.unlock()
	return st.filterSchedules(func(sc *models.Schedule) bool { return sc.SectionID == sectionID }), nil
}

func (r *ScheduleRepository) ListForStudent(ctx context.Context, studentID int64, schoolYear string, semester *models.Semester) ([]*models.Schedule, error) {
	st := r.s.lock()
	defer r.s.unlock()
	sections := map[int64]bool{}
	for _, e := range st.enrollments {
		if e.StudentID != studentID || e.Status != models.EnrollmentApproved {
			continue
		}
		if schoolYear != "" && e.SchoolYear != schoolYear {
			continue
		}
		if semester != nil && e.Semester != *semester {
			continue
		}
		sections[e.SectionID] = true
	}
	return st.filterSchedules(func(sc *models.Schedule) bool { return sections[sc.SectionID] }), nil
}

func (st *state) filterSchedules(keep func(*models.Schedule) bool) []*models.Schedule {
	out := []*models.Schedule{}
	for _, sc := range st.schedules {
		if keep(sc) {
			out = append(out, st.scheduleView(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out
}
