package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// EnrollmentRepository is the in-memory IEnrollmentRepository
type EnrollmentRepository struct{ s *Store }

var _ repositories.IEnrollmentRepository = (*EnrollmentRepository)(nil)

// Enrollments returns the store's enrollment repository
func (s *Store) Enrollments() *EnrollmentRepository { return &EnrollmentRepository{s: s} }

func (st *state) enrollmentView(e *models.Enrollment) *models.Enrollment {
	c := *e
	c.StudentNumber = st.studentNumber(e.StudentID)
	c.StudentName = st.studentName(e.StudentID)
	if se, ok := st.sections[e.SectionID]; ok {
		c.SectionName = se.Name
		if course, ok := st.courses[se.CourseID]; ok {
			c.CourseCode = course.Code
		}
	}
	return &c
}

func (st *state) activeEnrollmentExists(studentID int64, schoolYear string, semester models.Semester, except int64) bool {
	for _, e := range st.enrollments {
		if e.ID != except && e.StudentID == studentID && e.SchoolYear == schoolYear && e.Semester == semester && e.Status.IsActive() {
			return true
		}
	}
	return false
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.sections[enrollment.SectionID]; !ok {
		return 0, apperrors.ErrSectionNotFound
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentPending
	}
	if enrollment.Status.IsActive() && st.activeEnrollmentExists(enrollment.StudentID, enrollment.SchoolYear, enrollment.Semester, 0) {
		return 0, apperrors.ErrEnrollmentExists
	}
	now := time.Now()
	enrollment.ID = st.next("enrollments")
	enrollment.CreatedAt, enrollment.UpdatedAt = now, now
	c := *enrollment
	st.enrollments[enrollment.ID] = &c
	return enrollment.ID, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	st := r.s.lock()
	defer r.s.unlock()
	e, ok := st.enrollments[id]
	if !ok {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return st.enrollmentView(e), nil
}

// GetByIDForUpdate relies on TxManager serialising transactions
func (r *EnrollmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.GetByID(ctx, id)
}

func (r *EnrollmentRepository) HasActiveForTerm(ctx context.Context, studentID int64, schoolYear string, semester models.Semester) (bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	return st.activeEnrollmentExists(studentID, schoolYear, semester, 0), nil
}

func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus, remarks *string, reviewerID int64, at time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	e, ok := st.enrollments[id]
	if !ok {
		return apperrors.ErrEnrollmentNotFound
	}
	if status.IsActive() && st.activeEnrollmentExists(e.StudentID, e.SchoolYear, e.Semester, id) {
		return apperrors.ErrEnrollmentExists
	}
	c := *e
	c.Status = status
	c.Remarks = remarks
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &at
	c.UpdatedAt = at
	st.enrollments[id] = &c
	return nil
}

func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter, offset, limit uint64) ([]*models.Enrollment, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Enrollment
	for _, e := range st.enrollments {
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		if filter.SectionID != nil && e.SectionID != *filter.SectionID {
			continue
		}
		if filter.SchoolYear != "" && e.SchoolYear != filter.SchoolYear {
			continue
		}
		if filter.Semester != nil && e.Semester != *filter.Semester {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		out = append(out, st.enrollmentView(e))
	}
	sortByID(out, func(e *models.Enrollment) int64 { return e.ID }, true)
	return page(out, offset, limit), int64(len(out)), nil
}

func (r *EnrollmentRepository) ListApprovedBySection(ctx context.Context, sectionID int64) ([]*models.Enrollment, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Enrollment
	for _, e := range st.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentApproved {
			out = append(out, st.enrollmentView(e))
		}
	}
	sortByID(out, func(e *models.Enrollment) int64 { return e.ID }, false)
	return out, nil
}

func (r *EnrollmentRepository) CountApprovedBySection(ctx context.Context, sectionID int64) (int, error) {
	st := r.s.lock()
	defer r.s.unlock()
	return st.approvedCount(sectionID), nil
}

func (r *EnrollmentRepository) EnsureSubject(ctx context.Context, enrollmentID, scheduleID int64) (int64, bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, es := range st.enrollmentSubjects {
		if es.EnrollmentID == enrollmentID && es.ScheduleID == scheduleID {
			return es.ID, false, nil
		}
	}
	if _, ok := st.enrollments[enrollmentID]; !ok {
		return 0, false, apperrors.ErrEnrollmentNotFound
	}
	if _, ok := st.schedules[scheduleID]; !ok {
		return 0, false, apperrors.ErrScheduleNotFound
	}
	id := st.next("enrollment_subjects")
	st.enrollmentSubjects[id] = &models.EnrollmentSubject{ID: id, EnrollmentID: enrollmentID, ScheduleID: scheduleID, CreatedAt: time.Now()}
	return id, true, nil
}

func (r *EnrollmentRepository) ListRoster(ctx context.Context, scheduleID int64) ([]models.RosterEntry, error) {
	st := r.s.lock()
	defer r.s.unlock()
	roster := []models.RosterEntry{}
	for _, es := range st.enrollmentSubjects {
		if es.ScheduleID != scheduleID {
			continue
		}
		e, ok := st.enrollments[es.EnrollmentID]
		if !ok || e.Status != models.EnrollmentApproved {
			continue
		}
		s, ok := st.students[e.StudentID]
		if !ok {
			continue
		}
		u := st.users[s.UserID]
		if u == nil {
			continue
		}
		roster = append(roster, models.RosterEntry{
			EnrollmentID:  e.ID,
			StudentID:     s.ID,
			StudentNumber: st.studentNumber(s.ID),
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Email:         u.Email,
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].LastName != roster[j].LastName {
			return roster[i].LastName < roster[j].LastName
		}
		return roster[i].FirstName < roster[j].FirstName
	})
	return roster, nil
}

// GradeRepository is the in-memory IGradeRepository
type GradeRepository struct{ s *Store }

var _ repositories.IGradeRepository = (*GradeRepository)(nil)

// Grades returns the store's grade repository
func (s *Store) Grades() *GradeRepository { return &GradeRepository{s: s} }

func (st *state) gradeView(g *models.Grade) *models.Grade {
	c := *g
	es, ok := st.enrollmentSubjects[g.EnrollmentSubjectID]
	if !ok {
		return &c
	}
	c.EnrollmentID = es.EnrollmentID
	c.ScheduleID = es.ScheduleID
	if e, ok := st.enrollments[es.EnrollmentID]; ok {
		c.StudentID = e.StudentID
		c.StudentNumber = st.studentNumber(e.StudentID)
		c.StudentName = st.studentName(e.StudentID)
		c.SchoolYear = e.SchoolYear
		c.Semester = e.Semester
	}
	if sc, ok := st.schedules[es.ScheduleID]; ok {
		if su, ok := st.subjects[sc.SubjectID]; ok {
			c.SubjectCode = su.Code
			c.SubjectName = su.Name
			c.Units = su.Units
		}
	}
	return &c
}

func (r *GradeRepository) EnsureDraft(ctx context.Context, enrollmentSubjectID int64, teacherID *int64) (bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	for _, g := range st.grades {
		if g.EnrollmentSubjectID == enrollmentSubjectID {
			return false, nil
		}
	}
	if _, ok := st.enrollmentSubjects[enrollmentSubjectID]; !ok {
		return false, apperrors.ErrEnrollmentNotFound
	}
	now := time.Now()
	id := st.next("grades")
	st.grades[id] = &models.Grade{
		ID:                  id,
		EnrollmentSubjectID: enrollmentSubjectID,
		TeacherID:           teacherID,
		Remarks:             models.RemarksIncomplete,
		Status:              models.GradeDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return true, nil
}

func (r *GradeRepository) ReassignUnfinalized(ctx context.Context, scheduleID int64, teacherID *int64) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, g := range st.grades {
		es, ok := st.enrollmentSubjects[g.EnrollmentSubjectID]
		if !ok || es.ScheduleID != scheduleID || g.Status.IsFinal() || sameTeacher(g.TeacherID, teacherID) {
			continue
		}
		c := *g
		c.TeacherID = teacherID
		c.UpdatedAt = time.Now()
		st.grades[id] = &c
		n++
	}
	return n, nil
}

func sameTeacher(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *GradeRepository) GetByID(ctx context.Context, id int64) (*models.Grade, error) {
	st := r.s.lock()
	defer r.s.unlock()
	g, ok := st.grades[id]
	if !ok {
		return nil, apperrors.ErrGradeNotFound
	}
	return st.gradeView(g), nil
}

// GetByIDForUpdate relies on TxManager serialising transactions
func (r *GradeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Grade, error) {
	return r.GetByID(ctx, id)
}

func (r *GradeRepository) Save(ctx context.Context, grade *models.Grade) error {
	st := r.s.lock()
	defer r.s.unlock()
	old, ok := st.grades[grade.ID]
	if !ok {
		return apperrors.ErrGradeNotFound
	}
	grade.UpdatedAt = time.Now()
	c := *grade
	c.EnrollmentSubjectID = old.EnrollmentSubjectID
	c.CreatedAt = old.CreatedAt
	st.grades[c.ID] = &c
	return nil
}

func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter, offset, limit uint64) ([]*models.Grade, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Grade
	for _, g := range st.grades {
		v := st.gradeView(g)
		if filter.ScheduleID != nil && v.ScheduleID != *filter.ScheduleID {
			continue
		}
		if filter.TeacherID != nil && (v.TeacherID == nil || *v.TeacherID != *filter.TeacherID) {
			continue
		}
		if filter.StudentID != nil && v.StudentID != *filter.StudentID {
			continue
		}
		if filter.EnrollmentID != nil && v.EnrollmentID != *filter.EnrollmentID {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		if filter.SchoolYear != "" && v.SchoolYear != filter.SchoolYear {
			continue
		}
		if filter.FinalOnly && !v.Status.IsFinal() {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubjectCode != b.SubjectCode {
			return a.SubjectCode < b.SubjectCode
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.ID < b.ID
	})
	return page(out, offset, limit), int64(len(out)), nil
}

func (r *GradeRepository) DeleteEmptyDrafts(ctx context.Context, enrollmentID int64) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, g := range st.grades {
		es, ok := st.enrollmentSubjects[g.EnrollmentSubjectID]
		if !ok || es.EnrollmentID != enrollmentID || g.Status != models.GradeDraft || g.HasScores() {
			continue
		}
		delete(st.grades, id)
		n++
	}
	return n, nil
}
