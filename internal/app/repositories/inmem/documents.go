package inmem

import (
	"context"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// DocumentRepository is the in-memory IDocumentRepository
type DocumentRepository struct{ s *Store }

var _ repositories.IDocumentRepository = (*DocumentRepository)(nil)

// Documents returns the store's document repository
func (s *Store) Documents() *DocumentRepository { return &DocumentRepository{s: s} }

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.students[doc.StudentID]; !ok {
		return 0, apperrors.ErrStudentNotFound
	}
	if doc.Status == "" {
		doc.Status = models.DocumentPending
	}
	doc.ID = st.next("documents")
	doc.CreatedAt = time.Now()
	c := *doc
	st.documents[doc.ID] = &c
	return doc.ID, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	st := r.s.lock()
	defer r.s.unlock()
	d, ok := st.documents[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	c := *d
	c.StudentName = st.studentName(d.StudentID)
	return &c, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, remarks *string, reviewerID int64, at time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	d, ok := st.documents[id]
	if !ok {
		return apperrors.ErrDocumentNotFound
	}
	c := *d
	c.Status = status
	c.Remarks = remarks
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &at
	st.documents[id] = &c
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.documents[id]; !ok {
		return apperrors.ErrDocumentNotFound
	}
	delete(st.documents, id)
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter, offset, limit uint64) ([]*models.Document, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.Document
	for _, d := range st.documents {
		if filter.StudentID != nil && d.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.DocumentType != nil && d.DocumentType != *filter.DocumentType {
			continue
		}
		c := *d
		c.StudentName = st.studentName(d.StudentID)
		out = append(out, &c)
	}
	sortByID(out, func(d *models.Document) int64 { return d.ID }, true)
	return page(out, offset, limit), int64(len(out)), nil
}

// AdminLogRepository is the in-memory IAdminLogRepository
type AdminLogRepository struct{ s *Store }

var _ repositories.IAdminLogRepository = (*AdminLogRepository)(nil)

// AdminLogs returns the store's audit log repository
func (s *Store) AdminLogs() *AdminLogRepository { return &AdminLogRepository{s: s} }

func (r *AdminLogRepository) Create(ctx context.Context, entry *models.AdminLog) error {
	st := r.s.lock()
	defer r.s.unlock()
	entry.ID = st.next("admin_logs")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c := *entry
	st.adminLogs[entry.ID] = &c
	return nil
}

func (r *AdminLogRepository) List(ctx context.Context, filter models.AdminLogFilter, offset, limit uint64) ([]*models.AdminLog, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var out []*models.AdminLog
	for _, l := range st.adminLogs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ActorID != nil && (l.ActorID == nil || *l.ActorID != *filter.ActorID) {
			continue
		}
		if filter.EntityType != "" && l.EntityType != filter.EntityType {
			continue
		}
		if filter.From != nil && l.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !l.CreatedAt.Before(*filter.To) {
			continue
		}
		c := *l
		if l.ActorID != nil {
			if u, ok := st.users[*l.ActorID]; ok {
				c.ActorEmail = u.Email
			}
		}
		out = append(out, &c)
	}
	sortByID(out, func(l *models.AdminLog) int64 { return l.ID }, true)
	return page(out, offset, limit), int64(len(out)), nil
}

// DashboardRepository is the in-memory IDashboardRepository
type DashboardRepository struct{ s *Store }

var _ repositories.IDashboardRepository = (*DashboardRepository)(nil)

// Dashboard returns the store's dashboard repository
func (s *Store) Dashboard() *DashboardRepository { return &DashboardRepository{s: s} }

func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	st := r.s.lock()
	defer r.s.unlock()
	out := &models.DashboardStats{EnrollmentsByYear: map[string]int64{}}
	out.Students = int64(len(st.students))
	for _, u := range st.users {
		if u.RoleType == models.RoleTeacher && u.IsActive {
			out.Teachers++
		}
	}
	for _, a := range st.applications {
		if a.Status == models.ApplicationPending {
			out.PendingApplications++
		}
	}
	for _, e := range st.enrollments {
		switch e.Status {
		case models.EnrollmentPending:
			out.PendingEnrollments++
		case models.EnrollmentApproved:
			out.EnrollmentsByYear[e.SchoolYear]++
		}
	}
	for _, d := range st.documents {
		if d.Status == models.DocumentPending {
			out.PendingDocuments++
		}
	}
	for _, g := range st.grades {
		if g.Status == models.GradeSubmitted {
			out.SubmittedGrades++
		}
	}
	return out, nil
}
