package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
)

// DashboardRepository aggregates counters for the admin dashboard
type DashboardRepository struct {
	baseRepository
}

var _ IDashboardRepository = (*DashboardRepository)(nil)

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(database *db.PostgresDB) *DashboardRepository {
	return &DashboardRepository{baseRepository: newBaseRepository(database)}
}

// Stats collects every counter in one round trip plus the per-year breakdown
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	s := &models.DashboardStats{EnrollmentsByYear: map[string]int64{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM users WHERE role_type = 'TEACHER' AND is_active),
			(SELECT COUNT(*) FROM applications WHERE status = 'PENDING'),
			(SELECT COUNT(*) FROM enrollments WHERE status = 'PENDING'),
			(SELECT COUNT(*) FROM documents WHERE status = 'PENDING'),
			(SELECT COUNT(*) FROM grades WHERE status = 'SUBMITTED')`).
		Scan(&s.Students, &s.Teachers, &s.PendingApplications, &s.PendingEnrollments, &s.PendingDocuments, &s.SubmittedGrades)
	if err != nil {
		return nil, fmt.Errorf("error reading dashboard counters: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT school_year, COUNT(*) FROM enrollments
		WHERE status = 'APPROVED'
		GROUP BY school_year`)
	if err != nil {
		return nil, fmt.Errorf("error reading enrollments per year: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year string
		var n int64
		if err := rows.Scan(&year, &n); err != nil {
			return nil, fmt.Errorf("error scanning enrollments per year: %w", err)
		}
		s.EnrollmentsByYear[year] = n
	}
	return s, rows.Err()
}
