package services

import (
	"context"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
)

// DashboardService serves the admin dashboard counters
type DashboardService struct {
	repo repositories.IDashboardRepository
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo repositories.IDashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.EnrollmentsByYear == nil {
		stats.EnrollmentsByYear = map[string]int64{}
	}
	return stats, nil
}
