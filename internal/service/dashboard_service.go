package service

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
)

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData collects the enrollment metrics shown on the dashboard.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*model.EnrollmentStats, error) {
	const op = "dashboard.get"

	total, paid, activePairs, err := s.repo.GetSummary(ctx)
	if err != nil {
		return nil, storeError(op, "Painel", err)
	}

	byStatus, err := s.repo.GetCountsBy(ctx, "status")
	if err != nil {
		return nil, storeError(op, "Painel", err)
	}

	byCourse, err := s.repo.GetCountsBy(ctx, "curso_codigo")
	if err != nil {
		return nil, storeError(op, "Painel", err)
	}

	occupancy, err := s.repo.GetClassOccupancy(ctx)
	if err != nil {
		return nil, storeError(op, "Painel", err)
	}

	return &model.EnrollmentStats{
		TotalStudents:   total,
		ByStatus:        byStatus,
		ByCourse:        byCourse,
		TotalPaid:       paid,
		ActivePairs:     activePairs,
		ClassOccupation: occupancy,
	}, nil
}
