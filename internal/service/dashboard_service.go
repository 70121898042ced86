package service

import (
	"context"
	"time"

	"compliance-backend/internal/repository"
	"compliance-backend/internal/stats"
)

// DashboardResponse is everything the overview screen renders in one call
type DashboardResponse struct {
	Kpis        stats.OrgKpis             `json:"kpis"`
	Departments []stats.DepartmentSummary `json:"departments"`
	Completion  []stats.CompletionBar     `json:"completion"`
	UpcomingDue []stats.DuePoint          `json:"upcoming_due"`
}

// DashboardService derives the organization-wide view from the caller's
// visible departments. All numbers come out of the pure aggregation
// functions; this service only fetches rows and picks the clock once.
type DashboardService interface {
	Overview(ctx context.Context, caller repository.Caller) (*DashboardResponse, error)
}

type dashboardService struct {
	departments DepartmentService
	now         func() time.Time
	dueWindow   int // days
}

// NewDashboardService returns a new instance of DashboardService
func NewDashboardService(departments DepartmentService) DashboardService {
	return &dashboardService{
		departments: departments,
		now:         time.Now,
		dueWindow:   14,
	}
}

func (s *dashboardService) Overview(ctx context.Context, caller repository.Caller) (*DashboardResponse, error) {
	summaries, err := s.departments.ListWithStats(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &DashboardResponse{
		Kpis:        stats.ComputeOrgKpis(summaries),
		Departments: summaries,
		Completion:  stats.CompletionByDepartment(summaries),
		UpcomingDue: stats.UpcomingDueCounts(summaries, now, s.dueWindow),
	}, nil
}
