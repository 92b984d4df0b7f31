package service

import (
	"context"
	"fmt"

	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/repository"
)

const dashboardListSize = 10

// DashboardSummary holds what one role's dashboard shows. Fields a role does
// not use stay empty.
type DashboardSummary struct {
	Kind model.RoleKind `json:"kind"`
	model.CatalogTotals
	UsersByRole    []model.RoleCount     `json:"users_by_role,omitempty"`
	LogsByCategory []model.CategoryCount `json:"logs_by_category,omitempty"`
	RecentLogs     []model.Log           `json:"recent_logs,omitempty"`
	RecentRoutes   []model.Route         `json:"recent_routes,omitempty"`
}

type DashboardService interface {
	Summary(ctx context.Context, actor rbac.Actor) (*DashboardSummary, error)
}

type dashboardService struct {
	statsRepo repository.StatisticsRepository
	routeRepo repository.RouteRepository
	audit     AuditService
	builders  map[model.RoleKind]summaryBuilder
}

type summaryBuilder func(ctx context.Context, s *DashboardSummary) error

func NewDashboardService(statsRepo repository.StatisticsRepository, routeRepo repository.RouteRepository, audit AuditService) DashboardService {
	d := &dashboardService{statsRepo: statsRepo, routeRepo: routeRepo, audit: audit}
	d.builders = map[model.RoleKind]summaryBuilder{
		model.RoleSuperadmin:   d.chain(d.totals, d.recentLogs),
		model.RoleContentAdmin: d.chain(d.totals, d.recentRoutes),
		model.RoleUserAdmin:    d.chain(d.totals, d.usersByRole),
		model.RoleAuditor:      d.chain(d.logsByCategory, d.recentLogs),
		model.RoleUser:         d.chain(d.recentRoutes),
	}
	return d
}

func (d *dashboardService) Summary(ctx context.Context, actor rbac.Actor) (*DashboardSummary, error) {
	build, ok := d.builders[actor.Role]
	if !ok {
		return nil, fmt.Errorf("no dashboard for role %q", actor.Role)
	}
	summary := &DashboardSummary{Kind: actor.Role}
	if err := build(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (d *dashboardService) chain(steps ...summaryBuilder) summaryBuilder {
	return func(ctx context.Context, s *DashboardSummary) error {
		for _, step := range steps {
			if err := step(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

func (d *dashboardService) totals(ctx context.Context, s *DashboardSummary) error {
	totals, err := d.statsRepo.CatalogTotals(ctx)
	if err != nil {
		return err
	}
	s.CatalogTotals = totals
	return nil
}

func (d *dashboardService) usersByRole(ctx context.Context, s *DashboardSummary) error {
	rows, err := d.statsRepo.UsersByRole(ctx)
	if err != nil {
		return err
	}
	s.UsersByRole = rows
	return nil
}

func (d *dashboardService) logsByCategory(ctx context.Context, s *DashboardSummary) error {
	rows, err := d.statsRepo.LogsByCategory(ctx)
	if err != nil {
		return err
	}
	s.LogsByCategory = rows
	return nil
}

func (d *dashboardService) recentLogs(ctx context.Context, s *DashboardSummary) error {
	logs, err := d.audit.RecentLogs(ctx, dashboardListSize)
	if err != nil {
		return err
	}
	s.RecentLogs = logs
	return nil
}

func (d *dashboardService) recentRoutes(ctx context.Context, s *DashboardSummary) error {
	routes, err := d.routeRepo.Latest(ctx, dashboardListSize)
	if err != nil {
		return fmt.Errorf("failed to load latest routes: %w", err)
	}
	s.RecentRoutes = routes
	return nil
}
