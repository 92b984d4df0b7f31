package repository

import (
	"context"
	"fmt"

	"travelcms/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CatalogTotals(ctx context.Context) (model.CatalogTotals, error)
	UsersByRole(ctx context.Context) ([]model.RoleCount, error)
	LogsByCategory(ctx context.Context) ([]model.CategoryCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CatalogTotals(ctx context.Context) (model.CatalogTotals, error) {
	var totals model.CatalogTotals
	if err := GetDB(ctx, r.db).Raw(`SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM places) AS places,
		(SELECT COUNT(*) FROM routes) AS routes,
		(SELECT COUNT(*) FROM comments) AS comments`).
		Scan(&totals).Error; err != nil {
		return model.CatalogTotals{}, fmt.Errorf("failed to count catalog: %w", err)
	}
	return totals, nil
}

// UsersByRole includes roles nobody holds, with a zero count
func (r *statisticsRepository) UsersByRole(ctx context.Context) ([]model.RoleCount, error) {
	var rows []model.RoleCount
	if err := GetDB(ctx, r.db).Table("roles").
		Select("roles.name AS role, COUNT(users.id) AS count").
		Joins("LEFT JOIN users ON users.role_id = roles.id").
		Group("roles.id, roles.name").
		Order("roles.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) LogsByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	var rows []model.CategoryCount
	if err := GetDB(ctx, r.db).Model(&model.Log{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count logs by category: %w", err)
	}
	return rows, nil
}
