package repository

import (
	"context"

	"travelcms/internal/model"

	"gorm.io/gorm"
)

type RouteRepository interface {
	Create(ctx context.Context, route *model.Route) error
	FindByID(ctx context.Context, id uint) (*model.Route, error)
	FindWithComments(ctx context.Context, id uint) (*model.Route, error)
	List(ctx context.Context) ([]model.Route, error)
	Latest(ctx context.Context, limit int) ([]model.Route, error)
}

type routeRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

func (r *routeRepository) Create(ctx context.Context, route *model.Route) error {
	return translateError(GetDB(ctx, r.db).Create(route).Error)
}

func (r *routeRepository) FindByID(ctx context.Context, id uint) (*model.Route, error) {
	var route model.Route
	if err := GetDB(ctx, r.db).Preload("Place").First(&route, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// FindWithComments loads the route, its place, and its comments with their authors
func (r *routeRepository) FindWithComments(ctx context.Context, id uint) (*model.Route, error) {
	var route model.Route
	err := GetDB(ctx, r.db).
		Preload("Place").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_created asc")
		}).
		Preload("Comments.User").
		First(&route, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *routeRepository) List(ctx context.Context) ([]model.Route, error) {
	var routes []model.Route
	if err := GetDB(ctx, r.db).Preload("Place").Order("creation_date desc").Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *routeRepository) Latest(ctx context.Context, limit int) ([]model.Route, error) {
	var routes []model.Route
	if err := GetDB(ctx, r.db).Order("creation_date desc").Limit(limit).Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}
