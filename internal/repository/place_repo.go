package repository

import (
	"context"

	"travelcms/internal/model"

	"gorm.io/gorm"
)

type PlaceRepository interface {
	Create(ctx context.Context, place *model.Place) error
	FindByID(ctx context.Context, id uint) (*model.Place, error)
	List(ctx context.Context) ([]model.Place, error)
}

type placeRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

func (r *placeRepository) Create(ctx context.Context, place *model.Place) error {
	return translateError(GetDB(ctx, r.db).Create(place).Error)
}

func (r *placeRepository) FindByID(ctx context.Context, id uint) (*model.Place, error) {
	var place model.Place
	if err := GetDB(ctx, r.db).First(&place, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &place, nil
}

func (r *placeRepository) List(ctx context.Context) ([]model.Place, error) {
	var places []model.Place
	if err := GetDB(ctx, r.db).Order("name asc").Find(&places).Error; err != nil {
		return nil, err
	}
	return places, nil
}
