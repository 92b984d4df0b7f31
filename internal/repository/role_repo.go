package repository

import (
	"context"

	"travelcms/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	FindOrCreate(ctx context.Context, role *model.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindOrCreate loads the role by name, inserting it when missing
func (r *roleRepository) FindOrCreate(ctx context.Context, role *model.Role) error {
	return translateError(GetDB(ctx, r.db).
		Where("name = ?", role.Name).
		Attrs(model.Role{Description: role.Description}).
		FirstOrCreate(role).Error)
}
