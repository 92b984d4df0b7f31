package service

import (
	"context"
	"fmt"

	"travelcms/internal/model"
	"travelcms/internal/repository"
)

var roleDescriptions = map[model.RoleKind]string{
	model.RoleSuperadmin:   "Full access to users, logs and settings",
	model.RoleContentAdmin: "Manages places and routes",
	model.RoleUserAdmin:    "Manages user accounts and their roles",
	model.RoleAuditor:      "Reviews the audit log",
	model.RoleUser:         "Browses routes and leaves comments",
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	SeedDefaultRoles(ctx context.Context) error
}

type roleService struct {
	txManager repository.TransactionManager
	roleRepo  repository.RoleRepository
}

func NewRoleService(txManager repository.TransactionManager, roleRepo repository.RoleRepository) RoleService {
	return &roleService{txManager: txManager, roleRepo: roleRepo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return roles, nil
}

// SeedDefaultRoles inserts every known role that is missing. Safe to run on each start.
func (s *roleService) SeedDefaultRoles(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, kind := range model.AllRoleKinds {
			role := &model.Role{Name: string(kind), Description: roleDescriptions[kind]}
			if err := s.roleRepo.FindOrCreate(txCtx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", kind, err)
			}
		}
		return nil
	})
}
