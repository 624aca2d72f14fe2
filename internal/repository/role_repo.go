package repository

import (
	"context"
	"errors"

	"go-pos-invoice/internal/model"

	"gorm.io/gorm"
)

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := conn(ctx, r.db).Preload("Privileges").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	db := conn(ctx, r.db)
	for _, defaultRole := range model.DefaultRoles {
		var existingRole model.Role
		err := db.Where("code = ?", defaultRole.Code).First(&existingRole).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role := defaultRole
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *roleRepo) ReplacePrivileges(ctx context.Context, roleCode string, privileges []model.Privilege) error {
	role, err := r.FindByCode(ctx, roleCode)
	if err != nil {
		return err
	}
	return conn(ctx, r.db).Model(role).Association("Privileges").Replace(privileges)
}
