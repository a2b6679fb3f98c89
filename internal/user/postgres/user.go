package postgres

import (
	"context"
	"errors"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	userDatamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"github.com/paras-verma7454/DriveDeck/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) withRole(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("users").
		Select("users.*, roles.name AS role_name").
		Joins("LEFT JOIN user_roles ON user_roles.user_id = users.id").
		Joins("LEFT JOIN roles ON roles.id = user_roles.role_id")
}

func (r *UserRepository) ListActiveNonAdmin(ctx context.Context) ([]user.UserWithRole, error) {
	var rows []user.UserWithRole
	err := r.withRole(ctx).
		Where("users.is_active = ?", true).
		Where("(roles.name IS NULL OR roles.name <> ?)", auth.AdminRoleName).
		Order("users.created_at, users.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UserRepository) GetWithRole(ctx context.Context, userID string) (*user.UserWithRole, error) {
	var rows []user.UserWithRole
	err := r.withRole(ctx).
		Where("users.id = ?", userID).
		Order("user_roles.created_at").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, internal.ErrUserNotFound
	}
	return &rows[0], nil
}

// Deactivate flips is_active. An already inactive user counts as not found.
func (r *UserRepository) Deactivate(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// AssignRole drops every existing assignment and inserts the new one in the
// same transaction, keeping a user at one role.
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u userDatamodel.User
		if err := tx.Where("id = ? AND is_active = ?", userID, true).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrUserNotFound
			}
			return err
		}

		var role userDatamodel.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrRoleNotFound
			}
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&userDatamodel.UserRole{UserID: userID, RoleID: role.ID}).Error
	})
}
