package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) FindActiveUser(ctx context.Context, userID string) (*auth.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, internal.ErrUserNotFound
	}
	var row datamodel.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return ToDomainUser(row), nil
}

// FindRolesForUser returns nothing for ids that cannot be users.
func (r *Repository) FindRolesForUser(ctx context.Context, userID string) ([]auth.Role, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}
	var rows []datamodel.Role
	err := r.db.WithContext(ctx).
		Model(&datamodel.Role{}).
		Select("roles.id, roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("user_roles.created_at ASC, roles.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	roles := make([]auth.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, auth.Role{ID: row.ID, Name: row.Name})
	}
	return roles, nil
}

func (r *Repository) PermissionKeysForRole(ctx context.Context, roleID int64) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&datamodel.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.key").
		Pluck("permissions.key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *Repository) FindCredentialsByEmail(ctx context.Context, email string) (*auth.User, string, error) {
	var row datamodel.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", internal.ErrUserNotFound
		}
		return nil, "", err
	}
	return ToDomainUser(row), row.PasswordHash, nil
}

// CreateUserWithRole inserts the user and its single role assignment in one
// transaction. The role is created on first use.
func (r *Repository) CreateUserWithRole(ctx context.Context, user *auth.User, passwordHash, roleName string) (*auth.Role, error) {
	var role datamodel.Role

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&datamodel.User{}).
			Where("email = ? OR username = ?", user.Email, user.UserName).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return internal.ErrUserExists
		}

		if err := tx.Where(datamodel.Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		row := datamodel.User{
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			UserName:     user.UserName,
			Email:        user.Email,
			PhoneNumber:  user.PhoneNumber,
			PasswordHash: passwordHash,
			City:         user.City,
			State:        user.State,
			Country:      user.Country,
			Pincode:      user.Pincode,
			IsActive:     true,
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return internal.ErrUserExists
			}
			return err
		}

		if err := tx.Create(&datamodel.UserRole{UserID: row.ID, RoleID: role.ID}).Error; err != nil {
			return err
		}

		*user = *ToDomainUser(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &auth.Role{ID: role.ID, Name: role.Name}, nil
}

func ToDomainUser(row datamodel.User) *auth.User {
	return &auth.User{
		ID:          row.ID,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		UserName:    row.UserName,
		Email:       row.Email,
		PhoneNumber: row.PhoneNumber,
		City:        row.City,
		State:       row.State,
		Country:     row.Country,
		Pincode:     row.Pincode,
		Image:       row.Image,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
	}
}
