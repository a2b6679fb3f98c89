package postgres

import (
	"context"
	"errors"

	"github.com/paras-verma7454/DriveDeck/internal"
	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListPermissions(ctx context.Context) ([]datamodel.Permission, error) {
	var rows []datamodel.Permission
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CreatePermission(ctx context.Context, key string) (*datamodel.Permission, error) {
	row := datamodel.Permission{Key: key}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := keyTaken(tx, key, 0)
		if err != nil {
			return err
		}
		if taken {
			return internal.ErrPermissionExists
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translate(err, internal.ErrPermissionExists)
	}
	return &row, nil
}

func (r *Repository) UpdatePermissionKey(ctx context.Context, id int64, key string) (*datamodel.Permission, error) {
	var row datamodel.Permission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrPermissionNotFound
			}
			return err
		}
		taken, err := keyTaken(tx, key, id)
		if err != nil {
			return err
		}
		if taken {
			return internal.ErrPermissionExists
		}
		if err := tx.Model(&row).Update("key", key).Error; err != nil {
			return err
		}
		row.Key = key
		return nil
	})
	if err != nil {
		return nil, translate(err, internal.ErrPermissionExists)
	}
	return &row, nil
}

// DeletePermission removes the key and every role link to it.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&datamodel.RolePermission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&datamodel.Permission{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrPermissionNotFound
		}
		return nil
	})
}

type roleKeyRow struct {
	RoleID int64
	Key    string
}

func (r *Repository) ListRoles(ctx context.Context) ([]datamodel.Role, map[int64][]string, error) {
	db := r.db.WithContext(ctx)

	var roles []datamodel.Role
	if err := db.Order("id").Find(&roles).Error; err != nil {
		return nil, nil, err
	}

	var links []roleKeyRow
	err := db.Table("role_permissions").
		Select("role_permissions.role_id, permissions.key").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Order("permissions.key").
		Scan(&links).Error
	if err != nil {
		return nil, nil, err
	}

	keys := make(map[int64][]string, len(roles))
	for _, l := range links {
		keys[l.RoleID] = append(keys[l.RoleID], l.Key)
	}
	return roles, keys, nil
}

func (r *Repository) GetRole(ctx context.Context, id int64) (*datamodel.Role, error) {
	var row datamodel.Role
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *Repository) RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	return roleKeys(r.db.WithContext(ctx), roleID)
}

func (r *Repository) CreateRole(ctx context.Context, name string) (*datamodel.Role, error) {
	row := datamodel.Role{Name: name}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&datamodel.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return internal.ErrRoleExists
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translate(err, internal.ErrRoleExists)
	}
	return &row, nil
}

// DeleteRole removes the role, its grants and its assignments. Users who
// held it are left without a role.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&datamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&datamodel.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&datamodel.Role{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrRoleNotFound
		}
		return nil
	})
}

// ReplaceRolePermissions runs in one transaction: readers see either the old
// grant set or the new one. Unknown keys abort the whole replace.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) ([]string, error) {
	var result []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role datamodel.Role
		if err := tx.First(&role, roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrRoleNotFound
			}
			return err
		}

		var perms []datamodel.Permission
		if len(keys) > 0 {
			if err := tx.Where(map[string]interface{}{"key": keys}).Find(&perms).Error; err != nil {
				return err
			}
		}
		if missing := missingKeys(keys, perms); len(missing) > 0 {
			return internal.ErrUnknownPermissions.WithDetails(missing...)
		}

		if err := tx.Where("role_id = ?", roleID).Delete(&datamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if len(perms) > 0 {
			links := make([]datamodel.RolePermission, 0, len(perms))
			for _, p := range perms {
				links = append(links, datamodel.RolePermission{RoleID: roleID, PermissionID: p.ID})
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}

		var err error
		result, err = roleKeys(tx, roleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func roleKeys(db *gorm.DB, roleID int64) ([]string, error) {
	keys := []string{}
	err := db.Model(&datamodel.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.key").
		Pluck("permissions.key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func keyTaken(tx *gorm.DB, key string, exceptID int64) (bool, error) {
	var count int64
	err := tx.Model(&datamodel.Permission{}).
		Where(map[string]interface{}{"key": key}).
		Where("id <> ?", exceptID).
		Count(&count).Error
	return count > 0, err
}

func missingKeys(requested []string, found []datamodel.Permission) []string {
	have := make(map[string]struct{}, len(found))
	for _, p := range found {
		have[p.Key] = struct{}{}
	}
	var missing []string
	for _, k := range requested {
		if _, ok := have[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// translate maps a unique-constraint race that slipped past the pre-check.
func translate(err, dup error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dup
	}
	return err
}
