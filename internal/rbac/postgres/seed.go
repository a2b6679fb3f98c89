package postgres

import (
	"context"
	"sort"

	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed inserts the permission keys and roles and adds each role's grants.
// Existing rows are left alone and grants are only ever added, so running it
// twice or after an admin edited a role is safe.
func (r *Repository) Seed(ctx context.Context, keys []string, grants map[string][]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&datamodel.Permission{Key: key}).Error
			if err != nil {
				return err
			}
		}

		names := make([]string, 0, len(grants))
		for name := range grants {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			var role datamodel.Role
			if err := tx.Where(datamodel.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
				return err
			}
			if len(grants[name]) == 0 {
				continue
			}

			var perms []datamodel.Permission
			if err := tx.Where(map[string]interface{}{"key": grants[name]}).Find(&perms).Error; err != nil {
				return err
			}
			for _, p := range perms {
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&datamodel.RolePermission{RoleID: role.ID, PermissionID: p.ID}).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
