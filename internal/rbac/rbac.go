package rbac

import (
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
)

type Permission struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

// Role carries the keys granted to it, sorted.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (r *Role) IsAdmin() bool {
	return r.Name == auth.AdminRoleName
}

func PermissionFromDataModel(p datamodel.Permission) Permission {
	return Permission{ID: p.ID, Key: p.Key}
}

func RoleFromDataModel(r datamodel.Role, keys []string) *Role {
	if keys == nil {
		keys = []string{}
	}
	return &Role{ID: r.ID, Name: r.Name, Permissions: keys}
}
